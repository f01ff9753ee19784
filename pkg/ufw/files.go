package ufw

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/wentf9/ufwctl/pkg/executor"
	"github.com/wentf9/ufwctl/pkg/utils/file"
	"gopkg.in/yaml.v3"
)

const (
	DefaultsFile = "/etc/default/ufw"
	RulesDir     = "/etc/ufw"
)

// 规则集导入导出涉及的文件
var ruleFiles = []string{"user.rules", "user6.rules"}

// FileSystem 抽象本地与远程(sftp)文件读写
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

// LocalFS 直接读写本机文件
type LocalFS struct{}

func (LocalFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (LocalFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return file.WriteFileAtomic(name, data, perm)
}

// 经 shell 读写的路径只允许安全字符, 避免引号转义
var safePath = regexp.MustCompile(`^/[A-Za-z0-9/._-]+$`)

// ExecFS 通过执行器以 root 权限读写文件, 适用于非 root 登录的主机
type ExecFS struct {
	Exec executor.Executor
	Ctx  context.Context
}

func (e ExecFS) ReadFile(name string) ([]byte, error) {
	if !safePath.MatchString(name) {
		return nil, fmt.Errorf("unsupported path: %q", name)
	}
	out, err := e.Exec.RunWithSudo(e.context(), "cat "+name)
	if err != nil {
		if strings.Contains(out, "No such file or directory") {
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}
		return nil, err
	}
	return []byte(out), nil
}

func (e ExecFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if !safePath.MatchString(name) {
		return fmt.Errorf("unsupported path: %q", name)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	cmd := fmt.Sprintf("sh -c 'echo %s | base64 -d > %s && chmod %o %s'", encoded, name, perm.Perm(), name)
	_, err := e.Exec.RunWithSudo(e.context(), cmd)
	return err
}

func (e ExecFS) context() context.Context {
	if e.Ctx != nil {
		return e.Ctx
	}
	return context.Background()
}

// SetIPv6 修改配置文件中首个 IPV6= 行, 返回是否实际写入
func SetIPv6(fsys FileSystem, file string, enabled bool) (bool, error) {
	data, err := fsys.ReadFile(file)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", file, err)
	}
	want := "IPV6=no"
	if enabled {
		want = "IPV6=yes"
	}

	var buf bytes.Buffer
	changed, seen := false, false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if !seen && strings.HasPrefix(strings.TrimSpace(line), "IPV6=") {
			seen = true
			if strings.TrimSpace(line) != want {
				line, changed = want, true
			}
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	if !seen {
		return false, fmt.Errorf("no IPV6= setting in %s", file)
	}
	if !changed {
		return false, nil
	}
	if err := fsys.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", file, err)
	}
	return true, nil
}

// DisableIPv6 关闭 ufw 的 IPv6 支持, 需要 reload 后生效
func DisableIPv6(fsys FileSystem, file string) (bool, error) {
	return SetIPv6(fsys, file, false)
}

// RuleSet 是导出的规则文件集合, 文件名 -> 内容
type RuleSet struct {
	Source string            `yaml:"source"`
	Files  map[string]string `yaml:"files"`
}

// ExportRules 读取 dir 下的用户规则文件并以 yaml 写出
func ExportRules(fsys FileSystem, dir, source string, w io.Writer) error {
	set := RuleSet{Source: source, Files: make(map[string]string)}
	for _, name := range ruleFiles {
		data, err := fsys.ReadFile(path.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		set.Files[name] = string(data)
	}
	if len(set.Files) == 0 {
		return fmt.Errorf("no rule files found in %s", dir)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(set)
}

// ImportRules 将导出的规则文件写回 dir, 并通过 reload 生效
// 只接受已知的规则文件名
func ImportRules(ctx context.Context, m *Manager, fsys FileSystem, dir string, r io.Reader) error {
	var set RuleSet
	if err := yaml.NewDecoder(r).Decode(&set); err != nil {
		return fmt.Errorf("decode rule set: %w", err)
	}
	if len(set.Files) == 0 {
		return errors.New("rule set is empty")
	}
	for name := range set.Files {
		if !isRuleFile(name) {
			return fmt.Errorf("unexpected file in rule set: %s", name)
		}
	}
	for _, name := range ruleFiles {
		content, ok := set.Files[name]
		if !ok {
			continue
		}
		if err := fsys.WriteFile(path.Join(dir, name), []byte(content), 0o640); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return m.Reload(ctx)
}

func isRuleFile(name string) bool {
	return slices.Contains(ruleFiles, name)
}
