package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/cmd/utils"
	"github.com/wentf9/ufwctl/global"
	"github.com/wentf9/ufwctl/pkg/config"
	"github.com/wentf9/ufwctl/pkg/executor"
	"github.com/wentf9/ufwctl/pkg/logger"
	"github.com/wentf9/ufwctl/pkg/models"
	"github.com/wentf9/ufwctl/pkg/runner"
	"github.com/wentf9/ufwctl/pkg/sftp"
	"github.com/wentf9/ufwctl/pkg/ssh"
	"github.com/wentf9/ufwctl/pkg/ufw"
)

// localNode 表示本机, 不经过 ssh
const localNode = ""

// GlobalOptions 所有子命令共享的持久参数
type GlobalOptions struct {
	ConfigPath string
	Node       string
	Tag        string
	Sudo       bool
	TaskCount  uint
	Debug      bool
	LogLevel   string

	store     config.Store
	cfg       *config.Configuration
	provider  config.ConfigProvider
	connector *ssh.Connector
	sudoSet   bool
}

func NewGlobalOptions() *GlobalOptions {
	return &GlobalOptions{Sudo: true}
}

func (o *GlobalOptions) AddFlags(cmd *cobra.Command) {
	configPath, _ := utils.GetConfigFilePath()
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.ConfigPath, "config", configPath, "配置文件路径")
	flags.StringVarP(&o.Node, "node", "n", "", "目标节点(名称/别名/地址), 默认本机")
	flags.StringVarP(&o.Tag, "tag", "t", "", "按标签对一组节点执行")
	flags.BoolVarP(&o.Sudo, "sudo", "s", true, "以 root 权限执行 ufw")
	flags.UintVar(&o.TaskCount, "task", 0, "并行执行的节点数, 默认取配置中的 concurrency")
	flags.BoolVar(&o.Debug, "debug", false, "开启调试日志")
	flags.StringVar(&o.LogLevel, "log-level", "", "日志级别 debug|info|warn|error")
	cmd.MarkFlagsMutuallyExclusive("node", "tag")
}

// Complete 在子命令执行前调用, 处理日志级别并加载配置
func (o *GlobalOptions) Complete(cmd *cobra.Command) error {
	o.sudoSet = cmd.Flags().Changed("sudo")
	if o.Debug {
		logger.SetLogLevel("debug")
	} else if o.LogLevel != "" && !logger.SetLogLevel(o.LogLevel) {
		return fmt.Errorf("未知的日志级别: %s", o.LogLevel)
	}
	return o.load()
}

func (o *GlobalOptions) load() error {
	if o.cfg != nil {
		return nil
	}
	o.store = config.NewDefaultStore(o.ConfigPath, utils.KeyPathFor(o.ConfigPath))
	cfg, err := o.store.Load()
	if err != nil {
		return fmt.Errorf("加载配置文件失败: %w", err)
	}
	o.cfg = cfg
	o.provider = config.NewProvider(cfg)
	o.connector = ssh.NewConnector(o.provider)
	if o.LogLevel == "" && !o.Debug && cfg.Settings.LogLevel != "" {
		logger.SetLogLevel(cfg.Settings.LogLevel)
	}
	return nil
}

// Save 将修改后的节点清单写回配置文件
func (o *GlobalOptions) Save() error {
	return o.store.Save(o.cfg)
}

func (o *GlobalOptions) settings() models.Settings {
	return o.provider.Settings()
}

// useSudo 命令行参数优先于配置
func (o *GlobalOptions) useSudo() bool {
	if !o.sudoSet && o.settings().Sudo != nil {
		return *o.settings().Sudo
	}
	return o.Sudo
}

func (o *GlobalOptions) concurrency() uint {
	if o.TaskCount > 0 {
		return o.TaskCount
	}
	return o.settings().Concurrency
}

func (o *GlobalOptions) defaultsFile() string {
	if f := o.settings().DefaultsFile; f != "" {
		return f
	}
	return ufw.DefaultsFile
}

func (o *GlobalOptions) rulesDir() string {
	if d := o.settings().RulesDir; d != "" {
		return d
	}
	return ufw.RulesDir
}

// Targets 解析 --node / --tag, 未指定时只有本机
func (o *GlobalOptions) Targets() ([]string, error) {
	switch {
	case o.Tag != "":
		nodes := o.provider.GetNodesByTag(o.Tag)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("没有找到带有标签 %s 的节点", o.Tag)
		}
		return config.SortedNames(nodes), nil
	case o.Node != "":
		id := o.provider.Find(o.Node)
		if id == "" {
			return nil, fmt.Errorf("%w: %s", config.ErrNodeNotFound, o.Node)
		}
		return []string{id}, nil
	default:
		return []string{localNode}, nil
	}
}

// target 一个节点上的 ufw 管理句柄
type target struct {
	name    string
	manager *ufw.Manager
	fs      ufw.FileSystem
	closers []func() error
}

func (t *target) Close() {
	for _, c := range t.closers {
		c()
	}
}

func (o *GlobalOptions) managerOptions() []ufw.Option {
	opts := []ufw.Option{ufw.WithSudo(o.useSudo())}
	if bin := o.settings().UfwPath; bin != "" {
		opts = append(opts, ufw.WithBinary(bin))
	}
	return opts
}

// open 为节点建立执行器与文件访问方式.
// root 登录的远程节点用 sftp 读写文件, 其余经执行器提权读写
func (o *GlobalOptions) open(ctx context.Context, name string) (*target, error) {
	if name == localNode {
		local := executor.NewLocalExecutor()
		local.SudoPassword = o.localSudoPassword()
		var fsys ufw.FileSystem = ufw.LocalFS{}
		if os.Geteuid() != 0 {
			fsys = ufw.ExecFS{Exec: local, Ctx: ctx}
		}
		return &target{name: local.Target(), manager: ufw.NewManager(local, o.managerOptions()...), fs: fsys}, nil
	}

	client, err := o.connector.Connect(ctx, name)
	if err != nil {
		return nil, err
	}
	exec := executor.NewSSHExecutor(name, client)
	t := &target{name: name, manager: ufw.NewManager(exec, o.managerOptions()...)}
	if client.IsRoot() {
		sc, err := sftp.NewClient(client)
		if err == nil {
			t.fs = sc
			t.closers = append(t.closers, sc.Close)
			return t, nil
		}
		logger.L().Warn("sftp unavailable, falling back to shell", "node", name, "error", err)
	}
	t.fs = ufw.ExecFS{Exec: exec, Ctx: ctx}
	return t, nil
}

// localSudoPassword 取名为 localhost 或 local 的节点上配置的 sudo 密码
func (o *GlobalOptions) localSudoPassword() string {
	for _, name := range []string{"localhost", "local"} {
		if id := o.provider.Find(name); id != "" {
			if node, ok := o.provider.GetNode(id); ok && node.SudoPwd != "" {
				return node.SudoPwd
			}
		}
	}
	return ""
}

// Close 关闭所有 ssh 连接
func (o *GlobalOptions) Close() {
	if o.connector != nil {
		o.connector.CloseAll()
	}
}

// TaskFunc 在单个节点上执行的子命令逻辑
type TaskFunc func(ctx context.Context, t *target) (string, error)

// Each 在所有目标节点上执行 fn. 多个节点时并行执行,
// 输出按节点名加前缀, 有节点失败时返回汇总错误
func (o *GlobalOptions) Each(cmd *cobra.Command, desc string, fn TaskFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	names, err := o.Targets()
	if err != nil {
		return err
	}
	defer o.Close()

	task := func(ctx context.Context, name string) (string, error) {
		t, err := o.open(ctx, name)
		if err != nil {
			return "", err
		}
		defer t.Close()
		return fn(ctx, t)
	}

	out := cmd.OutOrStdout()
	if len(names) == 1 {
		res, err := task(ctx, names[0])
		writeOutput(out, "", res)
		return err
	}

	var progress io.Writer
	if global.StderrIsTerminal {
		progress = cmd.ErrOrStderr()
	}
	results := runner.RunParallel(ctx, names, runner.Options{
		Concurrency: o.concurrency(),
		Progress:    progress,
		Description: desc,
	}, task)
	for _, r := range results {
		writeOutput(out, "["+r.Node+"] ", r.Output)
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] 错误: %v\n", r.Node, r.Err)
		}
	}
	if failed := runner.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d/%d 个节点执行失败", len(failed), len(results))
	}
	return nil
}

func writeOutput(w io.Writer, prefix, output string) {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return
	}
	for line := range strings.SplitSeq(output, "\n") {
		fmt.Fprintln(w, prefix+line)
	}
}
