package ufw

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/wentf9/ufwctl/pkg/executor"
	"github.com/wentf9/ufwctl/pkg/logger"
)

const DefaultBinary = "ufw"

var (
	// 端口: 数字, 范围(a:b), 列表(a,b) 或应用/服务名
	portPattern    = regexp.MustCompile(`^[0-9]+([:,][0-9]+)*$`)
	servicePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 ._+-]*$`)
	loggingLevels  = []string{"on", "off", "low", "medium", "high", "full"}
)

// Manager 通过外部 ufw 命令管理一台主机的防火墙
type Manager struct {
	exec executor.Executor
	bin  string
	sudo bool
}

type Option func(*Manager)

// WithBinary 指定 ufw 可执行文件路径
func WithBinary(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.bin = path
		}
	}
}

// WithSudo 控制是否经 sudo 提权执行
func WithSudo(sudo bool) Option {
	return func(m *Manager) {
		m.sudo = sudo
	}
}

func NewManager(exec executor.Executor, opts ...Option) *Manager {
	m := &Manager{exec: exec, bin: DefaultBinary, sudo: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target 返回被管理主机的名称
func (m *Manager) Target() string {
	return m.exec.Target()
}

// run 执行 ufw 子命令, 命令失败或输出 "ERROR:" 都会返回 *CommandError
func (m *Manager) run(ctx context.Context, args ...string) (string, error) {
	cmd := m.bin + " " + strings.Join(args, " ")
	var (
		out string
		err error
	)
	if m.sudo {
		out, err = m.exec.RunWithSudo(ctx, cmd)
	} else {
		out, err = m.exec.Run(ctx, cmd)
	}
	if err == nil {
		err = toolError(out)
	}
	if err != nil {
		logger.L().Debug("ufw command failed", "target", m.Target(), "cmd", cmd, "error", err)
		return out, &CommandError{Command: cmd, Output: out, Err: err}
	}
	return out, nil
}

// Status 执行 `ufw status numbered` 并解析启用状态与规则列表
func (m *Manager) Status(ctx context.Context) (Status, error) {
	out, err := m.run(ctx, "status", "numbered")
	if err != nil {
		return Status{}, err
	}
	st, err := ParseStatus(ctx, out)
	if err != nil {
		return Status{}, err
	}
	for _, r := range st.Rules {
		if r.Action == ActionUnknown {
			logger.L().Debug("rule with unrecognized action", "target", m.Target(), "index", r.Index)
		}
	}
	return st, nil
}

// Rules 返回当前配置的全部规则, 顺序与 ufw 编号一致
func (m *Manager) Rules(ctx context.Context) ([]Rule, error) {
	st, err := m.Status(ctx)
	return st.Rules, err
}

// IsEnabled 报告 ufw 是否处于 active 状态
func (m *Manager) IsEnabled(ctx context.Context) (bool, error) {
	st, err := m.Status(ctx)
	return st.Enabled, err
}

// Defaults 返回默认策略; 未启用时 ufw 不输出策略, 返回零值
func (m *Manager) Defaults(ctx context.Context) (Defaults, error) {
	out, err := m.run(ctx, "status", "verbose")
	if err != nil {
		return Defaults{}, err
	}
	d, _ := ParseDefaults(out)
	return d, nil
}

func (m *Manager) Enable(ctx context.Context) error {
	_, err := m.run(ctx, "--force", "enable")
	return err
}

func (m *Manager) Disable(ctx context.Context) error {
	_, err := m.run(ctx, "disable")
	return err
}

// Reset 删除全部规则并禁用防火墙
func (m *Manager) Reset(ctx context.Context) error {
	_, err := m.run(ctx, "--force", "reset")
	return err
}

func (m *Manager) Reload(ctx context.Context) error {
	_, err := m.run(ctx, "reload")
	return err
}

// SetLogging 设置日志级别: on/off/low/medium/high/full
func (m *Manager) SetLogging(ctx context.Context, level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	if !slices.Contains(loggingLevels, level) {
		return fmt.Errorf("unsupported logging level: %s", level)
	}
	_, err := m.run(ctx, "logging", level)
	return err
}

// ShutdownLogging 关闭 ufw 日志
func (m *Manager) ShutdownLogging(ctx context.Context) error {
	return m.SetLogging(ctx, "off")
}

// DeleteRule 按编号删除规则, 删除后其后规则的编号会前移
func (m *Manager) DeleteRule(ctx context.Context, index int) error {
	if index < 1 {
		return fmt.Errorf("%w: %d", ErrNoSuchRule, index)
	}
	_, err := m.run(ctx, "--force", "delete", strconv.Itoa(index))
	return err
}

// DeleteMatching 删除满足条件的全部规则, 从大编号开始删以保证剩余编号有效
// 返回被删除的规则
func (m *Manager) DeleteMatching(ctx context.Context, match func(Rule) bool) ([]Rule, error) {
	rules, err := m.Rules(ctx)
	if err != nil {
		return nil, err
	}
	var victims []Rule
	for _, r := range rules {
		if match(r) {
			victims = append(victims, r)
		}
	}
	slices.SortFunc(victims, func(a, b Rule) int { return b.Index - a.Index })
	for i, r := range victims {
		if err := m.DeleteRule(ctx, r.Index); err != nil {
			return victims[:i], err
		}
	}
	return victims, nil
}

// AllowInbound 放行入站端口; 端口范围必须带协议, Any 时同时添加 tcp 与 udp
func (m *Manager) AllowInbound(ctx context.Context, port string, proto Protocol) error {
	if !portPattern.MatchString(port) {
		return fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	if proto == ProtocolAny && strings.Contains(port, ":") {
		for _, p := range []Protocol{ProtocolTCP, ProtocolUDP} {
			if _, err := m.run(ctx, "allow", port+"/"+p.String()); err != nil {
				return err
			}
		}
		return nil
	}
	target := port
	if proto != ProtocolAny {
		target += "/" + proto.String()
	}
	_, err := m.run(ctx, "allow", target)
	return err
}

// AllowInboundFrom 放行来自指定地址的入站端口
func (m *Manager) AllowInboundFrom(ctx context.Context, from, port string, proto Protocol) error {
	if err := validateAddress(from); err != nil {
		return err
	}
	if !portPattern.MatchString(port) {
		return fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	args := []string{"allow", "from", from, "to", "any", "port", port}
	if proto != ProtocolAny {
		args = append(args, "proto", proto.String())
	}
	_, err := m.run(ctx, args...)
	return err
}

// AllowService 放行应用配置(如 OpenSSH, "Nginx Full")
func (m *Manager) AllowService(ctx context.Context, service string) error {
	if !servicePattern.MatchString(service) {
		return fmt.Errorf("invalid service profile: %q", service)
	}
	_, err := m.run(ctx, "allow", strconv.Quote(service))
	return err
}

// DenyInbound 拒绝来自指定地址的全部入站流量
func (m *Manager) DenyInbound(ctx context.Context, from string) error {
	if err := validateAddress(from); err != nil {
		return err
	}
	_, err := m.run(ctx, "deny", "from", from)
	return err
}

func validateAddress(addr string) error {
	if net.ParseIP(addr) != nil {
		return nil
	}
	if _, _, err := net.ParseCIDR(addr); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
}
