package ufw

import (
	"context"
	"fmt"
	"strings"
)

// 与 ufw 同时管理 netfilter 时会互相覆盖规则的服务
var conflictingServices = []string{"firewalld", "nftables", "iptables"}

// Preflight 目标主机的防火墙环境
type Preflight struct {
	Binary string `json:"binary"`
	// Conflicts 处于运行状态的其他防火墙服务
	Conflicts []string `json:"conflicts,omitempty"`
}

// Preflight 确认 ufw 已安装, 并探测同时运行的其他防火墙服务.
// 探测命令不需要 root 权限
func (m *Manager) Preflight(ctx context.Context) (Preflight, error) {
	out, err := m.exec.Run(ctx, "command -v "+m.bin)
	path := strings.TrimSpace(out)
	if err != nil || path == "" {
		return Preflight{}, fmt.Errorf("%w on %s", ErrNotInstalled, m.Target())
	}
	p := Preflight{Binary: path}
	for _, svc := range conflictingServices {
		if _, err := m.exec.Run(ctx, "systemctl is-active --quiet "+svc); err == nil {
			p.Conflicts = append(p.Conflicts, svc)
		}
	}
	return p, nil
}
