package ufw

import (
	"context"
	"strings"
)

const activeBanner = "Status: active"

// Status 是一次 `ufw status numbered` 的解析结果
type Status struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Rules   []Rule `json:"rules" yaml:"rules"`
}

// ParseStatus 解析完整的状态报告, 规则顺序与工具输出一致
func ParseStatus(ctx context.Context, output string) (Status, error) {
	lines := strings.Split(output, "\n")
	rules, err := ParseLines(ctx, lines)
	if err != nil {
		return Status{}, err
	}
	st := Status{Rules: rules}
	for _, line := range lines {
		if strings.Contains(line, activeBanner) {
			st.Enabled = true
			break
		}
	}
	return st, nil
}

// Defaults 默认策略, 取自 `ufw status verbose`
type Defaults struct {
	Incoming string `json:"incoming" yaml:"incoming"`
	Outgoing string `json:"outgoing" yaml:"outgoing"`
	Routed   string `json:"routed" yaml:"routed"`
	Logging  string `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ParseDefaults 读取 "Default: deny (incoming), allow (outgoing), disabled (routed)" 与 "Logging: on (low)"
// 没有 Default 行时返回 false (例如防火墙未启用)
func ParseDefaults(output string) (Defaults, bool) {
	var d Defaults
	found := false
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Logging:"); ok {
			d.Logging = strings.TrimSpace(v)
			continue
		}
		v, ok := strings.CutPrefix(line, "Default:")
		if !ok {
			continue
		}
		found = true
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			policy, _, _ := strings.Cut(part, " ")
			switch {
			case strings.Contains(part, "(incoming)"):
				d.Incoming = policy
			case strings.Contains(part, "(outgoing)"):
				d.Outgoing = policy
			case strings.Contains(part, "(routed)"):
				d.Routed = policy
			}
		}
	}
	return d, found
}
