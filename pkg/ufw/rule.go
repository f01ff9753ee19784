package ufw

import (
	"fmt"
	"strings"
)

// Action 规则的处置方向
type Action int

const (
	// ActionUnknown 未识别的动作列, 不会与 Allow 混淆
	ActionUnknown Action = iota
	ActionAllow
	ActionAllowIn
	ActionAllowOut
	ActionDeny
	ActionDenyIn
	ActionDenyOut
)

var actionNames = map[string]Action{
	"ALLOW":     ActionAllow,
	"ALLOW IN":  ActionAllowIn,
	"ALLOW OUT": ActionAllowOut,
	"DENY":      ActionDeny,
	"DENY IN":   ActionDenyIn,
	"DENY OUT":  ActionDenyOut,
}

func (a Action) String() string {
	for name, v := range actionNames {
		if v == a {
			return name
		}
	}
	return "UNKNOWN"
}

// IsAllow 报告规则是否放行流量
func (a Action) IsAllow() bool {
	return a == ActionAllow || a == ActionAllowIn || a == ActionAllowOut
}

// Protocol 传输层协议限制
type Protocol int

const (
	ProtocolAny Protocol = iota
	ProtocolTCP
	ProtocolUDP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return "any"
	}
}

// ParseProtocol 解析命令行/配置中的协议名, 空串视为 any
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return ProtocolAny, nil
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	default:
		return ProtocolAny, fmt.Errorf("unsupported protocol: %s", s)
	}
}

// SourceKind 源地址类别
type SourceKind int

const (
	SourceAnywhere SourceKind = iota
	SourceAddress
)

func (k SourceKind) String() string {
	if k == SourceAddress {
		return "address"
	}
	return "anywhere"
}

// Rule 对应 `ufw status numbered` 中的一行规则
// 只由 ParseRule 构造, 按值传递
type Rule struct {
	Index      int        `json:"index" yaml:"index"`
	Action     Action     `json:"action" yaml:"action"`
	Protocol   Protocol   `json:"protocol" yaml:"protocol"`
	Port       string     `json:"port" yaml:"port"` // 为空表示 Anywhere
	SourceKind SourceKind `json:"source_kind" yaml:"source_kind"`
	Source     string     `json:"source" yaml:"source"`
	Comment    string     `json:"comment,omitempty" yaml:"comment,omitempty"`
	HasComment bool       `json:"-" yaml:"-"`
}

// IPv6 报告规则是否作用于 IPv6 地址族
func (r Rule) IPv6() bool {
	return strings.HasSuffix(r.Source, v6Marker)
}

// Target 返回 ufw 命令可接受的 port[/proto] 形式
func (r Rule) Target() string {
	if r.Port == "" {
		return anywhere
	}
	if r.Protocol == ProtocolAny {
		return r.Port
	}
	return r.Port + "/" + r.Protocol.String()
}

func (r Rule) String() string {
	s := fmt.Sprintf("[%2d] %s  %s  %s", r.Index, r.Target(), r.Action, r.Source)
	if r.HasComment {
		s += "  # " + r.Comment
	}
	return s
}

func (a Action) MarshalText() ([]byte, error)     { return []byte(a.String()), nil }
func (p Protocol) MarshalText() ([]byte, error)   { return []byte(p.String()), nil }
func (k SourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
