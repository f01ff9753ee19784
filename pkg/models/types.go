package models

import "slices"

// Identity 定义认证信息
type Identity struct {
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key_path,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"` // 私钥密码
	Password   string `yaml:"password,omitempty"`   // 登录密码
	AuthType   string `yaml:"auth_type"`            // "key", "password"
}

// Host 定义网络连接信息
type Host struct {
	Address string `yaml:"address"` // IP 或 域名
	Port    uint16 `yaml:"port"`
}

// 提权方式
const (
	SudoNone   = "none"   // 已是 root
	SudoSudo   = "sudo"   // sudo + 密码
	SudoSudoer = "sudoer" // 免密 sudo
	SudoSu     = "su"     // su - root, 依赖 SudoPwd
)

// Node 是被管理防火墙的最小单元，聚合了 Host 和 Identity
type Node struct {
	Alias []string `yaml:"alias,omitempty"`
	Tags  []string `yaml:"tags,omitempty"` // 用于分组批量操作

	HostRef     string `yaml:"host_ref"`
	IdentityRef string `yaml:"identity_ref"`

	ProxyJump string `yaml:"proxy_jump,omitempty"` // 指向另一个 Node 的名称

	SudoMode string `yaml:"sudo_mode"` // none, sudo, sudoer, su
	SudoPwd  string `yaml:"sudo_pwd,omitempty"`
}

// HasTag 报告节点是否属于分组 tag
func (n Node) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// Settings 工具的全局设置, 命令行参数优先
type Settings struct {
	Concurrency  uint   `yaml:"concurrency,omitempty"`
	Sudo         *bool  `yaml:"sudo,omitempty"`
	UfwPath      string `yaml:"ufw_path,omitempty"`
	DefaultsFile string `yaml:"defaults_file,omitempty"`
	RulesDir     string `yaml:"rules_dir,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
}
