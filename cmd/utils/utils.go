package utils

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	ConfigDirName  = ".ufwctl"
	ConfigFileName = "config.yaml"
	ConfigKeyName  = "key"
)

// GetConfigFilePath 返回配置文件与密钥文件的默认路径
func GetConfigFilePath() (configPath, keyPath string) {
	u, err := user.Current()
	if err != nil {
		return ConfigFileName, ConfigKeyName
	}
	dir := filepath.Join(u.HomeDir, ConfigDirName)
	return filepath.Join(dir, ConfigFileName), filepath.Join(dir, ConfigKeyName)
}

// KeyPathFor 配置文件旁的密钥文件
func KeyPathFor(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ConfigKeyName)
}

// ParseAddr 解析 [user@]host[:port]
func ParseAddr(input string) (string, string, uint16) {
	var user string
	var port uint16
	if idx := strings.LastIndex(input, ":"); idx != -1 && !strings.Contains(input[idx+1:], "]") {
		port = ParsePort(input[idx+1:])
		input = input[:idx]
	}
	if idx := strings.Index(input, "@"); idx != -1 {
		user = strings.TrimSpace(input[:idx])
		input = input[idx+1:]
	}
	host := strings.Trim(strings.TrimSpace(input), "[]")
	return user, host, port
}

// ParsePort 解析端口, 非法或为空时返回 0
func ParsePort(input string) uint16 {
	if input == "" {
		return 0
	}
	port, err := strconv.ParseUint(input, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port)
}

func GetCurrentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

// ReadPasswordFromTerminal 从终端读取密码, 不回显
func ReadPasswordFromTerminal(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}
