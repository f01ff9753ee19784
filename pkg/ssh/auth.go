package ssh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wentf9/ufwctl/pkg/models"
	"golang.org/x/crypto/ssh"
)

// AuthMethod 定义获取 SSH 认证方法的接口
type AuthMethod interface {
	GetMethod() (ssh.AuthMethod, error)
}

// PasswordAuth 密码认证
type PasswordAuth struct {
	Password string
}

func (p *PasswordAuth) GetMethod() (ssh.AuthMethod, error) {
	if p.Password == "" {
		return nil, fmt.Errorf("auth type is password but password is empty")
	}
	return ssh.Password(p.Password), nil
}

// KeyAuth 私钥认证
type KeyAuth struct {
	Path       string
	Passphrase string
}

func (k *KeyAuth) GetMethod() (ssh.AuthMethod, error) {
	if k.Path == "" {
		return nil, fmt.Errorf("auth type is key but key_path is empty")
	}
	keyData, err := os.ReadFile(expandHomeDir(k.Path))
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var signer ssh.Signer
	if k.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(k.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

// authFor 按 Identity 的 AuthType 选择认证方式
func authFor(id models.Identity) (AuthMethod, error) {
	switch id.AuthType {
	case "password":
		return &PasswordAuth{Password: id.Password}, nil
	case "key", "":
		return &KeyAuth{Path: id.KeyPath, Passphrase: id.Passphrase}, nil
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", id.AuthType)
	}
}

func expandHomeDir(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
