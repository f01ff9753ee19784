package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wentf9/ufwctl/pkg/crypto"
	"github.com/wentf9/ufwctl/pkg/models"
	"gopkg.in/yaml.v3"
)

type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path    string
	KeyPath string // 用于加解密配置文件中的口令字段
}

func NewDefaultStore(path, keyPath string) Store {
	return &defaultStore{Path: path, KeyPath: keyPath}
}

// Load 读取配置并解密口令; 文件不存在时返回空配置
func (s *defaultStore) Load() (*Configuration, error) {
	cfg := NewConfiguration()
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	c, err := s.crypter()
	if err != nil {
		return nil, err
	}
	if err := transformSecrets(cfg, c.Decrypt); err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", s.Path, err)
	}
	return cfg, nil
}

// Save 加密口令后写回, 不修改内存中的明文配置
func (s *defaultStore) Save(cfg *Configuration) error {
	c, err := s.crypter()
	if err != nil {
		return err
	}
	out := NewConfiguration()
	out.Settings = cfg.Settings
	cfg.Hosts.IterCb(func(k string, v models.Host) bool { out.Hosts.Set(k, v); return true })
	cfg.Identities.IterCb(func(k string, v models.Identity) bool { out.Identities.Set(k, v); return true })
	cfg.Nodes.IterCb(func(k string, v models.Node) bool { out.Nodes.Set(k, v); return true })
	if err := transformSecrets(out, c.Encrypt); err != nil {
		return err
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

func (s *defaultStore) crypter() (*crypto.Crypter, error) {
	key, err := crypto.LoadOrGenerateKey(s.KeyPath)
	if err != nil {
		return nil, err
	}
	return crypto.NewCrypter(key)
}

// transformSecrets 对所有口令字段应用 fn
func transformSecrets(cfg *Configuration, fn func(string) (string, error)) error {
	var firstErr error
	apply := func(v *string) {
		if firstErr != nil {
			return
		}
		out, err := fn(*v)
		if err != nil {
			firstErr = err
			return
		}
		*v = out
	}
	for _, name := range cfg.Identities.Keys() {
		id, _ := cfg.Identities.Get(name)
		apply(&id.Password)
		apply(&id.Passphrase)
		cfg.Identities.Set(name, id)
	}
	for _, name := range cfg.Nodes.Keys() {
		n, _ := cfg.Nodes.Get(name)
		apply(&n.SudoPwd)
		cfg.Nodes.Set(name, n)
	}
	return firstErr
}
