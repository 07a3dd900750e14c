package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/wentf9/vem/pkg/crypto"
	"github.com/wentf9/vem/pkg/utils/file"
	"gopkg.in/yaml.v3"
)

type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path    string
	crypter *crypto.Crypter // 加解密配置文件中的密码字段
}

// NewDefaultStore 创建读写 path 的配置存储, key 用于加解密密码
func NewDefaultStore(path string, key []byte) (Store, error) {
	crypter, err := crypto.NewCrypter(key)
	if err != nil {
		return nil, err
	}
	return &defaultStore{Path: path, crypter: crypter}, nil
}

// Load 读取配置; 文件不存在时返回默认配置
func (s *defaultStore) Load() (*Configuration, error) {
	cfg := Default()
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", s.Path, err)
	}
	if cfg.Hosts == nil {
		cfg.Hosts = newHosts()
	}

	for name, spec := range cfg.Hosts.Snapshot() {
		password, err := s.crypter.Open(spec.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt password of host '%s': %w", name, err)
		}
		cfg.Hosts.Set(name, spec.WithPassword(password))
	}
	return cfg, nil
}

// Save 加密密码后写入文件, 权限为 0600
func (s *defaultStore) Save(cfg *Configuration) error {
	out := *cfg
	out.Hosts = newHosts()
	if cfg.Hosts != nil {
		for name, spec := range cfg.Hosts.Snapshot() {
			sealed, err := s.crypter.Seal(spec.Password)
			if err != nil {
				return fmt.Errorf("failed to encrypt password of host '%s': %w", name, err)
			}
			out.Hosts.Set(name, spec.WithPassword(sealed))
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := file.CreateFileRecursive(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config '%s': %w", s.Path, err)
	}
	return nil
}
