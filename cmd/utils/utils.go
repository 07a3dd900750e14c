package utils

import (
	"fmt"
	"os/user"
	"path/filepath"

	"github.com/wentf9/vem/pkg/config"
	"github.com/wentf9/vem/pkg/crypto"
)

const (
	ConfigDirName  = ".vem"
	ConfigFileName = "config.yaml"
	ConfigKeyName  = "key"
)

// GetConfigFilePath 返回配置文件和密钥文件的路径
func GetConfigFilePath() (configPath, keyPath string) {
	u, err := user.Current()
	if err != nil {
		return "", ""
	}
	dir := filepath.Join(u.HomeDir, ConfigDirName)
	return filepath.Join(dir, ConfigFileName), filepath.Join(dir, ConfigKeyName)
}

// LoadConfig 加载 (必要时生成) 密钥并读取配置文件
func LoadConfig() (config.Store, *config.Configuration, error) {
	configPath, keyPath := GetConfigFilePath()
	if configPath == "" {
		return nil, nil, fmt.Errorf("无法确定当前用户的家目录")
	}
	key, err := crypto.LoadOrGenerateKey(keyPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := config.NewDefaultStore(configPath, key)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// FirstNonEmpty 返回第一个非空字符串
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
