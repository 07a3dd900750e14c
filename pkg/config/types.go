package config

import (
	"time"

	"github.com/wentf9/vem/pkg/models"
	"github.com/wentf9/vem/pkg/utils/concurrent"
)

const (
	DefaultRemoteDir = "/tmp/vem"
	DefaultOutputDir = "~/.vem/downloads"
)

// Configuration 对应 yaml 文件的顶层结构
type Configuration struct {
	Hosts       *concurrent.Map[string, models.ConnectionSpec] `yaml:"hosts"`
	DefaultHost string                                         `yaml:"default_host,omitempty"`
	Gateway     string                                         `yaml:"gateway,omitempty"`
	RemoteDir   string                                         `yaml:"remote_dir"`
	OutputDir   string                                         `yaml:"output_dir"`
	KeepAlive   time.Duration                                  `yaml:"keepalive,omitempty"`
	Transfer    Transfer                                       `yaml:"transfer"`
}

type Transfer struct {
	ThreadsPerFile int `yaml:"threads_per_file"`
}

// Default 返回未写入配置文件时使用的配置
func Default() *Configuration {
	return &Configuration{
		Hosts:     newHosts(),
		RemoteDir: DefaultRemoteDir,
		OutputDir: DefaultOutputDir,
		Transfer:  Transfer{ThreadsPerFile: 1},
	}
}

func newHosts() *concurrent.Map[string, models.ConnectionSpec] {
	return concurrent.NewMap[string, models.ConnectionSpec](concurrent.HashString)
}

// HostProvider 按名称或连接串提供主机
type HostProvider interface {
	GetHost(name string) (models.ConnectionSpec, bool)
	AddHost(name string, spec models.ConnectionSpec) bool
	DeleteHost(name string) bool
	ListHosts() map[string]models.ConnectionSpec
	Find(input string) (models.ConnectionSpec, error)
}
