package config

import (
	"fmt"

	"github.com/wentf9/vem/pkg/models"
	"github.com/wentf9/vem/pkg/utils/concurrent"
)

type Provider struct {
	cfg         *Configuration
	lookupIndex *concurrent.Map[string, string]
}

func NewProvider(cfg *Configuration) HostProvider {
	if cfg.Hosts == nil {
		cfg.Hosts = newHosts()
	}
	provider := Provider{
		cfg:         cfg,
		lookupIndex: concurrent.NewMap[string, string](concurrent.HashString),
	}
	provider.init()
	return provider
}

// add 将主机名称和 user@host:port 加入索引
func (cp Provider) add(name string) {
	spec, ok := cp.GetHost(name)
	if !ok {
		return
	}
	cp.lookupIndex.Set(name, name)
	if spec.Username != "" {
		cp.lookupIndex.SetIfAbsent(spec.String(), name)
	}
}

// Find 匹配用户输入: 主机名称, 或 [user[:password]@]host[:port]
// 连接串命中已保存的主机时使用保存的密码, 除非连接串自带密码
func (cp Provider) Find(input string) (models.ConnectionSpec, error) {
	if name, ok := cp.lookupIndex.Get(input); ok {
		if spec, ok := cp.GetHost(name); ok {
			return spec, nil
		}
		return models.ConnectionSpec{}, fmt.Errorf("host in index but not found for input: %s", input)
	}

	parsed, err := models.ParseConnectionString(input)
	if err != nil {
		return models.ConnectionSpec{}, err
	}
	if parsed.Username == "" {
		return parsed, nil
	}
	if name, ok := cp.lookupIndex.Get(parsed.WithPassword("").String()); ok {
		if stored, ok := cp.GetHost(name); ok {
			if parsed.Password != "" {
				stored = stored.WithPassword(parsed.Password)
			}
			return stored, nil
		}
	}
	return parsed, nil
}

func (cp Provider) GetHost(name string) (models.ConnectionSpec, bool) {
	return cp.cfg.Hosts.Get(name)
}

// AddHost 名称已存在时不覆盖并返回 false
func (cp Provider) AddHost(name string, spec models.ConnectionSpec) bool {
	if _, added := cp.cfg.Hosts.SetIfAbsent(name, spec); !added {
		return false
	}
	cp.add(name)
	return true
}

func (cp Provider) DeleteHost(name string) bool {
	if _, ok := cp.cfg.Hosts.Pop(name); !ok {
		return false
	}
	for _, key := range cp.lookupIndex.Keys() {
		if val, ok := cp.lookupIndex.Get(key); ok && val == name {
			cp.lookupIndex.Pop(key)
		}
	}
	if cp.cfg.DefaultHost == name {
		cp.cfg.DefaultHost = ""
	}
	return true
}

func (cp Provider) ListHosts() map[string]models.ConnectionSpec {
	return cp.cfg.Hosts.Snapshot()
}

func (cp Provider) init() {
	for _, name := range cp.cfg.Hosts.Keys() {
		cp.add(name)
	}
}
