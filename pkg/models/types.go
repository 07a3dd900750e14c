package models

import (
	"fmt"
	"net"
	"os/user"
	"regexp"
	"strconv"
)

const DefaultPort = 22

// [user[:password]@]host[:port]
var connectionStringRE = regexp.MustCompile(
	`^(?:(?P<username>[^:@]*?)(?::(?P<password>.*?))?@)?(?P<hostname>[^:/\s@]+)(?::(?P<port>\d+))?$`,
)

// ConnectionSpec 描述一个远程端点
// 构造后不再修改，所有"修改"操作都返回副本
type ConnectionSpec struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"` // 保存到配置文件时会被加密
}

// WithDefaults 填充未设置的用户名和端口
func (c ConnectionSpec) WithDefaults() ConnectionSpec {
	if c.Username == "" {
		c.Username = CurrentUser()
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

// Inherit 返回网关配置的副本，未设置的 username/password/port 取自 primary
// hostname 永远不会继承
func (c ConnectionSpec) Inherit(primary ConnectionSpec) ConnectionSpec {
	if c.Username == "" {
		c.Username = primary.Username
	}
	if c.Password == "" {
		c.Password = primary.Password
	}
	if c.Port == 0 {
		c.Port = primary.Port
	}
	return c
}

// WithPassword 返回替换了密码的副本
func (c ConnectionSpec) WithPassword(password string) ConnectionSpec {
	c.Password = password
	return c
}

// Addr 返回 host:port
func (c ConnectionSpec) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Hostname, strconv.Itoa(port))
}

// String 不包含密码
func (c ConnectionSpec) String() string {
	if c.Username == "" {
		return c.Addr()
	}
	return fmt.Sprintf("%s@%s", c.Username, c.Addr())
}

// ParseConnectionString 解析 [user[:password]@]host[:port]
// 未出现的字段保持零值，由调用方决定是否 WithDefaults
func ParseConnectionString(input string) (ConnectionSpec, error) {
	m := connectionStringRE.FindStringSubmatch(input)
	if m == nil {
		return ConnectionSpec{}, fmt.Errorf("invalid connection string '%s'", input)
	}
	spec := ConnectionSpec{
		Username: m[connectionStringRE.SubexpIndex("username")],
		Password: m[connectionStringRE.SubexpIndex("password")],
		Hostname: m[connectionStringRE.SubexpIndex("hostname")],
	}
	if p := m[connectionStringRE.SubexpIndex("port")]; p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return ConnectionSpec{}, fmt.Errorf("invalid port '%s': %w", p, err)
		}
		spec.Port = int(port)
	}
	return spec, nil
}

// CurrentUser 返回本地系统用户名，失败时返回空串
func CurrentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
