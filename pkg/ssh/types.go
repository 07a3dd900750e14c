package ssh

import (
	"context"
	"errors"
	"net"
)

// Dialer 定义网络连接行为的接口
// 用于统一 "直连" 和 "通过 SSH 网关连接" 的行为
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// State 是 Session 的生命周期状态
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MaxAuthAttempts 是密码认证的最大尝试次数
const MaxAuthAttempts = 3

var (
	ErrNoHost         = errors.New("no remote host configured")
	ErrAuthentication = errors.New("ssh authentication failed")
	ErrTransport      = errors.New("ssh connection failed")
	ErrInterrupted    = errors.New("interrupted by user")
)
