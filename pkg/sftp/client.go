package sftp

import (
	"fmt"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Option 定义配置函数的类型
type Option func(*Client)

func WithThreadsPerFile(t int) Option {
	return func(c *Client) {
		if t > 0 {
			c.config.ThreadsPerFile = t
		}
	}
}

func WithChunkSize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.config.ChunkSize = size
		}
	}
}

func WithProgress(f ProgressFactory) Option {
	return func(c *Client) {
		c.progress = f
	}
}

// Client 包装了 sftp.Client
// 底层 ssh 连接由调用方持有，Close 不会关闭它
type Client struct {
	sftpClient *sftp.Client
	config     TransferConfig
	progress   ProgressFactory
}

// NewClient 在已建立的 SSH 连接上打开 sftp 子系统
func NewClient(conn *ssh.Client, opts ...Option) (*Client, error) {
	client, err := sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp subsystem: %w", err)
	}
	c := &Client{
		sftpClient: client,
		config:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SFTPClient 返回底层的 *sftp.Client 对象
func (c *Client) SFTPClient() *sftp.Client {
	return c.sftpClient
}

func (c *Client) Close() error {
	return c.sftpClient.Close()
}
