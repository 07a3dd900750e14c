package sftp

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPipeClient 通过内存管道连接一个进程内的 sftp 服务端
func newPipeClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	server, err := sftp.NewServer(struct {
		io.Reader
		io.WriteCloser
	}{serverRead, serverWrite})
	require.NoError(t, err)
	go server.Serve()

	client, err := sftp.NewClientPipe(clientRead, clientWrite)
	require.NoError(t, err)

	c := &Client{sftpClient: client, config: DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return c
}

func writeRemote(t *testing.T, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pkg.vsix")
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func TestDownload_Stream(t *testing.T) {
	content := bytes.Repeat([]byte("vsix"), 10000)
	remote := writeRemote(t, content)
	var transferred atomic.Int64
	c := newPipeClient(t, WithProgress(func(name string, size int64) (ProgressCallback, func()) {
		return func(n int) { transferred.Add(int64(n)) }, nil
	}))

	// 目标是目录时沿用远程文件名
	localDir := t.TempDir()
	require.NoError(t, c.Download(context.Background(), remote, localDir))

	got, err := os.ReadFile(filepath.Join(localDir, "pkg.vsix"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), transferred.Load())
}

func TestDownload_Chunked(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 1000)
	remote := writeRemote(t, content)
	c := newPipeClient(t, WithThreadsPerFile(4), WithChunkSize(1024))

	local := filepath.Join(t.TempDir(), "copy.vsix")
	require.NoError(t, c.Download(context.Background(), remote, local))

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownload_FailureRemovesPartialFile(t *testing.T) {
	remote := writeRemote(t, bytes.Repeat([]byte("x"), 4096))
	c := newPipeClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	local := filepath.Join(t.TempDir(), "copy.vsix")
	err := c.Download(ctx, remote, local)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, local)
}

func TestDownload_RemoteErrors(t *testing.T) {
	c := newPipeClient(t)
	local := filepath.Join(t.TempDir(), "copy.vsix")

	err := c.Download(context.Background(), filepath.Join(t.TempDir(), "missing"), local)
	assert.ErrorContains(t, err, "stat remote path failed")

	err = c.Download(context.Background(), t.TempDir(), local)
	assert.ErrorContains(t, err, "is a directory")
	assert.NoFileExists(t, local)
}
