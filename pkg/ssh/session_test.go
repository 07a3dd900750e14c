package ssh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wentf9/vem/pkg/models"
)

// exitRecorder 记录退出码而不终止测试进程
type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func (e *exitRecorder) Codes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.codes...)
}

// scriptedPasswords 依次返回给定的密码
func scriptedPasswords(passwords ...string) (CredentialProvider, *int) {
	calls := 0
	return PasswordFunc(func(ctx context.Context, spec models.ConnectionSpec) (string, error) {
		calls++
		if calls > len(passwords) {
			return "", errors.New("no more passwords")
		}
		return passwords[calls-1], nil
	}), &calls
}

func newTestSession(t *testing.T, logs *bytes.Buffer, opts ...Option) (*Session, *exitRecorder) {
	t.Helper()
	rec := &exitRecorder{}
	if logs == nil {
		logs = &bytes.Buffer{}
	}
	base := []Option{
		WithExitFunc(rec.exit),
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
	}
	s := NewSession(append(base, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s, rec
}

func TestSession_Apply(t *testing.T) {
	s, _ := newTestSession(t, nil)
	primary := models.ConnectionSpec{Hostname: "target", Username: "alice", Port: 2222, Password: "pw"}

	s.Apply(primary, &models.ConnectionSpec{Hostname: "jump"})
	gw, ok := s.Gateway()
	require.True(t, ok)
	assert.Equal(t, models.ConnectionSpec{Hostname: "jump", Username: "alice", Port: 2222, Password: "pw"}, gw)
	assert.Equal(t, primary, s.Primary())

	s.Apply(primary, nil)
	_, ok = s.Gateway()
	assert.False(t, ok)
}

func TestSession_ConnectSucceedsOnThirdAttempt(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	creds, calls := scriptedPasswords("bad1", "bad2", "good")
	s, rec := newTestSession(t, nil, WithCredentials(creds))
	s.Apply(srv.spec(), nil)

	err := s.Connect(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, rec.Codes())
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 3, srv.AuthAttempts())
	assert.Equal(t, "good", s.Primary().Password)
}

func TestSession_ConnectExitsAfterThreeFailures(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	creds, calls := scriptedPasswords("bad1", "bad2", "bad3", "good")
	s, rec := newTestSession(t, nil, WithCredentials(creds))
	s.Apply(srv.spec(), nil)

	err := s.Connect(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, []int{1}, rec.Codes())
	assert.Equal(t, 3, *calls)
	assert.False(t, s.IsConnected())
}

func TestSession_ConnectTransportFailureIsFatal(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	spec := srv.spec()
	srv.listener.Close()

	creds, calls := scriptedPasswords("good", "good", "good")
	s, rec := newTestSession(t, nil, WithCredentials(creds))
	s.Apply(spec, nil)

	err := s.Connect(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, []int{1}, rec.Codes())
	assert.Equal(t, 1, *calls)
}

func TestSession_ConnectIsNoopWhenConnected(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)

	require.NoError(t, s.Connect(context.Background(), false))
	require.NoError(t, s.Connect(context.Background(), false))
	assert.Equal(t, 1, srv.Connections())

	require.NoError(t, s.Connect(context.Background(), true))
	assert.Equal(t, 2, srv.Connections())
	assert.True(t, s.IsConnected())
}

func TestSession_ConnectWithoutHost(t *testing.T) {
	s, rec := newTestSession(t, nil)
	err := s.Connect(context.Background(), false)
	assert.ErrorIs(t, err, ErrNoHost)
	assert.Empty(t, rec.Codes())
}

func TestSession_RunConnectsLazily(t *testing.T) {
	srv := startTestServer(t, "good", func(cmd string) (string, string, uint32) {
		return "out", "err", 3
	})
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)
	require.Equal(t, StateUnconnected, s.State())

	res, err := s.Run(context.Background(), "do-something")
	require.NoError(t, err)
	assert.True(t, s.IsConnected())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.False(t, res.OK())
	assert.Equal(t, []string{"do-something"}, srv.Commands())
}

func TestSession_RunEcho(t *testing.T) {
	srv := startTestServer(t, "good", func(cmd string) (string, string, uint32) {
		return "hello\n", "", 0
	})
	var echo bytes.Buffer
	s, _ := newTestSession(t, nil, WithEcho(&echo))
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)

	res, err := s.Run(context.Background(), "greet")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "hello\n", echo.String())
}

func TestSession_MkdirTracksAndCleanupRemoves(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)
	ctx := context.Background()

	require.True(t, s.Mkdir(ctx, "/tmp/vem-stage"))
	require.True(t, s.Mkdir(ctx, "/tmp/vem-stage"))
	assert.Equal(t, []string{"/tmp/vem-stage"}, s.CreatedDirs())

	s.CleanupCreatedDirs(ctx)

	var removals []string
	for _, cmd := range srv.Commands() {
		if strings.HasPrefix(cmd, "rm ") {
			removals = append(removals, cmd)
		}
	}
	assert.Equal(t, []string{"rm -rf /tmp/vem-stage"}, removals)
	assert.Empty(t, s.CreatedDirs())
}

func TestSession_MkdirFailureIsNotTracked(t *testing.T) {
	srv := startTestServer(t, "good", func(cmd string) (string, string, uint32) {
		return "", "permission denied", 1
	})
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)

	assert.False(t, s.Mkdir(context.Background(), "/root/forbidden"))
	assert.Empty(t, s.CreatedDirs())
}

func TestSession_CleanupContinuesAfterFailure(t *testing.T) {
	srv := startTestServer(t, "good", func(cmd string) (string, string, uint32) {
		if cmd == "rm -rf /tmp/a" {
			return "", "busy", 1
		}
		return "", "", 0
	})
	var logs bytes.Buffer
	s, _ := newTestSession(t, &logs)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)
	ctx := context.Background()

	require.True(t, s.Mkdir(ctx, "/tmp/a"))
	require.True(t, s.Mkdir(ctx, "/tmp/b"))
	s.CleanupCreatedDirs(ctx)

	assert.Contains(t, srv.Commands(), "rm -rf /tmp/a")
	assert.Contains(t, srv.Commands(), "rm -rf /tmp/b")
	assert.Equal(t, []string{"/tmp/a"}, s.CreatedDirs())
	assert.Contains(t, logs.String(), "failed to remove remote directory")
}

func TestSession_CleanupWhenDisconnectedDoesNotReconnect(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	var logs bytes.Buffer
	s, _ := newTestSession(t, &logs)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)
	ctx := context.Background()

	require.True(t, s.Mkdir(ctx, "/tmp/one"))
	require.True(t, s.Mkdir(ctx, "/tmp/two"))
	require.NoError(t, s.Close())

	s.CleanupCreatedDirs(ctx)

	assert.Equal(t, 1, srv.Connections())
	assert.Equal(t, StateClosed, s.State())
	assert.Contains(t, logs.String(), "/tmp/one, /tmp/two")
	assert.Contains(t, logs.String(), "remove them manually")
}

func TestSession_CleanupWithoutDirsIsNoop(t *testing.T) {
	var logs bytes.Buffer
	s, _ := newTestSession(t, &logs)
	s.CleanupCreatedDirs(context.Background())
	assert.Empty(t, logs.String())
}

func TestSession_CloseIsSafe(t *testing.T) {
	s, _ := newTestSession(t, nil)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_RunAfterCloseReconnects(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)
	ctx := context.Background()

	_, err := s.Run(ctx, "true")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Run(ctx, "true")
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Connections())
}

func TestSession_Get(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)

	remoteDir := t.TempDir()
	remote := filepath.Join(remoteDir, "pkg.vsix")
	content := bytes.Repeat([]byte("vsix"), 20000)
	require.NoError(t, os.WriteFile(remote, content, 0o644))

	local := filepath.Join(t.TempDir(), "copy.vsix")
	require.NoError(t, s.Get(context.Background(), remote, local))

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSession_GetMissingFile(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	s, _ := newTestSession(t, nil)
	spec := srv.spec()
	spec.Password = "good"
	s.Apply(spec, nil)

	err := s.Get(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.Error(t, err)
}

func TestSession_ConnectThroughGateway(t *testing.T) {
	target := startTestServer(t, "shared", func(cmd string) (string, string, uint32) {
		return "from target", "", 0
	})
	gateway := startTestServer(t, "shared", nil)

	s, rec := newTestSession(t, nil)
	primary := target.spec()
	primary.Password = "shared"
	gwSpec := gateway.spec()
	gwSpec.Username = ""
	s.Apply(primary, &gwSpec)

	res, err := s.Run(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, "from target", res.Stdout)
	assert.Empty(t, rec.Codes())

	assert.Equal(t, []string{target.listener.Addr().String()}, gateway.Forwards())
	assert.Empty(t, gateway.Commands())
	assert.Equal(t, []string{"hostname"}, target.Commands())
}

func TestSession_ApplyFillsDefaultUser(t *testing.T) {
	srv := startTestServer(t, "good", nil)
	addr := srv.listener.Addr().String()
	spec, err := models.ParseConnectionString(addr)
	require.NoError(t, err)
	require.Empty(t, spec.Username)

	var seen []string
	creds := PasswordFunc(func(ctx context.Context, spec models.ConnectionSpec) (string, error) {
		seen = append(seen, spec.Username)
		return "good", nil
	})
	s, rec := newTestSession(t, nil, WithCredentials(creds))
	s.Apply(spec, &models.ConnectionSpec{Hostname: "jump"})

	assert.Equal(t, models.CurrentUser(), s.Primary().Username)
	gw, ok := s.Gateway()
	require.True(t, ok)
	assert.Equal(t, models.CurrentUser(), gw.Username)

	s.Apply(spec, nil)
	_, err = s.Run(context.Background(), "true")
	require.NoError(t, err)
	assert.Empty(t, rec.Codes())
	assert.Equal(t, []string{models.CurrentUser()}, seen)
	assert.Equal(t, []string{models.CurrentUser()}, srv.Users())
}

func TestSession_GatewaySharesPromptedPassword(t *testing.T) {
	target := startTestServer(t, "shared", nil)
	gateway := startTestServer(t, "shared", nil)

	var prompted []string
	creds := PasswordFunc(func(ctx context.Context, spec models.ConnectionSpec) (string, error) {
		prompted = append(prompted, spec.Addr())
		return "shared", nil
	})
	s, rec := newTestSession(t, nil, WithCredentials(creds))
	gwSpec := gateway.spec()
	s.Apply(target.spec(), &gwSpec)

	_, err := s.Run(context.Background(), "true")
	require.NoError(t, err)
	assert.Empty(t, rec.Codes())
	assert.Equal(t, []string{target.listener.Addr().String()}, prompted)
	assert.Equal(t, 1, gateway.Connections())
	assert.Equal(t, 1, target.Connections())

	// 强制重连沿用已验证的密码
	require.NoError(t, s.Connect(context.Background(), true))
	assert.Len(t, prompted, 1)
}

func TestSession_GatewayOwnPasswordIsNotShared(t *testing.T) {
	target := startTestServer(t, "target-pw", nil)
	gateway := startTestServer(t, "gateway-pw", nil)

	creds, calls := scriptedPasswords("target-pw")
	s, rec := newTestSession(t, nil, WithCredentials(creds))
	gwSpec := gateway.spec()
	gwSpec.Password = "gateway-pw"
	s.Apply(target.spec(), &gwSpec)

	require.NoError(t, s.Connect(context.Background(), false))
	assert.Empty(t, rec.Codes())
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, gateway.AuthAttempts())
	gw, _ := s.Gateway()
	assert.Equal(t, "gateway-pw", gw.Password)
	assert.Equal(t, "target-pw", s.Primary().Password)
}

func TestSession_ConnectWithReplacesTarget(t *testing.T) {
	first := startTestServer(t, "one", nil)
	second := startTestServer(t, "two", nil)
	s, _ := newTestSession(t, nil)
	spec := first.spec()
	spec.Password = "one"
	s.Apply(spec, nil)
	require.NoError(t, s.Connect(context.Background(), false))

	next := second.spec()
	next.Password = "two"
	require.NoError(t, s.ConnectWith(context.Background(), next, nil))
	assert.True(t, s.IsConnected())
	assert.Equal(t, next, s.Primary())

	_, err := s.Run(context.Background(), "whoami")
	require.NoError(t, err)
	assert.Empty(t, first.Commands())
	assert.Equal(t, []string{"whoami"}, second.Commands())
}
