package ssh

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wentf9/vem/pkg/executor"
	"github.com/wentf9/vem/pkg/models"
	"github.com/wentf9/vem/pkg/sftp"
	"github.com/wentf9/vem/pkg/utils/shell"
	"github.com/wentf9/vem/utils"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"
)

// Option 定义配置函数的类型
type Option func(*Session)

// WithCredentials 设置缺少密码时的密码来源
func WithCredentials(p CredentialProvider) Option {
	return func(s *Session) {
		s.credentials = p
	}
}

// WithExitFunc 替换致命错误时的退出函数 (默认 os.Exit)
func WithExitFunc(exit func(code int)) Option {
	return func(s *Session) {
		s.exit = exit
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithDialer 替换直连时使用的拨号器
func WithDialer(d Dialer) Option {
	return func(s *Session) {
		s.dialer = d
	}
}

// WithKeepAlive 连接建立后按 interval 发送心跳, 0 表示关闭
func WithKeepAlive(interval time.Duration) Option {
	return func(s *Session) {
		s.keepAlive = interval
	}
}

// WithEcho 把远程命令的输出同时写到 w
func WithEcho(w io.Writer) Option {
	return func(s *Session) {
		s.echo = w
	}
}

// WithTransferOptions 设置 Get 使用的 sftp 选项
func WithTransferOptions(opts ...sftp.Option) Option {
	return func(s *Session) {
		s.transferOpts = append(s.transferOpts, opts...)
	}
}

// Session 管理到远程主机的一条 SSH 连接 (可经由网关)
// 它记录自己在远端创建的目录，并在清理时删除它们
// Session 不支持多个逻辑操作并发使用
type Session struct {
	primary models.ConnectionSpec
	gateway *models.ConnectionSpec
	// 网关未设置自己的密码, 与 primary 共用
	sharedPassword bool

	credentials  CredentialProvider
	exit         func(code int)
	logger       *slog.Logger
	dialer       Dialer
	keepAlive    time.Duration
	echo         io.Writer
	transferOpts []sftp.Option

	mu            sync.Mutex
	state         State
	client        *ssh.Client
	gatewayClient *ssh.Client
	stopKeepAlive chan struct{}
	createdDirs   []string

	// 合并并发的连接请求
	sf singleflight.Group
}

// NewSession 创建一个未连接的 Session
func NewSession(opts ...Option) *Session {
	s := &Session{
		credentials: NewTerminalPrompt(),
		exit:        os.Exit,
		logger:      utils.Logger.Logger,
		dialer:      &net.Dialer{Timeout: 10 * time.Second},
		state:       StateUnconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply 保存连接描述, primary 未设置的用户名和端口取默认值
// 网关未设置的 username/password/port 继承自 primary
func (s *Session) Apply(primary models.ConnectionSpec, gateway *models.ConnectionSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	primary = primary.WithDefaults()
	s.primary = primary
	s.gateway = nil
	s.sharedPassword = false
	if gateway != nil {
		gw := gateway.Inherit(primary)
		s.gateway = &gw
		s.sharedPassword = gateway.Password == ""
	}
}

// Primary 返回当前目标主机的描述
func (s *Session) Primary() models.ConnectionSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primary
}

// Gateway 返回网关描述, 没有网关时 ok 为 false
func (s *Session) Gateway() (models.ConnectionSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gateway == nil {
		return models.ConnectionSpec{}, false
	}
	return *s.gateway, true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// CreatedDirs 返回本 Session 在远端创建的目录 (按创建顺序)
func (s *Session) CreatedDirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.createdDirs)
}

// Connect 使用 Apply 保存的连接描述建立连接; 已连接且 force 为 false 时什么都不做
// 认证最多尝试 MaxAuthAttempts 次, 之后以及任何传输错误都会终止进程
func (s *Session) Connect(ctx context.Context, force bool) error {
	if !force && s.IsConnected() {
		return nil
	}
	_, err, _ := s.sf.Do("connect", func() (any, error) {
		return nil, s.connect(ctx)
	})
	return err
}

// ConnectWith 替换连接描述后重新连接
func (s *Session) ConnectWith(ctx context.Context, primary models.ConnectionSpec, gateway *models.ConnectionSpec) error {
	s.Apply(primary, gateway)
	return s.Connect(ctx, true)
}

func (s *Session) connect(ctx context.Context) error {
	s.mu.Lock()
	s.closeLocked()
	s.state = StateConnecting
	primary := s.primary
	shared := s.sharedPassword
	var gateway *models.ConnectionSpec
	if s.gateway != nil {
		gw := *s.gateway
		gateway = &gw
	}
	s.mu.Unlock()

	if primary.Hostname == "" {
		s.setState(StateUnconnected)
		return ErrNoHost
	}

	dialer := s.dialer
	var gatewayClient *ssh.Client
	if gateway != nil {
		// 共用密码时只询问一次 primary 的密码
		if shared && primary.Password == "" {
			password, err := s.credentials.Password(ctx, primary)
			if err != nil {
				return s.fatal(ErrAuthentication, err, "host", primary.String())
			}
			primary = primary.WithPassword(password)
			*gateway = gateway.WithPassword(password)
		}
		client, err := s.authenticate(ctx, gateway, s.dialer)
		if err != nil {
			return err
		}
		gatewayClient = client
		dialer = &SSHProxyDialer{Client: client}
		s.logger.Debug("gateway connected", "gateway", gateway.String())
	}

	client, err := s.authenticate(ctx, &primary, dialer)
	if err != nil {
		if gatewayClient != nil {
			gatewayClient.Close()
		}
		return err
	}

	stop := make(chan struct{})
	s.mu.Lock()
	// 保留认证成功的密码，强制重连时无需再次输入
	s.primary = primary
	if gateway != nil {
		s.gateway = gateway
	}
	s.client = client
	s.gatewayClient = gatewayClient
	s.stopKeepAlive = stop
	s.state = StateConnected
	s.mu.Unlock()

	s.logger.Info("connected", "host", primary.String())
	if s.keepAlive > 0 {
		StartKeepAlive(client, s.keepAlive, stop, func(err error) {
			s.logger.Warn("ssh keepalive failed, connection lost", "host", primary.String(), "error", err)
			s.markLost(client)
		})
	}
	return nil
}

// authenticate 对 spec 进行密码认证, 成功时 spec.Password 为可用的密码
func (s *Session) authenticate(ctx context.Context, spec *models.ConnectionSpec, dialer Dialer) (*ssh.Client, error) {
	for attempt := 1; attempt <= MaxAuthAttempts; attempt++ {
		if spec.Password == "" {
			password, err := s.credentials.Password(ctx, *spec)
			if err != nil {
				return nil, s.fatal(ErrAuthentication, err, "host", spec.String())
			}
			*spec = spec.WithPassword(password)
		}

		client, err := dial(ctx, dialer, *spec)
		if err == nil {
			return client, nil
		}
		if !isAuthError(err) {
			return nil, s.fatal(ErrTransport, err, "host", spec.String())
		}
		s.logger.Warn("authentication failed", "host", spec.String(), "remaining", MaxAuthAttempts-attempt)
		*spec = spec.WithPassword("")
	}
	return nil, s.fatal(ErrAuthentication, nil, "host", spec.String(), "attempts", MaxAuthAttempts)
}

// fatal 记录错误并通过 exit 终止进程
// 测试替换 exit 后调用方会拿到返回的 error
func (s *Session) fatal(kind error, cause error, args ...any) error {
	s.setState(StateUnconnected)
	if cause != nil {
		args = append(args, "error", cause)
	}
	s.logger.Error(kind.Error(), args...)
	s.exit(1)
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

func dial(ctx context.Context, dialer Dialer, spec models.ConnectionSpec) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            spec.Username,
		Auth:            authMethods(spec.Password),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: 接入 known_hosts 检查
		Timeout:         15 * time.Second,
	}
	addr := spec.Addr()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial '%s': %w", addr, err)
	}
	// 使用 NewClientConn 接管底层的 conn
	ncc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(ncc, chans, reqs), nil
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// ensureConnected 实现按需连接
func (s *Session) ensureConnected(ctx context.Context) (*ssh.Client, error) {
	if err := s.Connect(ctx, false); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrTransport
	}
	return s.client, nil
}

// Run 在远程主机上执行 shell 命令
func (s *Session) Run(ctx context.Context, command string) (*executor.Result, error) {
	client, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	s.logger.Debug("running remote command", "command", command)
	return s.runSession(ctx, session, command)
}

// Get 把远程文件复制到本地
func (s *Session) Get(ctx context.Context, remotePath, localPath string) error {
	client, err := s.ensureConnected(ctx)
	if err != nil {
		return err
	}
	sc, err := sftp.NewClient(client, s.transferOpts...)
	if err != nil {
		return err
	}
	defer sc.Close()

	s.logger.Debug("retrieving remote file", "remote", remotePath, "local", localPath)
	return sc.Download(ctx, remotePath, localPath)
}

// Mkdir 在远端创建目录 (含父目录), 成功后记录该目录以便清理
func (s *Session) Mkdir(ctx context.Context, path string) bool {
	res, err := s.Run(ctx, shell.Join("mkdir", "-p", path))
	if err != nil {
		s.logger.Error("failed to create remote directory", "path", path, "error", err)
		return false
	}
	if !res.OK() {
		s.logger.Error("failed to create remote directory", "path", path, "stderr", strings.TrimSpace(res.Stderr))
		return false
	}

	s.mu.Lock()
	if !slices.Contains(s.createdDirs, path) {
		s.createdDirs = append(s.createdDirs, path)
	}
	s.mu.Unlock()
	return true
}

// Rmdir 递归删除远程路径, force 时忽略不存在的文件
func (s *Session) Rmdir(ctx context.Context, path string, force bool) bool {
	flag := "-r"
	if force {
		flag = "-rf"
	}
	res, err := s.Run(ctx, shell.Join("rm", flag, path))
	if err != nil {
		s.logger.Debug("remote remove failed", "path", path, "error", err)
		return false
	}
	if !res.OK() {
		s.logger.Debug("remote remove failed", "path", path, "stderr", strings.TrimSpace(res.Stderr))
		return false
	}

	s.mu.Lock()
	s.createdDirs = slices.DeleteFunc(s.createdDirs, func(d string) bool { return d == path })
	s.mu.Unlock()
	return true
}

// CleanupCreatedDirs 删除本 Session 创建的所有远程目录
// 连接已断开时只记录这些目录，不会重新连接
func (s *Session) CleanupCreatedDirs(ctx context.Context) {
	dirs := s.CreatedDirs()
	if len(dirs) == 0 {
		return
	}
	if !s.IsConnected() {
		s.logger.Error("connection was lost, unable to remove remote directories, you may need to remove them manually",
			"host", s.Primary().String(), "dirs", strings.Join(dirs, ", "))
		return
	}
	for _, dir := range dirs {
		if !s.Rmdir(ctx, dir, true) {
			s.logger.Error("failed to remove remote directory", "path", dir)
		}
	}
}

// Close 关闭连接; 对未连接或已关闭的 Session 调用是安全的
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.closeLocked()
	s.state = StateClosed
	return err
}

func (s *Session) closeLocked() error {
	if s.stopKeepAlive != nil {
		close(s.stopKeepAlive)
		s.stopKeepAlive = nil
	}
	var err error
	if s.client != nil {
		err = s.client.Close()
		s.client = nil
	}
	if s.gatewayClient != nil {
		s.gatewayClient.Close()
		s.gatewayClient = nil
	}
	if s.state == StateConnected {
		s.state = StateUnconnected
	}
	return err
}

// markLost 在心跳失败后把 Session 标记为未连接
func (s *Session) markLost(client *ssh.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != client {
		return
	}
	s.client = nil
	if s.gatewayClient != nil {
		s.gatewayClient.Close()
		s.gatewayClient = nil
	}
	s.stopKeepAlive = nil
	s.state = StateUnconnected
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
