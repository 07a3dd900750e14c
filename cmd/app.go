package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/google/uuid"
	cmdutils "github.com/wentf9/vem/cmd/utils"
	"github.com/wentf9/vem/global"
	"github.com/wentf9/vem/pkg/artifact"
	"github.com/wentf9/vem/pkg/config"
	"github.com/wentf9/vem/pkg/editor"
	"github.com/wentf9/vem/pkg/executor"
	"github.com/wentf9/vem/pkg/github"
	"github.com/wentf9/vem/pkg/marketplace"
	"github.com/wentf9/vem/pkg/models"
	"github.com/wentf9/vem/pkg/platform"
	"github.com/wentf9/vem/pkg/sftp"
	"github.com/wentf9/vem/pkg/ssh"
	"github.com/wentf9/vem/pkg/utils/file"
	"github.com/wentf9/vem/utils"
)

// App 汇集一次命令执行所需的组件, 所有远程请求共享同一个 Session
type App struct {
	Config   *config.Configuration
	Store    config.Store
	Hosts    config.HostProvider
	Session  *ssh.Session
	Local    *executor.LocalExecutor
	Machine  platform.Machine
	Market   *marketplace.Client
	Releases *github.Client
	Editors  *editor.Client

	opts *GlobalOptions
}

// NewApp 读取配置并按参数构造 Session, 此时尚未连接
func NewApp(ctx context.Context, o *GlobalOptions) (*App, error) {
	store, cfg, err := cmdutils.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}
	hosts := config.NewProvider(cfg)

	target := cmdutils.FirstNonEmpty(o.Host, cfg.DefaultHost)
	if target == "" {
		return nil, errors.New("未指定远程主机, 请使用 --host 或在配置文件中设置 default_host")
	}
	primary, err := hosts.Find(target)
	if err != nil {
		return nil, err
	}
	if o.Password != "" {
		primary = primary.WithPassword(o.Password)
	}

	var gateway *models.ConnectionSpec
	if gw := cmdutils.FirstNonEmpty(o.Gateway, cfg.Gateway); gw != "" {
		spec, err := hosts.Find(gw)
		if err != nil {
			return nil, fmt.Errorf("无效的网关: %w", err)
		}
		gateway = &spec
	}

	transfer := []sftp.Option{sftp.WithThreadsPerFile(cfg.Transfer.ThreadsPerFile)}
	if global.IsTerminal {
		transfer = append(transfer, sftp.WithProgress(sftp.BarProgress(os.Stderr)))
	}
	session := ssh.NewSession(
		ssh.WithKeepAlive(cfg.KeepAlive),
		ssh.WithTransferOptions(transfer...),
	)
	session.Apply(primary, gateway)

	local := executor.NewLocalExecutor()
	machine := platform.Detect(ctx, local)
	releases := github.NewClient(session)
	utils.Logger.Debug("local machine", "os", machine.OS, "arch", machine.ArchSize, "package_manager", machine.PackageManager)

	return &App{
		Config:   cfg,
		Store:    store,
		Hosts:    hosts,
		Session:  session,
		Local:    local,
		Machine:  machine,
		Market:   marketplace.NewClient(session),
		Releases: releases,
		Editors:  editor.NewClient(session, releases, machine),
		opts:     o,
	}, nil
}

// Workspace 在远端创建本次执行专用的目录, 并确保本地输出目录存在
func (a *App) Workspace(ctx context.Context) (remoteDir, localDir string, err error) {
	localDir, err = file.EnsureDir(cmdutils.FirstNonEmpty(a.opts.Output, a.Config.OutputDir, config.DefaultOutputDir))
	if err != nil {
		return "", "", err
	}
	base := cmdutils.FirstNonEmpty(a.opts.RemoteDir, a.Config.RemoteDir, config.DefaultRemoteDir)
	remoteDir = path.Join(base, "vem-"+uuid.NewString())
	if !a.Session.Mkdir(ctx, remoteDir) {
		return "", "", fmt.Errorf("无法在远端创建目录 %s", remoteDir)
	}
	return remoteDir, localDir, nil
}

// Close 删除远端目录并断开连接
func (a *App) Close(ctx context.Context) {
	a.Session.CleanupCreatedDirs(ctx)
	if err := a.Session.Close(); err != nil {
		utils.Logger.Debug("failed to close session", "error", err)
	}
}

// Fetched 区分下载得到的编辑器安装包和扩展包
type Fetched struct {
	Editors    map[string]string
	Extensions []string
}

// NewResolver 创建本次执行使用的扩展解析器
func (a *App) NewResolver(opts ...artifact.ResolverOption) *artifact.Resolver {
	return artifact.NewResolver(a.Market, a.Releases, a.Machine, opts...)
}

// Fetch 下载目标: 编辑器名称解析为编辑器安装包, 其余按扩展标识处理
func (a *App) Fetch(ctx context.Context, resolver *artifact.Resolver, targets []string, remoteDir, localDir string) (Fetched, error) {
	downloader := artifact.NewDownloader(a.Session, resolver)

	fetched := Fetched{Editors: make(map[string]string)}
	var ids []string
	var errs []error
	for _, t := range targets {
		info, ok := editor.Lookup(t)
		if !ok {
			ids = append(ids, t)
			continue
		}
		e, err := a.Editors.Resolve(ctx, info)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", info.Name, err))
			continue
		}
		paths, err := downloader.Download(ctx, e, remoteDir, localDir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(paths) > 0 {
			fetched.Editors[info.Key] = paths[len(paths)-1]
		}
	}

	if len(ids) > 0 {
		paths, err := downloader.DownloadAll(ctx, ids, remoteDir, localDir)
		fetched.Extensions = paths
		if err != nil {
			errs = append(errs, err)
		}
	}
	return fetched, errors.Join(errs...)
}
