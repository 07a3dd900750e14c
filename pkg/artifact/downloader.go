package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/wentf9/vem/pkg/curl"
	"github.com/wentf9/vem/pkg/executor"
	"github.com/wentf9/vem/utils"
)

// Transport 在远端执行下载命令并把结果取回本地
type Transport interface {
	Run(ctx context.Context, command string) (*executor.Result, error)
	Get(ctx context.Context, remotePath, localPath string) error
}

// Downloader 遍历依赖图, 先依赖, 再扩展包成员, 最后是自身
type Downloader struct {
	transport Transport
	resolver  *Resolver
	logger    *slog.Logger
}

func NewDownloader(transport Transport, resolver *Resolver) *Downloader {
	return &Downloader{
		transport: transport,
		resolver:  resolver,
		logger:    utils.Logger.Logger,
	}
}

// WithLogger 替换日志输出
func (d *Downloader) WithLogger(l *slog.Logger) *Downloader {
	d.logger = l
	return d
}

// walk 记录一次顶层遍历中的状态
type walk struct {
	inProgress map[string]bool
	done       map[string]bool
}

func newWalk() *walk {
	return &walk{inProgress: make(map[string]bool), done: make(map[string]bool)}
}

// Download 下载 a 及其依赖图, 返回本地文件路径
// 子节点失败只记录日志, 返回的 error 只反映 a 自身
func (d *Downloader) Download(ctx context.Context, a Artifact, remoteDir, localDir string) ([]string, error) {
	return d.download(ctx, newWalk(), a, remoteDir, localDir)
}

// DownloadAll 解析并下载多个标识, 共享同一次遍历
func (d *Downloader) DownloadAll(ctx context.Context, ids []string, remoteDir, localDir string) ([]string, error) {
	w := newWalk()
	var paths []string
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		a, err := d.resolver.Resolve(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p, err := d.download(ctx, w, a, remoteDir, localDir)
		paths = append(paths, p...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return paths, errors.Join(errs...)
}

func (d *Downloader) download(ctx context.Context, w *walk, a Artifact, remoteDir, localDir string) ([]string, error) {
	id := a.UniqueID()
	// 同一标识的不同版本各自下载
	key := id
	if v := a.Version(); v != "" {
		key += "@" + v
	}
	if w.inProgress[key] {
		d.logger.Warn("dependency cycle detected, skipping", "id", id)
		return nil, fmt.Errorf("%s: %w", id, ErrCycle)
	}
	if w.done[key] {
		d.logger.Debug("already processed", "id", id)
		return nil, nil
	}
	w.inProgress[key] = true
	defer delete(w.inProgress, key)

	var paths []string
	if deps := a.Dependencies(); len(deps) > 0 {
		d.logger.Info(fmt.Sprintf("%s has %d extension dependencies", id, len(deps)))
		paths = append(paths, d.children(ctx, w, id, deps, remoteDir, localDir)...)
	}
	if members := a.BundleMembers(); len(members) > 0 {
		d.logger.Info(fmt.Sprintf("%s has %d extensions in extension pack", id, len(members)))
		paths = append(paths, d.children(ctx, w, id, members, remoteDir, localDir)...)
	}

	local, err := d.fetch(ctx, a, remoteDir, localDir)
	w.done[key] = true
	if err != nil {
		return paths, err
	}
	return append(paths, local), nil
}

func (d *Downloader) children(ctx context.Context, w *walk, parent string, ids []string, remoteDir, localDir string) []string {
	var paths []string
	for _, id := range ids {
		if ctx.Err() != nil {
			return paths
		}
		child, err := d.resolver.Resolve(ctx, id)
		if err != nil {
			d.logger.Error("failed to resolve", "id", id, "parent", parent, "error", err)
			continue
		}
		p, err := d.download(ctx, w, child, remoteDir, localDir)
		paths = append(paths, p...)
		if err != nil && !errors.Is(err, ErrCycle) {
			d.logger.Error("failed to download", "id", id, "parent", parent, "error", err)
		}
	}
	return paths
}

// fetch 在远端用 curl 下载, 成功后取回本地
func (d *Downloader) fetch(ctx context.Context, a Artifact, remoteDir, localDir string) (string, error) {
	id := a.UniqueID()
	url := a.DownloadURL()
	if url == "" {
		return "", fmt.Errorf("%s: %w", id, ErrUnresolved)
	}
	name := a.FileName()
	remotePath := path.Join(remoteDir, name)
	localPath := filepath.Join(localDir, name)

	d.logger.Info("downloading", "id", id, "version", a.Version())
	res, err := d.transport.Run(ctx, curl.Get(url, curl.WithOutput(remotePath)))
	if err != nil {
		return "", fmt.Errorf("failed to run download command for %s: %w", id, err)
	}
	if !res.OK() {
		d.logger.Error("failed to download "+name, "stderr", strings.TrimSpace(res.Stderr))
		return "", fmt.Errorf("%s exited with %d: %w", id, res.ExitCode, ErrRemoteCommand)
	}
	if err := d.transport.Get(ctx, remotePath, localPath); err != nil {
		return "", fmt.Errorf("failed to transfer %s: %w", name, err)
	}
	return localPath, nil
}
