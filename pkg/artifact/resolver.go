package artifact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wentf9/vem/pkg/marketplace"
	"github.com/wentf9/vem/pkg/platform"
	"github.com/wentf9/vem/utils"
)

// Registry 是扩展市场的查询端
type Registry interface {
	QueryByIdentifier(ctx context.Context, uniqueID string) (marketplace.Extension, bool, error)
}

// Resolver 把标识解析为 Artifact, 结果在一次命令执行内按 uniqueId 缓存
// 仓库来源的版本即发布标签, 不同标签分别缓存
type Resolver struct {
	registry     Registry
	releases     Releases
	machine      platform.Machine
	registryOnly bool
	prerelease   bool
	logger       *slog.Logger
	cache        map[string]Artifact
}

type ResolverOption func(*Resolver)

// WithRegistryOnly 忽略固定的仓库来源表
func WithRegistryOnly(on bool) ResolverOption {
	return func(r *Resolver) {
		r.registryOnly = on
	}
}

// WithPrerelease 查询最新发布时包含预发布版本
func WithPrerelease(on bool) ResolverOption {
	return func(r *Resolver) {
		r.prerelease = on
	}
}

func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

func NewResolver(registry Registry, releases Releases, machine platform.Machine, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry: registry,
		releases: releases,
		machine:  machine,
		logger:   utils.Logger.Logger,
		cache:    make(map[string]Artifact),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve 先查固定仓库表, 再查扩展市场
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Artifact, error) {
	id, err := ParseID(identifier)
	if err != nil {
		return nil, err
	}
	uniqueID := id.UniqueID()
	src, fromRepo := LookupSource(uniqueID)
	fromRepo = fromRepo && !r.registryOnly

	key := uniqueID
	if fromRepo {
		key = id.String()
	}
	if a, ok := r.cache[key]; ok {
		return a, nil
	}

	var a Artifact
	if fromRepo {
		a, err = r.fromRepository(ctx, uniqueID, src, id.Version)
	} else {
		a, err = r.fromRegistry(ctx, uniqueID, id.Version)
	}
	if err != nil {
		return nil, err
	}
	r.cache[key] = a
	return a, nil
}

func (r *Resolver) fromRepository(ctx context.Context, uniqueID string, src Source, release string) (Artifact, error) {
	asset := r.machine.Query(src.Assets)
	if asset == "" {
		return nil, fmt.Errorf("%s has no release asset for %s: %w", uniqueID, r.machine.OS, ErrUnresolved)
	}
	a, err := NewRepositoryArtifact(ctx, r.releases, uniqueID, src.Owner, src.Repo, asset, release, r.prerelease)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved from repository", "id", uniqueID, "url", a.DownloadURL())
	return a, nil
}

func (r *Resolver) fromRegistry(ctx context.Context, uniqueID, version string) (Artifact, error) {
	ext, ok, err := r.registry.QueryByIdentifier(ctx, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", uniqueID, err)
	}
	if !ok {
		return nil, fmt.Errorf("extension %s not found in marketplace: %w", uniqueID, ErrUnresolved)
	}
	a := NewRegistryArtifact(ext)
	if version != "" && version != a.Version() {
		r.logger.Warn("marketplace only serves the latest version", "id", uniqueID, "requested", version, "latest", a.Version())
	}
	r.logger.Debug("resolved from marketplace", "id", uniqueID, "version", a.Version())
	return a, nil
}
