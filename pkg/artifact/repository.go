package artifact

import (
	"context"
	"fmt"

	"github.com/wentf9/vem/pkg/github"
	"github.com/wentf9/vem/pkg/platform"
)

// LatestRelease 表示查询最新发布
const LatestRelease = "latest"

// Releases 是 GitHub releases 的查询端
type Releases interface {
	Latest(ctx context.Context, owner, repo string, prerelease bool) (github.Release, error)
	DownloadURL(owner, repo, tag, asset string) string
}

// Source 描述一个托管在代码仓库发布页上的扩展
type Source struct {
	Owner  string
	Repo   string
	Assets platform.Choices
}

// knownSources 是不在扩展市场上分发的扩展
var knownSources = map[string]Source{
	"ms-vscode.cpptools": {
		Owner: "Microsoft",
		Repo:  "vscode-cpptools",
		Assets: platform.Choices{
			Windows: "cpptools-win32.vsix",
			Darwin:  "cpptools-osx.vsix",
			Linux:   "cpptools-linux.vsix",
			Linux32: "cpptools-linux32.vsix",
		},
	},
}

// LookupSource 在固定表中查找扩展的仓库来源
func LookupSource(uniqueID string) (Source, bool) {
	s, ok := knownSources[uniqueID]
	return s, ok
}

// RepositoryArtifact 来自 GitHub 发布页, 没有依赖和扩展包成员
type RepositoryArtifact struct {
	uniqueID string
	owner    string
	repo     string
	asset    string
	release  string
	url      string
}

// NewRepositoryArtifact 构造并解析下载地址
// release 为 latest 时查询最新发布, 找不到匹配资源时地址为空
func NewRepositoryArtifact(ctx context.Context, releases Releases, uniqueID, owner, repo, asset, release string, prerelease bool) (*RepositoryArtifact, error) {
	if release == "" {
		release = LatestRelease
	}
	a := &RepositoryArtifact{
		uniqueID: uniqueID,
		owner:    owner,
		repo:     repo,
		asset:    asset,
		release:  release,
	}
	if release != LatestRelease {
		a.url = releases.DownloadURL(owner, repo, release, asset)
		return a, nil
	}

	latest, err := releases.Latest(ctx, owner, repo, prerelease)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest release of %s/%s: %w", owner, repo, err)
	}
	if found, ok := latest.Asset(func(name string) bool { return name == asset }); ok {
		a.url = found.BrowserDownloadURL
	}
	return a, nil
}

func (a *RepositoryArtifact) UniqueID() string        { return a.uniqueID }
func (a *RepositoryArtifact) DownloadURL() string     { return a.url }
func (a *RepositoryArtifact) Dependencies() []string  { return nil }
func (a *RepositoryArtifact) BundleMembers() []string { return nil }
func (a *RepositoryArtifact) FileName() string        { return fileName(a.uniqueID, a.Version()) }

// Version 只有指定了具体发布时才已知
func (a *RepositoryArtifact) Version() string {
	if a.release == LatestRelease {
		return ""
	}
	return a.release
}

// Asset 返回资源文件名
func (a *RepositoryArtifact) Asset() string {
	return a.asset
}
