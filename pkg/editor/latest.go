package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wentf9/vem/pkg/artifact"
	"github.com/wentf9/vem/pkg/curl"
	"github.com/wentf9/vem/pkg/executor"
	"github.com/wentf9/vem/pkg/platform"
)

const DefaultUpdateURL = "https://update.code.visualstudio.com/api/update"

// Update 是更新接口返回的最新版本信息
type Update struct {
	URL            string `json:"url"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	ProductVersion string `json:"productVersion"`
	Hash           string `json:"hash"`
	Timestamp      int64  `json:"timestamp"`
	SHA256Hash     string `json:"sha256hash"`
}

// distros 是更新接口中各平台的发行包名称
var distros = platform.Choices{
	Windows: "win32-x64",
	Win32:   "win32",
	Darwin:  "darwin",
	Linux:   "linux-x64",
	Linux32: "linux-ia32",
	RPM:     "linux-rpm-x64",
	RPM32:   "linux-rpm-ia32",
	Deb:     "linux-deb-x64",
	Deb32:   "linux-deb-ia32",
}

// Client 通过远程主机查询编辑器的最新版本
type Client struct {
	runner    executor.Executor
	releases  artifact.Releases
	machine   platform.Machine
	updateURL string
}

func NewClient(runner executor.Executor, releases artifact.Releases, machine platform.Machine) *Client {
	return &Client{
		runner:    runner,
		releases:  releases,
		machine:   machine,
		updateURL: DefaultUpdateURL,
	}
}

// UpdateURL 返回编辑器在更新接口上的查询地址
func (c *Client) UpdateURL(info Info) string {
	return fmt.Sprintf("%s/%s/%s/latest", c.updateURL, c.machine.Query(distros), info.Alias)
}

// Latest 查询编辑器的最新版本
func (c *Client) Latest(ctx context.Context, info Info) (Update, error) {
	if info.GitHub {
		return c.latestRelease(ctx, info)
	}

	res, err := c.runner.Run(ctx, curl.Get(c.UpdateURL(info)))
	if err != nil {
		return Update{}, fmt.Errorf("failed to query %s update: %w", info.Name, err)
	}
	if !res.OK() {
		return Update{}, fmt.Errorf("%s update query exited with %d: %s", info.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	var u Update
	if err := json.Unmarshal([]byte(res.Stdout), &u); err != nil {
		return Update{}, fmt.Errorf("failed to decode %s update: %w", info.Name, err)
	}
	return u, nil
}

func (c *Client) latestRelease(ctx context.Context, info Info) (Update, error) {
	suffix := c.machine.Query(info.Suffixes)
	if suffix == "" {
		return Update{}, fmt.Errorf("%s has no build for %s", info.Name, c.machine.OS)
	}
	release, err := c.releases.Latest(ctx, info.Owner, info.Repo, false)
	if err != nil {
		return Update{}, err
	}
	asset, ok := release.Asset(func(name string) bool { return strings.HasSuffix(name, suffix) })
	if !ok {
		return Update{}, fmt.Errorf("%s release %s has no *%s asset: %w", info.Name, release.TagName, suffix, artifact.ErrUnresolved)
	}
	return Update{
		URL:            asset.BrowserDownloadURL,
		Name:           release.TagName,
		Version:        release.TagName,
		ProductVersion: release.TagName,
	}, nil
}

// Resolve 构造编辑器并查询其最新版本
func (c *Client) Resolve(ctx context.Context, info Info, opts ...Option) (*Editor, error) {
	u, err := c.Latest(ctx, info)
	if err != nil {
		return nil, err
	}
	e := New(info, opts...)
	e.SetLatest(u)
	return e, nil
}
