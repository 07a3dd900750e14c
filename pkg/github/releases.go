package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wentf9/vem/pkg/curl"
	"github.com/wentf9/vem/pkg/executor"
)

const (
	DefaultAPIURL = "https://api.github.com"
	DefaultWebURL = "https://github.com"
)

type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type Release struct {
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Asset 返回第一个名称满足 match 的资源
func (r Release) Asset(match func(name string) bool) (Asset, bool) {
	for _, a := range r.Assets {
		if match(a.Name) {
			return a, true
		}
	}
	return Asset{}, false
}

// Client 通过远程主机访问 GitHub releases API
type Client struct {
	runner executor.Executor
	apiURL string
	webURL string
}

func NewClient(runner executor.Executor) *Client {
	return &Client{runner: runner, apiURL: DefaultAPIURL, webURL: DefaultWebURL}
}

// DownloadURL 返回指定 tag 下资源的直接下载地址
func (c *Client) DownloadURL(owner, repo, tag, asset string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s", c.webURL, owner, repo, tag, asset)
}

// Latest 查询最新发布; prerelease 为 true 时包含预发布版本
func (c *Client) Latest(ctx context.Context, owner, repo string, prerelease bool) (Release, error) {
	if !prerelease {
		var release Release
		err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest?per_page=1", c.apiURL, owner, repo), &release)
		return release, err
	}

	var releases []Release
	if err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/releases?per_page=1", c.apiURL, owner, repo), &releases); err != nil {
		return Release{}, err
	}
	if len(releases) == 0 {
		return Release{}, fmt.Errorf("no releases found for %s/%s", owner, repo)
	}
	return releases[0], nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	res, err := c.runner.Run(ctx, curl.Get(url, curl.WithHeader("Accept", "application/vnd.github+json")))
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("github request exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	if err := json.Unmarshal([]byte(res.Stdout), out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}
