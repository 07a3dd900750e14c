package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wentf9/vem/pkg/curl"
	"github.com/wentf9/vem/pkg/executor"
)

const (
	DefaultBaseURL    = "https://marketplace.visualstudio.com"
	DefaultAPIVersion = "6.0-preview.1"
)

// Option 定义配置函数的类型
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithFlags(f Flags) Option {
	return func(c *Client) {
		c.flags = f
	}
}

// Client 查询扩展市场
// 请求被翻译为 curl 命令交给 runner 执行，由远程主机访问网络
type Client struct {
	runner     executor.Executor
	baseURL    string
	apiVersion string
	flags      Flags
}

func NewClient(runner executor.Executor, opts ...Option) *Client {
	c := &Client{
		runner:     runner,
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		flags:      DefaultFlags,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryFilter struct {
	PageNumber int         `json:"pageNumber"`
	PageSize   int         `json:"pageSize"`
	Criteria   []Criterion `json:"criteria"`
}

type queryBody struct {
	Filters []queryFilter `json:"filters"`
	Flags   Flags         `json:"flags"`
}

type queryResponse struct {
	Results []struct {
		Extensions []Extension `json:"extensions"`
	} `json:"results"`
	Message string `json:"message"`
}

// Query 执行一次扩展查询
func (c *Client) Query(ctx context.Context, criteria []Criterion, pageNumber, pageSize int) ([]Extension, error) {
	body := queryBody{
		Filters: []queryFilter{{PageNumber: pageNumber, PageSize: pageSize, Criteria: criteria}},
		Flags:   c.flags,
	}
	headers := map[string]string{
		"Accept":          "application/json;api-version=" + c.apiVersion,
		"Accept-Encoding": "gzip",
		"Content-Type":    "application/json",
	}
	cmd, err := curl.Post(c.baseURL+"/_apis/public/gallery/extensionquery", body, curl.WithHeaders(headers))
	if err != nil {
		return nil, err
	}

	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("marketplace query failed: %w", err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("marketplace query exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	var parsed queryResponse
	if err := json.Unmarshal([]byte(res.Stdout), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode marketplace response: %w", err)
	}
	if len(parsed.Results) == 0 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("marketplace error: %s", parsed.Message)
		}
		return nil, nil
	}
	return parsed.Results[0].Extensions, nil
}

// QueryByIdentifier 按 publisher.name 查找扩展
// 没有匹配项时 ok 为 false
func (c *Client) QueryByIdentifier(ctx context.Context, uniqueID string) (ext Extension, ok bool, err error) {
	extensions, err := c.Query(ctx, []Criterion{
		Criteria(FilterInstallationTarget, VSCodeTarget),
		Criteria(FilterName, uniqueID),
	}, 1, 1)
	if err != nil {
		return Extension{}, false, err
	}
	if len(extensions) == 0 {
		return Extension{}, false, nil
	}
	return extensions[0], true, nil
}

// Search 按关键字搜索扩展
func (c *Client) Search(ctx context.Context, text string, pageSize int) ([]Extension, error) {
	if pageSize <= 0 {
		pageSize = 25
	}
	return c.Query(ctx, []Criterion{
		Criteria(FilterInstallationTarget, VSCodeTarget),
		Criteria(FilterSearchText, text),
	}, 1, pageSize)
}
