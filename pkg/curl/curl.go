package curl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wentf9/vem/pkg/utils/shell"
)

// Program 是远端执行 HTTP 请求所用的程序
const Program = "curl"

// Request 描述一次 HTTP 请求
// Body 为 nil 表示没有请求体
type Request struct {
	Method         string
	URL            string
	Headers        map[string]string
	Body           []byte
	Compressed     bool
	Verify         bool
	AllowRedirects bool
	Output         string
}

// Option 定义配置函数的类型
type Option func(*Request)

func WithHeader(name, value string) Option {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[name] = value
	}
}

func WithHeaders(headers map[string]string) Option {
	return func(r *Request) {
		for k, v := range headers {
			WithHeader(k, v)(r)
		}
	}
}

func WithBody(body []byte) Option {
	return func(r *Request) {
		r.Body = body
	}
}

func WithCompressed(on bool) Option {
	return func(r *Request) {
		r.Compressed = on
	}
}

// WithVerify 为 false 时跳过 TLS 证书校验
func WithVerify(on bool) Option {
	return func(r *Request) {
		r.Verify = on
	}
}

func WithRedirects(on bool) Option {
	return func(r *Request) {
		r.AllowRedirects = on
	}
}

// WithOutput 把响应写入远端文件
func WithOutput(p string) Option {
	return func(r *Request) {
		r.Output = p
	}
}

// WithOutputDir 输出到 dir 下，文件名取 URL 的最后一段
func WithOutputDir(dir string) Option {
	return func(r *Request) {
		r.Output = path.Join(dir, lastSegment(r.URL))
	}
}

// NewRequest 创建带默认值的请求: 压缩、校验证书、跟随重定向
func NewRequest(method, rawURL string, opts ...Option) Request {
	r := Request{
		Method:         strings.ToUpper(method),
		URL:            rawURL,
		Compressed:     true,
		Verify:         true,
		AllowRedirects: true,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Command 把请求翻译成等价的 curl 命令行
// 相同输入总是得到逐字节相同的输出
func Command(req Request) string {
	args := []string{Program, "-X", req.Method}

	names := make([]string, 0, len(req.Headers))
	for name := range req.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "-H", fmt.Sprintf("%s: %s", name, req.Headers[name]))
	}

	if req.Body != nil {
		args = append(args, "-d", decodeBody(req.Body))
	}
	if req.Compressed {
		args = append(args, "--compressed")
	}
	if !req.Verify {
		args = append(args, "--insecure")
	}
	if req.AllowRedirects {
		args = append(args, "-L")
	}
	args = append(args, req.URL)
	if req.Output != "" {
		args = append(args, "-o", req.Output)
	}
	return shell.Join(args...)
}

// Get 默认跟随重定向
func Get(rawURL string, opts ...Option) string {
	return Command(NewRequest("GET", rawURL, opts...))
}

// Head 默认不跟随重定向
func Head(rawURL string, opts ...Option) string {
	opts = append([]Option{WithRedirects(false)}, opts...)
	return Command(NewRequest("HEAD", rawURL, opts...))
}

// Post 把 data 序列化为 JSON 作为请求体
func Post(rawURL string, data any, opts ...Option) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode request body: %w", err)
	}
	opts = append([]Option{WithBody(body)}, opts...)
	return Command(NewRequest("POST", rawURL, opts...)), nil
}

func decodeBody(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

func lastSegment(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}
