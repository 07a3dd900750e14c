package editor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/wentf9/vem/pkg/artifact"
	"github.com/wentf9/vem/pkg/executor"
	"github.com/wentf9/vem/pkg/platform"
)

// Info 描述一个受支持的编辑器
type Info struct {
	Key      string
	Command  string
	Name     string
	Alias    string // 更新接口中的渠道名
	HomeDir  string
	GitHub   bool // 为 true 时从 GitHub 发布页获取
	Owner    string
	Repo     string
	Suffixes platform.Choices
}

var supported = []Info{
	{Key: "code", Command: "code", Name: "VSCode", Alias: "stable", HomeDir: ".vscode"},
	{Key: "insiders", Command: "code-insiders", Name: "VSCode Insiders", Alias: "insider", HomeDir: ".vscode-insiders"},
	{Key: "exploration", Command: "code-exploration", Name: "VSCode Exploration", Alias: "exploration", HomeDir: ".vscode-exploration"},
	{
		Key:     "codium",
		Command: "codium",
		Name:    "VSCodium",
		Alias:   "codium",
		HomeDir: ".vscode-oss",
		GitHub:  true,
		Owner:   "VSCodium",
		Repo:    "vscodium",
		Suffixes: platform.Choices{
			Darwin:  "dmg",
			Windows: "exe",
			Linux:   "AppImage",
			RPM:     "rpm",
			Deb:     "deb",
		},
	},
}

// Supported 返回所有受支持的编辑器
func Supported() []Info {
	return append([]Info(nil), supported...)
}

// Lookup 按键名或命令名查找编辑器
func Lookup(name string) (Info, bool) {
	for _, info := range supported {
		if info.Key == name || info.Command == name {
			return info, true
		}
	}
	return Info{}, false
}

// Commander 直接执行本地程序
type Commander interface {
	Command(ctx context.Context, name string, args ...string) (*executor.Result, error)
}

// Editor 是一个本地编辑器, 同时也是可下载的安装包
type Editor struct {
	Info
	local    Commander
	lookPath func(string) (string, error)
	latest   *Update
}

type Option func(*Editor)

func WithCommander(c Commander) Option {
	return func(e *Editor) {
		e.local = c
	}
}

func WithLookPath(f func(string) (string, error)) Option {
	return func(e *Editor) {
		e.lookPath = f
	}
}

func New(info Info, opts ...Option) *Editor {
	e := &Editor{
		Info:     info,
		local:    executor.NewLocalExecutor(),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetLatest 记录远端最新版本信息
func (e *Editor) SetLatest(u Update) {
	e.latest = &u
}

// Latest 返回已查询到的最新版本信息
func (e *Editor) Latest() (Update, bool) {
	if e.latest == nil {
		return Update{}, false
	}
	return *e.latest, true
}

var _ artifact.Artifact = (*Editor)(nil)

func (e *Editor) UniqueID() string        { return e.Command }
func (e *Editor) Dependencies() []string  { return nil }
func (e *Editor) BundleMembers() []string { return nil }

func (e *Editor) Version() string {
	if e.latest == nil {
		return ""
	}
	return e.latest.Name
}

func (e *Editor) DownloadURL() string {
	if e.latest == nil {
		return ""
	}
	return e.latest.URL
}

// FileName 取下载地址的最后一段
func (e *Editor) FileName() string {
	raw := e.DownloadURL()
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

// Installed 报告编辑器命令是否在 PATH 中
func (e *Editor) Installed() bool {
	_, err := e.lookPath(e.Command)
	return err == nil
}

// Engine 返回本地安装的版本, 即 --version 输出的第一行
func (e *Editor) Engine(ctx context.Context) (string, bool) {
	if !e.Installed() {
		return "", false
	}
	res, err := e.local.Command(ctx, e.Command, "--version")
	if err != nil || !res.OK() {
		return "", false
	}
	line, _, _ := strings.Cut(res.Stdout, "\n")
	line = strings.TrimSpace(line)
	return line, line != ""
}

// Extensions 列出已安装的扩展及版本
func (e *Editor) Extensions(ctx context.Context) ([]artifact.ID, error) {
	if !e.Installed() {
		return nil, nil
	}
	res, err := e.local.Command(ctx, e.Command, "--list-extensions", "--show-versions")
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("%s --list-extensions exited with %d: %s", e.Command, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	var ids []artifact.ID
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := artifact.ParseID(line)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InstallExtension 安装本地的 .vsix 文件
func (e *Editor) InstallExtension(ctx context.Context, vsix string, force bool) error {
	args := []string{"--install-extension", vsix}
	if force {
		args = append(args, "--force")
	}
	res, err := e.local.Command(ctx, e.Command, args...)
	if err != nil {
		return fmt.Errorf("failed to install %s: %w", filepath.Base(vsix), err)
	}
	if !res.OK() {
		return fmt.Errorf("failed to install %s: exit %d: %s", filepath.Base(vsix), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// CanUpdate 已知最新版本, 且本地未安装或版本不同
func (e *Editor) CanUpdate(ctx context.Context) bool {
	latest := e.Version()
	if latest == "" {
		return false
	}
	engine, ok := e.Engine(ctx)
	return !ok || engine != latest
}

// ExtensionsDir 返回本地扩展目录
func (e *Editor) ExtensionsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, e.HomeDir, "extensions"), nil
}
