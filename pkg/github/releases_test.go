package github

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wentf9/vem/pkg/executor"
)

type fakeRunner struct {
	commands []string
	stdout   string
	exitCode int
}

func (f *fakeRunner) Run(ctx context.Context, cmd string) (*executor.Result, error) {
	f.commands = append(f.commands, cmd)
	return &executor.Result{Stdout: f.stdout, ExitCode: f.exitCode, Stderr: "boom"}, nil
}

const latestJSON = `{
  "tag_name": "v1.2.3",
  "assets": [
    {"name": "cpptools-osx.vsix", "browser_download_url": "https://dl/osx"},
    {"name": "cpptools-linux.vsix", "browser_download_url": "https://dl/linux"}
  ]
}`

func TestLatest(t *testing.T) {
	runner := &fakeRunner{stdout: latestJSON}
	release, err := NewClient(runner).Latest(context.Background(), "Microsoft", "vscode-cpptools", false)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", release.TagName)
	assert.Contains(t, runner.commands[0], "https://api.github.com/repos/Microsoft/vscode-cpptools/releases/latest?per_page=1")

	asset, ok := release.Asset(func(name string) bool { return name == "cpptools-linux.vsix" })
	require.True(t, ok)
	assert.Equal(t, "https://dl/linux", asset.BrowserDownloadURL)

	_, ok = release.Asset(func(name string) bool { return strings.HasSuffix(name, ".exe") })
	assert.False(t, ok)
}

func TestLatest_Prerelease(t *testing.T) {
	runner := &fakeRunner{stdout: "[" + latestJSON + "]"}
	release, err := NewClient(runner).Latest(context.Background(), "VSCodium", "vscodium", true)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", release.TagName)
	assert.Contains(t, runner.commands[0], "https://api.github.com/repos/VSCodium/vscodium/releases?per_page=1")

	runner = &fakeRunner{stdout: "[]"}
	_, err = NewClient(runner).Latest(context.Background(), "VSCodium", "vscodium", true)
	assert.Error(t, err)
}

func TestLatest_RemoteFailure(t *testing.T) {
	runner := &fakeRunner{exitCode: 22}
	_, err := NewClient(runner).Latest(context.Background(), "o", "r", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDownloadURL(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t,
		"https://github.com/Microsoft/vscode-cpptools/releases/download/v1.0.0/cpptools-linux.vsix",
		c.DownloadURL("Microsoft", "vscode-cpptools", "v1.0.0", "cpptools-linux.vsix"))
}
