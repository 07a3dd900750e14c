package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	cmdutils "github.com/wentf9/vem/cmd/utils"
	"github.com/wentf9/vem/pkg/artifact"
	"github.com/wentf9/vem/pkg/editor"
)

// FetchOptions 是 download/install/update 共用的下载参数
type FetchOptions struct {
	ListFile        string
	MarketplaceOnly bool
	Prerelease      bool
	targets         []string
}

func (o *FetchOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ListFile, "file", "f", "", "从文件读取扩展标识, 每行一个")
	cmd.Flags().BoolVar(&o.MarketplaceOnly, "marketplace-only", false, "所有扩展都从扩展市场获取")
	cmd.Flags().BoolVar(&o.Prerelease, "prerelease", false, "从 GitHub 获取时包含预发布版本")
}

func (o *FetchOptions) Complete(cmd *cobra.Command, args []string) error {
	targets, err := cmdutils.ParseTargets(args, o.ListFile)
	if err != nil {
		return err
	}
	o.targets = targets
	return nil
}

func (o *FetchOptions) Validate() error {
	if len(o.targets) == 0 {
		return errors.New("未提供要下载的编辑器或扩展")
	}
	for _, t := range o.targets {
		if _, ok := editor.Lookup(t); ok {
			continue
		}
		if _, err := artifact.ParseID(t); err != nil {
			return err
		}
	}
	return nil
}

func (o *FetchOptions) resolverOptions() []artifact.ResolverOption {
	return []artifact.ResolverOption{
		artifact.WithRegistryOnly(o.MarketplaceOnly),
		artifact.WithPrerelease(o.Prerelease),
	}
}

type DownloadOptions struct {
	FetchOptions
}

func NewDownloadOptions() *DownloadOptions {
	return &DownloadOptions{}
}

func NewCmdDownload() *cobra.Command {
	o := NewDownloadOptions()
	cmd := &cobra.Command{
		Use:   "download <editor|publisher.package[@version]>...",
		Short: "通过远程主机下载编辑器安装包或扩展",
		Long: `通过远程主机下载编辑器安装包或扩展, 并取回到本地输出目录。
扩展的依赖和扩展包成员会先于扩展本身下载。
用法示例:
vem download ms-python.python -H user@host
vem download code redhat.vscode-yaml -H build -g jump
vem download -f extensions.txt -o ./vsix
编辑器名称: code, insiders, exploration, codium`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return fmt.Errorf("参数错误: %v", err)
			}
			return o.Run(cmd)
		},
	}
	o.AddFlags(cmd)
	return cmd
}

func (o *DownloadOptions) Run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx, globalOpts)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	remoteDir, localDir, err := app.Workspace(ctx)
	if err != nil {
		return err
	}
	fetched, err := app.Fetch(ctx, app.NewResolver(o.resolverOptions()...), o.targets, remoteDir, localDir)

	keys := make([]string, 0, len(fetched.Editors))
	for k := range fetched.Editors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), fetched.Editors[k])
	}
	for _, p := range fetched.Extensions {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if err != nil {
		return fmt.Errorf("部分下载失败: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(NewCmdDownload())
}
