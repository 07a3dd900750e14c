package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wentf9/vem/pkg/editor"
	"github.com/wentf9/vem/utils"
)

type UpdateOptions struct {
	FetchOptions
	Source  string
	Editors []string
	Editor  bool
}

func NewUpdateOptions() *UpdateOptions {
	return &UpdateOptions{Source: "code"}
}

func NewCmdUpdate() *cobra.Command {
	o := NewUpdateOptions()
	cmd := &cobra.Command{
		Use:   "update",
		Short: "更新本地编辑器中已安装的扩展",
		Long: `读取源编辑器中已安装的扩展, 通过远程主机下载有新版本的扩展并安装到目标编辑器。
使用 --editor 时, 编辑器本身有新版本时也会下载其安装包。
用法示例:
vem update -H user@host
vem update --source code --target code,codium --editor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return fmt.Errorf("参数错误: %v", err)
			}
			return o.Run(cmd)
		},
	}
	cmd.Flags().BoolVar(&o.MarketplaceOnly, "marketplace-only", false, "所有扩展都从扩展市场获取")
	cmd.Flags().BoolVar(&o.Prerelease, "prerelease", false, "从 GitHub 获取时包含预发布版本")
	cmd.Flags().StringVarP(&o.Source, "source", "s", o.Source, "读取已安装扩展的编辑器")
	cmd.Flags().StringSliceVarP(&o.Editors, "target", "t", nil, "安装到哪些本地编辑器, 默认与源编辑器相同")
	cmd.Flags().BoolVar(&o.Editor, "editor", false, "同时检查并下载编辑器新版本")
	return cmd
}

func (o *UpdateOptions) Validate() error {
	if len(o.Editors) == 0 {
		o.Editors = []string{o.Source}
	}
	return validateEditors(append([]string{o.Source}, o.Editors...))
}

func (o *UpdateOptions) Run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	info, _ := editor.Lookup(o.Source)
	source := editor.New(info)
	if !source.Installed() {
		return fmt.Errorf("%s 未安装或不在 PATH 中", info.Command)
	}
	installed, err := source.Extensions(ctx)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, globalOpts)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	var targets []string
	if o.Editor {
		latest, err := app.Editors.Resolve(ctx, info)
		switch {
		case err != nil:
			utils.Logger.Error("failed to query latest editor version", "editor", info.Name, "error", err)
		case latest.CanUpdate(ctx):
			targets = append(targets, info.Key)
		default:
			utils.Logger.Info(info.Name+" is up to date", "version", latest.Version())
		}
	}

	// 先解析, 只下载版本有变化的扩展; 解析结果被缓存, 下载时不会重复查询
	resolver := app.NewResolver(o.resolverOptions()...)
	for _, id := range installed {
		a, err := resolver.Resolve(ctx, id.UniqueID())
		if err != nil {
			utils.Logger.Error("failed to resolve", "id", id.UniqueID(), "error", err)
			continue
		}
		if a.Version() != "" && a.Version() == id.Version {
			utils.Logger.Debug("extension is up to date", "id", id.UniqueID(), "version", id.Version)
			continue
		}
		targets = append(targets, id.UniqueID())
	}
	if len(targets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "所有扩展都已是最新版本")
		return nil
	}

	remoteDir, localDir, err := app.Workspace(ctx)
	if err != nil {
		return err
	}
	fetched, fetchErr := app.Fetch(ctx, resolver, targets, remoteDir, localDir)
	for _, p := range fetched.Editors {
		fmt.Fprintf(cmd.OutOrStdout(), "编辑器安装包已下载到 %s, 请手动安装\n", p)
	}
	installErr := installExtensions(ctx, o.Editors, fetched.Extensions, true)
	if fetchErr != nil {
		return fmt.Errorf("部分下载失败: %w", fetchErr)
	}
	return installErr
}

func init() {
	rootCmd.AddCommand(NewCmdUpdate())
}
