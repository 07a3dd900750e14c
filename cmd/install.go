package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/wentf9/vem/pkg/editor"
	"github.com/wentf9/vem/utils"
)

type InstallOptions struct {
	FetchOptions
	Editors []string
	Force   bool
}

func NewInstallOptions() *InstallOptions {
	return &InstallOptions{Editors: []string{"code"}}
}

func NewCmdInstall() *cobra.Command {
	o := NewInstallOptions()
	cmd := &cobra.Command{
		Use:   "install <editor|publisher.package[@version]>...",
		Short: "通过远程主机下载扩展并安装到本地编辑器",
		Long: `通过远程主机下载扩展(含依赖和扩展包成员), 取回后依次安装到本地编辑器。
下载的编辑器安装包只会保存到输出目录, 需要手动安装。
用法示例:
vem install ms-python.python -H user@host
vem install golang.go --target code,insiders --force`,
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
	cmd.Flags().StringSliceVarP(&o.Editors, "target", "t", o.Editors, "安装到哪些本地编辑器 (逗号分隔)")
	cmd.Flags().BoolVar(&o.Force, "force", false, "已安装时强制重新安装")
	return cmd
}

func (o *InstallOptions) Validate() error {
	if err := o.FetchOptions.Validate(); err != nil {
		return err
	}
	return validateEditors(o.Editors)
}

func (o *InstallOptions) Run(cmd *cobra.Command) error {
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
	fetched, fetchErr := app.Fetch(ctx, app.NewResolver(o.resolverOptions()...), o.targets, remoteDir, localDir)

	keys := make([]string, 0, len(fetched.Editors))
	for k := range fetched.Editors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "编辑器安装包已下载到 %s, 请手动安装\n", fetched.Editors[k])
	}

	installErr := installExtensions(ctx, o.Editors, fetched.Extensions, o.Force)
	if fetchErr != nil {
		return fmt.Errorf("部分下载失败: %w", fetchErr)
	}
	return installErr
}

func validateEditors(keys []string) error {
	for _, k := range keys {
		if _, ok := editor.Lookup(k); !ok {
			return fmt.Errorf("不支持的编辑器: %s", k)
		}
	}
	return nil
}

// installExtensions 把扩展包依次安装到每个本地编辑器, 依赖顺序即 paths 的顺序
func installExtensions(ctx context.Context, editors []string, paths []string, force bool) error {
	if len(paths) == 0 {
		return nil
	}
	failed := 0
	for _, key := range editors {
		info, _ := editor.Lookup(key)
		e := editor.New(info)
		if !e.Installed() {
			utils.Logger.Warn("editor is not installed, skipping", "editor", info.Name, "command", info.Command)
			continue
		}
		for _, p := range paths {
			utils.Logger.Info("installing "+filepath.Base(p), "editor", info.Name)
			if err := e.InstallExtension(ctx, p, force); err != nil {
				utils.Logger.Error("failed to install extension", "editor", info.Name, "error", err)
				failed++
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d 个扩展安装失败", failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(NewCmdInstall())
}
