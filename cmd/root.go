/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/wentf9/vem/utils"
)

// GlobalOptions 是所有子命令共享的连接参数
type GlobalOptions struct {
	Host      string
	Gateway   string
	Password  string
	RemoteDir string
	Output    string
	Debug     bool
}

var globalOpts = &GlobalOptions{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vem [command] [flags]",
	Short: "vem(VSCode Extension Manager) 通过远程主机下载编辑器和扩展",
	Long: `vem(VSCode Extension Manager) 是一个命令行工具,
当本机无法直接访问扩展市场时, 通过 SSH 登录一台可以联网的远程主机(可经由网关),
在远端用 curl 下载 VSCode 编辑器安装包和扩展(含依赖和扩展包成员),
再通过 sftp 取回本地并安装到本地编辑器中。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if globalOpts.Debug {
			utils.Logger.SetLogLevel("debug")
			utils.Logger.Debug("debug mode enabled")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globalOpts.Host, "host", "H", "", "远程主机: 已保存的名称或 [user[:password]@]host[:port]")
	flags.StringVarP(&globalOpts.Gateway, "gateway", "g", "", "网关(跳板机): 已保存的名称或 [user[:password]@]host[:port]")
	flags.StringVarP(&globalOpts.Password, "password", "P", "", "远程主机的SSH密码")
	flags.StringVar(&globalOpts.RemoteDir, "remote-dir", "", "远端临时下载目录")
	flags.StringVarP(&globalOpts.Output, "output", "o", "", "本地输出目录")
	flags.BoolVar(&globalOpts.Debug, "debug", false, "开启调试模式")
}
