package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wentf9/vem/cmd/utils"
	"github.com/wentf9/vem/pkg/config"
	"github.com/wentf9/vem/pkg/models"
)

func NewCmdHost() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "host",
		Aliases: []string{"hosts"},
		Short:   "管理存储的远程主机",
		Long:    `管理存储的远程主机和网关。支持列出、添加和删除操作, 密码加密保存在配置文件中。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdHostList())
	cmd.AddCommand(NewCmdHostAdd())
	cmd.AddCommand(NewCmdHostDelete())

	return cmd
}

func NewCmdHostAdd() *cobra.Command {
	var (
		makeDefault bool
		gateway     bool
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "add <name> <[user[:password]@]host[:port]>",
		Short: "添加一个远程主机",
		Example: `vem host add build ci@10.0.0.5
vem host add jump admin:secret@bastion:2222 --gateway`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" || strings.ContainsAny(name, "@: ") {
				return fmt.Errorf("无效的主机名称: %q", args[0])
			}
			spec, err := models.ParseConnectionString(args[1])
			if err != nil {
				return err
			}

			store, cfg, err := utils.LoadConfig()
			if err != nil {
				return fmt.Errorf("加载配置文件失败: %w", err)
			}
			provider := config.NewProvider(cfg)
			if force {
				provider.DeleteHost(name)
			}
			if !provider.AddHost(name, spec) {
				return fmt.Errorf("主机 %s 已存在, 使用 --force 覆盖", name)
			}
			if makeDefault {
				cfg.DefaultHost = name
			}
			if gateway {
				cfg.Gateway = name
			}
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("成功添加主机 %s (%s)\n", name, spec.String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&makeDefault, "default", "d", false, "设为默认远程主机")
	cmd.Flags().BoolVar(&gateway, "gateway", false, "设为默认网关")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "覆盖同名主机")
	return cmd
}

func NewCmdHostDelete() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"delete", "remove"},
		Short:   "删除存储的远程主机",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := utils.LoadConfig()
			if err != nil {
				return fmt.Errorf("加载配置文件失败: %w", err)
			}
			provider := config.NewProvider(cfg)
			deleted := 0
			for _, name := range args {
				if !provider.DeleteHost(name) {
					fmt.Printf("警告: 主机 %s 不存在，跳过\n", name)
					continue
				}
				if cfg.Gateway == name {
					cfg.Gateway = ""
				}
				deleted++
			}
			if deleted == 0 {
				fmt.Println("未对任何主机进行更改")
				return nil
			}
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("成功删除 %d 个主机\n", deleted)
			return nil
		},
	}
}

func NewCmdHostList() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "列出所有存储的远程主机",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := utils.LoadConfig()
			if err != nil {
				return fmt.Errorf("加载配置文件失败: %w", err)
			}
			hosts := config.NewProvider(cfg).ListHosts()
			if len(hosts) == 0 {
				fmt.Println("没有找到已存储的主机。")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "名称\t主机地址\t用户\t密码\t备注")

			// 排序以便稳定显示
			names := make([]string, 0, len(hosts))
			for k := range hosts {
				names = append(names, k)
			}
			sort.Strings(names)

			for _, name := range names {
				spec := hosts[name].WithDefaults()
				password := ""
				if hosts[name].Password != "" {
					password = "******"
				}
				var marks []string
				if cfg.DefaultHost == name {
					marks = append(marks, "默认")
				}
				if cfg.Gateway == name {
					marks = append(marks, "网关")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					name,
					spec.Addr(),
					spec.Username,
					password,
					strings.Join(marks, ", "),
				)
			}
			return w.Flush()
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdHost())
}
