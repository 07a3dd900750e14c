package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type SearchOptions struct {
	Size int
}

func NewCmdSearch() *cobra.Command {
	o := &SearchOptions{Size: 20}
	cmd := &cobra.Command{
		Use:   "search <keyword>...",
		Short: "通过远程主机在扩展市场中搜索扩展",
		Example: `vem search python -H user@host
vem search "remote ssh" --size 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Size <= 0 {
				return fmt.Errorf("参数错误: --size 必须大于 0")
			}
			return o.Run(cmd, strings.Join(args, " "))
		},
	}
	cmd.Flags().IntVarP(&o.Size, "size", "n", o.Size, "最多显示的结果数量")
	return cmd
}

func (o *SearchOptions) Run(cmd *cobra.Command, text string) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx, globalOpts)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	exts, err := app.Market.Search(ctx, text, o.Size)
	if err != nil {
		return err
	}
	if len(exts) == 0 {
		fmt.Printf("没有找到与 %q 相关的扩展。\n", text)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\t版本\t安装量\t描述")
	for _, ext := range exts {
		version := ""
		if v, ok := ext.Latest(); ok {
			version = v.Version
		}
		installs := ""
		if n, ok := ext.Statistic("install"); ok {
			installs = strconv.FormatInt(int64(n), 10)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ext.UniqueID(), version, installs, truncate(ext.ShortDescription, 60))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(NewCmdSearch())
}
