/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	ping "github.com/prometheus-community/pro-bing"
	"github.com/spf13/cobra"
	"github.com/wentf9/vem/utils"
)

type CheckOptions struct {
	Ping  bool
	Count int
}

func NewCmdCheck() *cobra.Command {
	o := &CheckOptions{Ping: true, Count: 3}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "检查远程主机的连通性",
		Long: `先通过ICMP Ping远程主机(经由网关时跳过), 再建立SSH连接并在远端执行 uname -a,
用于在下载前确认连接参数和密码是否正确。
注意: 在 Linux/macOS 上, ICMP raw socket 需要root权限, Ping失败不影响后续的SSH检查。
示例: vem check -H user@10.0.0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd)
		},
	}
	cmd.Flags().BoolVar(&o.Ping, "ping", o.Ping, "连接前先进行ICMP Ping")
	cmd.Flags().IntVarP(&o.Count, "count", "c", o.Count, "ICMP 包数量")
	return cmd
}

func (o *CheckOptions) Run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx, globalOpts)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	primary := app.Session.Primary()
	gw, viaGateway := app.Session.Gateway()
	if o.Ping && !viaGateway {
		o.ping(cmd, primary.Hostname)
	}

	if viaGateway {
		fmt.Fprintf(cmd.OutOrStdout(), "正在经由网关 %s 连接 %s...\n", gw.String(), primary.String())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "正在连接 %s...\n", primary.String())
	}
	start := time.Now()
	if err := app.Session.Connect(ctx, false); err != nil {
		return fmt.Errorf("SSH连接失败: %w", err)
	}
	res, err := app.Session.Run(ctx, "uname -a")
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("远端命令执行失败: %s", strings.TrimSpace(res.Stderr))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "连接成功 (%v): %s\n", time.Since(start).Round(time.Millisecond), strings.TrimSpace(res.Stdout))
	return nil
}

// ping 失败只记录警告, 很多主机屏蔽了ICMP
func (o *CheckOptions) ping(cmd *cobra.Command, host string) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		utils.Logger.Warn("failed to create pinger", "host", host, "error", err)
		return
	}
	pinger.SetPrivileged(true)
	pinger.Count = o.Count
	pinger.Interval = time.Second
	pinger.Timeout = time.Duration(o.Count+1) * time.Second

	out := cmd.OutOrStdout()
	pinger.OnFinish = func(stats *ping.Statistics) {
		fmt.Fprintf(out, "--- %s 的 ping 统计信息 ---\n", stats.Addr)
		fmt.Fprintf(out, "%d 个包已发送, %d 个包已接收, %v%% 包丢失\n",
			stats.PacketsSent, stats.PacketsRecv, stats.PacketLoss)
		if stats.PacketsRecv > 0 {
			fmt.Fprintf(out, "往返行程 最小/平均/最大 = %v/%v/%v\n", stats.MinRtt, stats.AvgRtt, stats.MaxRtt)
		}
	}
	fmt.Fprintf(out, "正在通过ICMP Ping %s...\n", host)
	if err := pinger.Run(); err != nil {
		utils.Logger.Warn("ping failed, continuing with ssh check", "host", host, "error", err)
	}
}

func init() {
	rootCmd.AddCommand(NewCmdCheck())
}
