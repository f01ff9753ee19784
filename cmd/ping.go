package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	ping "github.com/prometheus-community/pro-bing"
	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/pkg/config"
	"github.com/wentf9/ufwctl/pkg/runner"
)

const probeTimeout = 4 * time.Second

type PingOptions struct {
	Count      int
	Privileged bool
}

func NewCmdPing(o *GlobalOptions) *cobra.Command {
	p := &PingOptions{}
	cmd := &cobra.Command{
		Use:   "ping [host [port]]",
		Short: "检查主机或清单节点的连通性",
		Long: `有三种工作模式:
1. 不带参数: 对 --node / --tag 指定的节点(默认全部节点)
   并行发送 ICMP 请求并检查 SSH 端口, 用于批量操作前的预检。
2. 一个参数: 对主机发送 ICMP 请求。
3. 两个参数: 检查主机的 TCP 端口是否开放, 常用于验证放行规则是否生效。
   示例: ufwctl ping 10.0.0.11 443

在 Linux 上发送 ICMP 需要 root 权限或 net.ipv4.ping_group_range 允许非特权 ping。`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch len(args) {
			case 2:
				fmt.Fprintln(cmd.OutOrStdout(), probeTCP(ctx, args[0], args[1]))
				return nil
			case 1:
				line, err := p.probeICMP(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				return nil
			}
			return p.pingNodes(cmd, o)
		},
	}
	cmd.Flags().IntVarP(&p.Count, "count", "c", 3, "ICMP 请求次数")
	cmd.Flags().BoolVar(&p.Privileged, "privileged", true, "使用 raw socket 发送 ICMP")
	return cmd
}

func (p *PingOptions) pingNodes(cmd *cobra.Command, o *GlobalOptions) error {
	nodes := o.provider.ListNodes()
	names := config.SortedNames(nodes)
	if o.Tag != "" || o.Node != "" {
		var err error
		if names, err = o.Targets(); err != nil {
			return err
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("没有可检查的节点")
	}

	results := runner.RunParallel(cmd.Context(), names, runner.Options{Concurrency: o.concurrency()},
		func(ctx context.Context, name string) (string, error) {
			node, _ := o.provider.GetNode(name)
			host, ok := o.provider.GetHost(node.HostRef)
			if !ok {
				return "", fmt.Errorf("host ref '%s' not found", node.HostRef)
			}
			port := host.Port
			if port == 0 {
				port = 22
			}
			icmp, err := p.probeICMP(ctx, host.Address)
			if err != nil {
				icmp = "icmp: " + err.Error()
			}
			return icmp + "; " + probeTCP(ctx, host.Address, strconv.Itoa(int(port))), nil
		})
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] 错误: %v\n", r.Node, r.Err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", r.Node, r.Output)
	}
	return nil
}

func (p *PingOptions) probeICMP(ctx context.Context, addr string) (string, error) {
	pinger, err := ping.NewPinger(addr)
	if err != nil {
		return "", fmt.Errorf("创建 pinger 失败: %w", err)
	}
	pinger.SetPrivileged(p.Privileged)
	pinger.Count = p.Count
	pinger.Interval = 500 * time.Millisecond
	pinger.Timeout = probeTimeout
	if err := pinger.RunWithContext(ctx); err != nil {
		return "", err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return fmt.Sprintf("%s 无响应 (%d 个包全部丢失)", addr, stats.PacketsSent), nil
	}
	return fmt.Sprintf("%s 可达 %d/%d, 丢包 %.0f%%, 平均 %v",
		addr, stats.PacketsRecv, stats.PacketsSent, stats.PacketLoss, stats.AvgRtt.Round(time.Microsecond)), nil
}

func probeTCP(ctx context.Context, host, port string) string {
	address := net.JoinHostPort(host, port)
	d := net.Dialer{Timeout: probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Sprintf("%s 关闭或被过滤", address)
	}
	conn.Close()
	return fmt.Sprintf("%s 开放", address)
}
