package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/pkg/ufw"
)

// simpleCmd 构造不带参数、只调用一次 Manager 方法的子命令
func simpleCmd(o *GlobalOptions, use, short, done string, op func(*ufw.Manager, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Each(cmd, use, func(ctx context.Context, t *target) (string, error) {
				if err := op(t.manager, ctx); err != nil {
					return "", err
				}
				return done, nil
			})
		},
	}
}

func NewCmdEnable(o *GlobalOptions) *cobra.Command {
	return simpleCmd(o, "enable", "启用防火墙(不询问确认)", "防火墙已启用", (*ufw.Manager).Enable)
}

func NewCmdDisable(o *GlobalOptions) *cobra.Command {
	return simpleCmd(o, "disable", "停用防火墙", "防火墙已停用", (*ufw.Manager).Disable)
}

func NewCmdReset(o *GlobalOptions) *cobra.Command {
	return simpleCmd(o, "reset", "清空所有规则并恢复默认配置", "防火墙已重置", (*ufw.Manager).Reset)
}

func NewCmdReload(o *GlobalOptions) *cobra.Command {
	return simpleCmd(o, "reload", "重新加载规则", "规则已重新加载", (*ufw.Manager).Reload)
}

func NewCmdLogging(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "logging <off|low|medium|high|full>",
		Short:     "设置 ufw 日志级别",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"off", "low", "medium", "high", "full"},
		RunE: func(cmd *cobra.Command, args []string) error {
			level := args[0]
			return o.Each(cmd, "logging", func(ctx context.Context, t *target) (string, error) {
				if err := t.manager.SetLogging(ctx, level); err != nil {
					return "", err
				}
				return "日志级别: " + level, nil
			})
		},
	}
}

// splitPortProto 解析 port[/proto]
func splitPortProto(arg string) (string, ufw.Protocol, error) {
	port, proto, _ := strings.Cut(arg, "/")
	p, err := ufw.ParseProtocol(proto)
	return port, p, err
}

func NewCmdAllow(o *GlobalOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "allow <port>[/tcp|/udp]",
		Short: "放行入站端口",
		Long: `放行入站端口, 端口可以是单个端口、逗号分隔列表或 8000:8100 形式的范围。
未指定协议的端口范围会同时添加 tcp 与 udp 两条规则。

示例:
  ufwctl allow 22/tcp
  ufwctl allow 60000:61000 --tag web
  ufwctl allow 5432 --from 10.0.0.0/8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, proto, err := splitPortProto(args[0])
			if err != nil {
				return err
			}
			return o.Each(cmd, "allow", func(ctx context.Context, t *target) (string, error) {
				var err error
				if from != "" {
					err = t.manager.AllowInboundFrom(ctx, from, port, proto)
				} else {
					err = t.manager.AllowInbound(ctx, port, proto)
				}
				if err != nil {
					return "", err
				}
				return "已放行 " + args[0], nil
			})
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "只放行来自该地址或网段的流量")
	return cmd
}

func NewCmdAllowService(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allow-service <profile>",
		Short: "按应用配置放行, 如 OpenSSH 或 \"Nginx Full\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Each(cmd, "allow-service", func(ctx context.Context, t *target) (string, error) {
				if err := t.manager.AllowService(ctx, args[0]); err != nil {
					return "", err
				}
				return "已放行应用 " + args[0], nil
			})
		},
	}
}

func NewCmdDeny(o *GlobalOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "deny --from <ip|cidr>",
		Short: "拒绝来自某个地址的全部入站流量",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Each(cmd, "deny", func(ctx context.Context, t *target) (string, error) {
				if err := t.manager.DenyInbound(ctx, from); err != nil {
					return "", err
				}
				return "已拒绝 " + from, nil
			})
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "源地址或网段")
	cmd.MarkFlagRequired("from")
	return cmd
}

func NewCmdDelete(o *GlobalOptions) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "delete [index...]",
		Short: "按编号删除规则",
		Long: `按 "ufw status numbered" 中的编号删除规则。
一次删除多条时按编号从大到小依次删除, 保证前面的编号不会因删除而变化。
使用 --comment 删除所有注释与之相同的规则。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			indexes, err := parseIndexes(args)
			if err != nil {
				return err
			}
			if len(indexes) == 0 && comment == "" {
				return fmt.Errorf("必须指定规则编号或 --comment")
			}
			return o.Each(cmd, "delete", func(ctx context.Context, t *target) (string, error) {
				deleted, err := t.manager.DeleteMatching(ctx, func(r ufw.Rule) bool {
					if comment != "" && r.HasComment && r.Comment == comment {
						return true
					}
					return slices.Contains(indexes, r.Index)
				})
				lines := make([]string, 0, len(deleted))
				for _, r := range deleted {
					lines = append(lines, "已删除 "+r.String())
				}
				if err == nil && len(deleted) == 0 {
					return "", ufw.ErrNoSuchRule
				}
				return strings.Join(lines, "\n"), err
			})
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "删除注释为该值的规则")
	return cmd
}

func parseIndexes(args []string) ([]int, error) {
	indexes := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ufw.ErrNoSuchRule, a)
		}
		indexes = append(indexes, n)
	}
	return indexes, nil
}
