package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/cmd/version"
)

// NewCmdRoot 构建完整的命令树
func NewCmdRoot() *cobra.Command {
	o := NewGlobalOptions()
	cmd := &cobra.Command{
		Use:   "ufwctl [command] [flags]",
		Short: "ufwctl 用于管理本机或远程主机上的 ufw 防火墙",
		Long: `ufwctl 读取 "ufw status numbered" 的输出并将其解析为结构化规则,
同时封装了启用/停用、放行/拒绝、删除规则等常用操作。

默认作用于本机; 使用 --node 指定清单中的节点, 或使用 --tag 对一组节点并行执行。
节点清单保存在 ~/.ufwctl/config.yaml, 口令字段加密存储。`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.Complete(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	o.AddFlags(cmd)

	cmd.AddCommand(
		NewCmdStatus(o),
		NewCmdList(o),
		NewCmdEnable(o),
		NewCmdDisable(o),
		NewCmdReset(o),
		NewCmdReload(o),
		NewCmdLogging(o),
		NewCmdAllow(o),
		NewCmdAllowService(o),
		NewCmdDeny(o),
		NewCmdDelete(o),
		NewCmdApps(o),
		NewCmdIPv6(o),
		NewCmdExport(o),
		NewCmdImport(o),
		NewCmdNode(o),
		NewCmdPing(o),
		NewCmdMcp(o),
		NewCmdVersion(),
	)
	return cmd
}

// Execute 由 main.main 调用, Ctrl-C 时取消正在执行的命令
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewCmdRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		stop()
		os.Exit(1)
	}
}

func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintFullVersion(cmd.OutOrStdout())
		},
	}
}
