package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/pkg/ufw"
	"github.com/wentf9/ufwctl/pkg/utils/file"
)

func NewCmdIPv6(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "ipv6 <on|off>",
		Short:     "修改 /etc/default/ufw 中的 IPV6 设置并重新加载",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("参数必须为 on 或 off: %s", args[0])
			}
			return o.Each(cmd, "ipv6", func(ctx context.Context, t *target) (string, error) {
				changed, err := ufw.SetIPv6(t.fs, o.defaultsFile(), enabled)
				if err != nil {
					return "", err
				}
				if !changed {
					return "IPV6 已经是 " + args[0], nil
				}
				if err := t.manager.Reload(ctx); err != nil {
					return "", err
				}
				return "IPV6 已设置为 " + args[0], nil
			})
		},
	}
}

func NewCmdExport(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "导出 user.rules 与 user6.rules 到 yaml 文件",
		Long: `将目标节点的用户规则文件打包为一个 yaml 文件, 可用 import 导入到其他节点。
文件名为 - 时输出到标准输出。不支持 --tag。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Tag != "" {
				return fmt.Errorf("export 只能作用于单个节点")
			}
			return o.Each(cmd, "export", func(ctx context.Context, t *target) (string, error) {
				var buf bytes.Buffer
				if err := ufw.ExportRules(t.fs, o.rulesDir(), t.name, &buf); err != nil {
					return "", err
				}
				if args[0] == "-" {
					return buf.String(), nil
				}
				if err := file.WriteFileAtomic(args[0], buf.Bytes(), 0o600); err != nil {
					return "", err
				}
				return "规则已导出到 " + args[0], nil
			})
		},
	}
}

func NewCmdImport(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "从 export 生成的 yaml 文件恢复规则并重新加载",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取规则文件失败: %w", err)
			}
			return o.Each(cmd, "import", func(ctx context.Context, t *target) (string, error) {
				if err := ufw.ImportRules(ctx, t.manager, t.fs, o.rulesDir(), bytes.NewReader(data)); err != nil {
					return "", err
				}
				return "规则已导入", nil
			})
		},
	}
}
