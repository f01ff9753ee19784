package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/cmd/version"
	"github.com/wentf9/ufwctl/pkg/logger"
	"github.com/wentf9/ufwctl/pkg/mcp"
)

const mcpKeepAlive = 30 * time.Second

func NewCmdMcp(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "以 stdio MCP 服务的形式提供 ufw 工具",
		Long: `启动 Model Context Protocol 服务, 通过标准输入输出提供
ufw_status, ufw_list_rules, ufw_allow, ufw_deny, ufw_delete_rule 五个工具。
服务作用于本机或 --node 指定的单个节点。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Tag != "" {
				return fmt.Errorf("mcp 服务只能作用于单个节点")
			}
			logger.SetOutput(os.Stderr)
			names, err := o.Targets()
			if err != nil {
				return err
			}
			o.connector.KeepAlive = mcpKeepAlive
			defer o.Close()

			t, err := o.open(cmd.Context(), names[0])
			if err != nil {
				return err
			}
			defer t.Close()
			return mcp.Serve(cmd.Context(), t.manager, version.Version)
		},
	}
}
