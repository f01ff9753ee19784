package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/pkg/ufw"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	allowStyle  = cellStyle.Foreground(lipgloss.Color("2"))
	denyStyle   = cellStyle.Foreground(lipgloss.Color("1"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	idleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
)

func NewCmdStatus(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "检查 ufw 安装情况, 显示是否启用以及默认策略",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Each(cmd, "status", func(ctx context.Context, t *target) (string, error) {
				pre, err := t.manager.Preflight(ctx)
				if err != nil {
					return "", err
				}
				st, err := t.manager.Status(ctx)
				if err != nil {
					return "", err
				}
				var b strings.Builder
				if len(pre.Conflicts) > 0 {
					fmt.Fprintf(&b, "警告: 同时运行的防火墙服务 %s 可能覆盖 ufw 规则\n", strings.Join(pre.Conflicts, ", "))
				}
				if st.Enabled {
					fmt.Fprintf(&b, "状态: %s\n", activeStyle.Render("active"))
				} else {
					fmt.Fprintf(&b, "状态: %s\n", idleStyle.Render("inactive"))
				}
				if def, err := t.manager.Defaults(ctx); err == nil {
					fmt.Fprintf(&b, "默认策略: 入站 %s, 出站 %s, 转发 %s\n", def.Incoming, def.Outgoing, def.Routed)
					if def.Logging != "" {
						fmt.Fprintf(&b, "日志: %s\n", def.Logging)
					}
				}
				fmt.Fprintf(&b, "规则数: %d\n", len(st.Rules))
				return b.String(), nil
			})
		},
	}
}

func NewCmdList(o *GlobalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "rules"},
		Short:   "列出编号规则",
		Long: `执行 "ufw status numbered" 并以表格列出解析后的规则。
使用 --json 输出结构化结果, 便于脚本处理。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Each(cmd, "list", func(ctx context.Context, t *target) (string, error) {
				st, err := t.manager.Status(ctx)
				if err != nil {
					return "", err
				}
				if asJSON {
					data, err := json.Marshal(struct {
						Node string `json:"node"`
						ufw.Status
					}{Node: t.name, Status: st})
					return string(data), err
				}
				if len(st.Rules) == 0 {
					return "没有规则", nil
				}
				return renderRules(st.Rules), nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

// renderRules 以表格展示规则, ALLOW 绿色 DENY 红色
func renderRules(rules []ufw.Rule) string {
	rows := make([][]string, len(rules))
	for i, r := range rules {
		rows[i] = []string{strconv.Itoa(r.Index), r.Target(), r.Action.String(), r.Source, r.Comment}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "To", "Action", "From", "Comment").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rules) {
				if rules[row].Action.IsAllow() {
					return allowStyle
				}
				return denyStyle
			}
			return cellStyle
		}).
		String()
}
