package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewCmdApps(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apps [profile]",
		Short: "列出应用配置, 指定名称时显示其端口",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Each(cmd, "apps", func(ctx context.Context, t *target) (string, error) {
				if len(args) == 0 {
					apps, err := t.manager.Apps(ctx)
					return strings.Join(apps, "\n"), err
				}
				p, err := t.manager.AppInfo(ctx, args[0])
				if err != nil {
					return "", err
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Profile: %s\n", p.Name)
				if p.Title != "" {
					fmt.Fprintf(&b, "Title: %s\n", p.Title)
				}
				if p.Description != "" {
					fmt.Fprintf(&b, "Description: %s\n", p.Description)
				}
				fmt.Fprintf(&b, "Ports: %s", strings.Join(p.Ports, ", "))
				return b.String(), nil
			})
		},
	}
}
