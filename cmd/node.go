package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wentf9/ufwctl/cmd/utils"
	"github.com/wentf9/ufwctl/global"
	"github.com/wentf9/ufwctl/pkg/config"
	"github.com/wentf9/ufwctl/pkg/models"
)

func NewCmdNode(o *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes", "inventory", "inv"},
		Short:   "管理节点清单",
		Long:    `管理保存在配置文件中的节点: 地址、认证信息、提权方式、跳板机与标签。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(NewCmdNodeAdd(o), NewCmdNodeRemove(o), NewCmdNodeList(o))
	return cmd
}

type NodeAddOptions struct {
	Name     string
	Addr     string
	Port     uint16
	User     string
	Password string
	KeyPath  string
	KeyPass  string
	Alias    []string
	Tags     []string
	Jump     string
	SudoMode string
	SudoPwd  string
}

func NewCmdNodeAdd(o *GlobalOptions) *cobra.Command {
	n := &NodeAddOptions{}
	cmd := &cobra.Command{
		Use:   "add <name> [user@]host[:port]",
		Short: "添加或覆盖一个节点",
		Long: `添加节点到清单, 已存在的同名节点会被覆盖。
未提供密码和私钥时从终端读取 SSH 密码。

示例:
  ufwctl node add web-1 ops@10.0.0.11 -k ~/.ssh/id_ed25519 --tag web --sudo-mode sudoer
  ufwctl node add db-1 root@10.0.1.5:2222 --jump web-1 --sudo-mode none`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := n.Complete(args); err != nil {
				return err
			}
			if err := n.Validate(); err != nil {
				return err
			}
			return n.Run(o)
		},
	}
	cmd.Flags().StringVarP(&n.Password, "password", "P", "", "SSH 密码")
	cmd.Flags().StringVarP(&n.KeyPath, "key", "k", "", "SSH 私钥路径")
	cmd.Flags().StringVarP(&n.KeyPass, "key-pass", "w", "", "私钥密码")
	cmd.Flags().StringSliceVarP(&n.Alias, "alias", "a", nil, "节点别名")
	cmd.Flags().StringSliceVar(&n.Tags, "tags", nil, "节点标签")
	cmd.Flags().StringVarP(&n.Jump, "jump", "j", "", "跳板机节点名称")
	cmd.Flags().StringVar(&n.SudoMode, "sudo-mode", models.SudoSudoer, "提权方式 none|sudo|sudoer|su")
	cmd.Flags().StringVar(&n.SudoPwd, "sudo-pwd", "", "sudo 或 su 使用的密码")
	cmd.MarkFlagsMutuallyExclusive("password", "key")
	return cmd
}

func (n *NodeAddOptions) Complete(args []string) error {
	n.Name = strings.TrimSpace(args[0])
	n.User, n.Addr, n.Port = utils.ParseAddr(args[1])
	if n.User == "" {
		n.User = utils.GetCurrentUser()
	}
	if n.Port == 0 {
		n.Port = 22
	}
	if n.Password == "" && n.KeyPath == "" {
		if !global.IsTerminal {
			return fmt.Errorf("未提供密码或私钥")
		}
		pwd, err := utils.ReadPasswordFromTerminal(fmt.Sprintf("%s@%s 的密码: ", n.User, n.Addr))
		if err != nil {
			return err
		}
		n.Password = pwd
	}
	return nil
}

func (n *NodeAddOptions) Validate() error {
	if n.Name == "" || n.Addr == "" {
		return fmt.Errorf("节点名称和地址不能为空")
	}
	switch n.SudoMode {
	case models.SudoNone, models.SudoSudo, models.SudoSudoer:
	case models.SudoSu:
		if n.SudoPwd == "" {
			return fmt.Errorf("su 提权需要 --sudo-pwd")
		}
	default:
		return fmt.Errorf("未知的提权方式: %s", n.SudoMode)
	}
	if n.Jump == n.Name {
		return fmt.Errorf("节点不能以自身为跳板机")
	}
	return nil
}

func (n *NodeAddOptions) identity() models.Identity {
	if n.KeyPath != "" {
		return models.Identity{User: n.User, AuthType: "key", KeyPath: n.KeyPath, Passphrase: n.KeyPass}
	}
	return models.Identity{User: n.User, AuthType: "password", Password: n.Password}
}

func (n *NodeAddOptions) Run(o *GlobalOptions) error {
	p := o.provider
	if n.Jump != "" && p.Find(n.Jump) == "" {
		return fmt.Errorf("跳板机 %s 不存在", n.Jump)
	}
	if _, exists := p.GetNode(n.Name); exists {
		if err := p.DeleteNode(n.Name); err != nil {
			return err
		}
	}
	p.AddHost(n.Name, models.Host{Address: n.Addr, Port: n.Port})
	p.AddIdentity(n.Name, n.identity())
	p.AddNode(n.Name, models.Node{
		Alias:       n.Alias,
		Tags:        n.Tags,
		HostRef:     n.Name,
		IdentityRef: n.Name,
		ProxyJump:   n.Jump,
		SudoMode:    n.SudoMode,
		SudoPwd:     n.SudoPwd,
	})
	if err := o.Save(); err != nil {
		return err
	}
	fmt.Printf("节点 %s 已保存\n", n.Name)
	return nil
}

func NewCmdNodeRemove(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove", "delete"},
		Short:   "从清单中删除节点",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				id := o.provider.Find(name)
				if id == "" {
					return fmt.Errorf("%w: %s", config.ErrNodeNotFound, name)
				}
				if err := o.provider.DeleteNode(id); err != nil {
					return err
				}
			}
			if err := o.Save(); err != nil {
				return err
			}
			fmt.Printf("已删除 %d 个节点\n", len(args))
			return nil
		},
	}
}

func NewCmdNodeList(o *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "列出节点, 可用 --tag 筛选",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := o.provider
			nodes := p.ListNodes()
			if o.Tag != "" {
				nodes = p.GetNodesByTag(o.Tag)
			}
			if len(nodes) == 0 {
				fmt.Println("没有找到节点")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "名称\t别名\t地址\t用户\t认证\t提权\t跳板机\t标签")
			for _, name := range config.SortedNames(nodes) {
				node := nodes[name]
				host, _ := p.GetHost(node.HostRef)
				identity, _ := p.GetIdentity(node.IdentityRef)
				fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\t%s\t%s\t%s\t%s\n",
					name,
					strings.Join(node.Alias, ","),
					host.Address, host.Port,
					identity.User,
					identity.AuthType,
					node.SudoMode,
					node.ProxyJump,
					strings.Join(node.Tags, ","),
				)
			}
			return w.Flush()
		},
	}
}
