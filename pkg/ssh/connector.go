package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/wentf9/ufwctl/pkg/config"
	"github.com/wentf9/ufwctl/pkg/logger"
	"github.com/wentf9/ufwctl/pkg/models"
	"github.com/wentf9/ufwctl/pkg/utils/concurrent"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/singleflight"
)

const (
	dialTimeout      = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

// Connector 负责建立并缓存到各节点的 SSH 连接
type Connector struct {
	Config config.ConfigProvider
	// KeepAlive 大于 0 时为每个新连接开启心跳, 用于长时间运行的 mcp 服务
	KeepAlive time.Duration

	clients *concurrent.Map[string, *ssh.Client]
	sf      singleflight.Group
}

func NewConnector(cfg config.ConfigProvider) *Connector {
	return &Connector{
		Config:  cfg,
		clients: concurrent.NewMap[string, *ssh.Client](concurrent.HashString),
	}
}

// Connect 根据节点名称建立 SSH 连接, 配置了 ProxyJump 时递归连接跳板机.
// 并发调用同一节点只会建立一次连接
func (c *Connector) Connect(ctx context.Context, nodeName string) (*Client, error) {
	node, host, identity, err := c.resolve(nodeName)
	if err != nil {
		return nil, err
	}
	if raw, ok := c.clients.Get(nodeName); ok {
		return newClient(raw, node, host, identity), nil
	}

	result, err, _ := c.sf.Do(nodeName, func() (any, error) {
		if raw, ok := c.clients.Get(nodeName); ok {
			return raw, nil
		}

		var dialer Dialer = &net.Dialer{Timeout: dialTimeout}
		if node.ProxyJump != "" {
			jump := c.Config.Find(node.ProxyJump)
			if jump == "" {
				jump = node.ProxyJump
			}
			if jump == nodeName {
				return nil, fmt.Errorf("node '%s' uses itself as proxy jump", nodeName)
			}
			jumpClient, err := c.Connect(ctx, jump)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to jump host '%s': %w", node.ProxyJump, err)
			}
			dialer = &SSHProxyDialer{Client: jumpClient.sshClient}
		}

		sshConfig, err := buildSSHConfig(identity)
		if err != nil {
			return nil, fmt.Errorf("failed to build ssh config for '%s': %w", nodeName, err)
		}

		addr := net.JoinHostPort(host.Address, fmt.Sprint(host.Port))
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial '%s' (%s): %w", nodeName, addr, err)
		}
		ncc, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("ssh handshake failed for '%s': %w", nodeName, err)
		}
		raw := ssh.NewClient(ncc, chans, reqs)
		c.clients.Set(nodeName, raw)
		logger.L().Debug("ssh connected", "node", nodeName, "addr", addr)

		if c.KeepAlive > 0 {
			StartKeepAlive(context.Background(), raw, c.KeepAlive, func(err error) {
				logger.L().Warn("ssh keepalive failed", "node", nodeName, "error", err)
				c.clients.Remove(nodeName)
			})
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return newClient(result.(*ssh.Client), node, host, identity), nil
}

func (c *Connector) resolve(nodeName string) (models.Node, models.Host, models.Identity, error) {
	node, ok := c.Config.GetNode(nodeName)
	if !ok {
		return node, models.Host{}, models.Identity{}, fmt.Errorf("%w: %s", config.ErrNodeNotFound, nodeName)
	}
	host, ok := c.Config.GetHost(node.HostRef)
	if !ok {
		return node, host, models.Identity{}, fmt.Errorf("host ref '%s' not found for node '%s'", node.HostRef, nodeName)
	}
	identity, ok := c.Config.GetIdentity(node.IdentityRef)
	if !ok {
		return node, host, identity, fmt.Errorf("identity ref '%s' not found for node '%s'", node.IdentityRef, nodeName)
	}
	if host.Port == 0 {
		host.Port = 22
	}
	return node, host, identity, nil
}

// CloseAll 关闭所有缓存的连接, 在程序退出前调用
func (c *Connector) CloseAll() {
	c.clients.IterCb(func(_ string, client *ssh.Client) bool {
		client.Close()
		return true
	})
	c.clients.Clear()
}

func buildSSHConfig(id models.Identity) (*ssh.ClientConfig, error) {
	auth, err := authFor(id)
	if err != nil {
		return nil, err
	}
	method, err := auth.GetMethod()
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            id.User,
		Auth:            []ssh.AuthMethod{method},
		HostKeyCallback: hostKeyCallback(),
		Timeout:         handshakeTimeout,
	}, nil
}

// hostKeyCallback 使用 ~/.ssh/known_hosts 校验主机密钥.
// 未登记的主机放行, 密钥与登记不符的主机拒绝
func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err != nil {
		return ssh.InsecureIgnoreHostKey()
	}
	check, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		return ssh.InsecureIgnoreHostKey()
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			logger.L().Warn("host key not in known_hosts", "host", hostname)
			return nil
		}
		return err
	}
}
