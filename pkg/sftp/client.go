package sftp

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/sftp"
	"github.com/wentf9/ufwctl/pkg/ssh"
)

// Client 包装 sftp.Client, 在已建立的 ssh 连接(含跳板机隧道)上读写远程文件.
// 实现 ufw.FileSystem, 仅适用于以 root 登录的节点
type Client struct {
	sftpClient *sftp.Client
}

// NewClient 在 ssh 连接上打开 sftp 子系统
func NewClient(sshCli *ssh.Client) (*Client, error) {
	client, err := sftp.NewClient(sshCli.SSHClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp subsystem: %w", err)
	}
	return &Client{sftpClient: client}, nil
}

// Wrap 使用已有的 sftp.Client
func Wrap(client *sftp.Client) *Client {
	return &Client{sftpClient: client}
}

// SFTPClient 返回底层对象
func (c *Client) SFTPClient() *sftp.Client {
	return c.sftpClient
}

// Close 只关闭 sftp 会话, 不关闭底层 ssh 连接
func (c *Client) Close() error {
	return c.sftpClient.Close()
}

func (c *Client) ReadFile(name string) ([]byte, error) {
	f, err := c.sftpClient.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open remote %s: %w", name, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (c *Client) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f, err := c.sftpClient.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write remote %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.sftpClient.Chmod(name, perm)
}
