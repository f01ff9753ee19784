package ssh

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wentf9/ufwctl/pkg/models"
	"golang.org/x/crypto/ssh"
)

// suPromptTimeout su 输出密码提示符的最长等待时间
const suPromptTimeout = 5 * time.Second

// Client 是对 ssh.Client 的封装, 带有节点的提权配置
type Client struct {
	sshClient *ssh.Client
	node      models.Node
	host      models.Host
	identity  models.Identity
}

func newClient(raw *ssh.Client, node models.Node, host models.Host, identity models.Identity) *Client {
	return &Client{sshClient: raw, node: node, host: host, identity: identity}
}

func (c *Client) Close() error {
	return c.sshClient.Close()
}

// SSHClient 暴露底层连接, 供 sftp 使用
func (c *Client) SSHClient() *ssh.Client {
	return c.sshClient
}

func (c *Client) Node() models.Node {
	return c.node
}

// Addr 返回 host:port
func (c *Client) Addr() string {
	return fmt.Sprintf("%s:%d", c.host.Address, c.host.Port)
}

// IsRoot 登录用户本身是否为 root
func (c *Client) IsRoot() bool {
	return c.identity.User == "root" || c.node.SudoMode == models.SudoNone
}

func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()
	return startWithTimeout(ctx, session, cmd)
}

// RunPrivileged 按节点的 SudoMode 以 root 身份执行命令
func (c *Client) RunPrivileged(ctx context.Context, cmd string) (string, error) {
	if c.IsRoot() {
		return c.Run(ctx, cmd)
	}
	switch c.node.SudoMode {
	case models.SudoSudo:
		pwd := c.node.SudoPwd
		if pwd == "" {
			pwd = c.identity.Password
		}
		return c.RunWithSudo(ctx, cmd, pwd)
	case models.SudoSu:
		return c.RunWithSu(ctx, cmd, c.node.SudoPwd)
	default:
		// sudoer 或未配置: 免密 sudo, 需要密码时直接失败而不是挂起
		return c.Run(ctx, "sudo -n "+cmd)
	}
}

// RunWithSudo 通过 stdin 注入密码执行 sudo, 输出中不含提示符
func (c *Client) RunWithSudo(ctx context.Context, cmd string, password string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	if password != "" {
		session.Stdin = strings.NewReader(password + "\n")
	}
	return startWithTimeout(ctx, session, "sudo -S -p '' "+cmd)
}

// RunWithSu 用 su - root -c 执行命令. su 只从终端读密码, 因此需要 PTY
func (c *Client) RunWithSu(ctx context.Context, cmd string, password string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 80, 200, modes); err != nil {
		return "", fmt.Errorf("request for pty failed: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		return "", err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return "", err
	}

	// 强制英文环境, 保证提示符为 "Password:"
	full := fmt.Sprintf("export LC_ALL=C; su - root -c %s", shellQuote(cmd))
	if err := session.Start(full); err != nil {
		return "", fmt.Errorf("failed to start command: %w", err)
	}

	var (
		mu     sync.Mutex
		output bytes.Buffer
	)
	prompt := make(chan struct{})
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]byte, 1024)
		found := false
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				mu.Lock()
				output.Write(buf[:n])
				text := output.String()
				mu.Unlock()
				if !found && isPasswordPrompt(text) {
					found = true
					close(prompt)
				}
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case <-prompt:
		if _, err := stdin.Write([]byte(password + "\n")); err != nil {
			return "", fmt.Errorf("failed to send password: %w", err)
		}
	case <-readDone:
	case <-time.After(suPromptTimeout):
		session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("timeout waiting for su password prompt")
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	}

	err = session.Wait()
	<-readDone
	mu.Lock()
	out := cleanSuOutput(output.String())
	mu.Unlock()
	if err != nil {
		return out, fmt.Errorf("command execution failed: %w", err)
	}
	return out, nil
}

func isPasswordPrompt(text string) bool {
	return strings.Contains(text, "assword:") || strings.Contains(text, "密码")
}

// cleanSuOutput 去掉 PTY 输出中的密码提示行和回车符
func cleanSuOutput(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isPasswordPrompt(trimmed) {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// shellQuote 用单引号包裹参数, 内部单引号转义为 '\''
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// startWithTimeout 启动命令并等待完成, ctx 取消时杀掉远程进程. stdout 与 stderr 合并返回
func startWithTimeout(ctx context.Context, session *ssh.Session, command string) (string, error) {
	var b bytes.Buffer
	session.Stdout = &b
	session.Stderr = &b

	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("failed to start command: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return b.String(), fmt.Errorf("failed to run command: %w", err)
		}
		return b.String(), nil
	case <-ctx.Done():
		if killErr := session.Signal(ssh.SIGKILL); killErr != nil {
			return "", fmt.Errorf("failed to kill command after context done: %w", killErr)
		}
		return "", ctx.Err()
	}
}
