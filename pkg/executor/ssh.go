package executor

import (
	"context"

	"github.com/wentf9/ufwctl/pkg/logger"
	"github.com/wentf9/ufwctl/pkg/ssh"
)

// SSHExecutor 包装 ssh.Client 以满足 Executor 接口
type SSHExecutor struct {
	client *ssh.Client
	name   string
}

func NewSSHExecutor(name string, client *ssh.Client) *SSHExecutor {
	return &SSHExecutor{client: client, name: name}
}

func (e *SSHExecutor) Target() string {
	return e.name
}

func (e *SSHExecutor) Run(ctx context.Context, cmd string) (string, error) {
	logger.L().Debug("exec", "target", e.name, "cmd", cmd)
	return e.client.Run(ctx, cmd)
}

func (e *SSHExecutor) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	logger.L().Debug("exec", "target", e.name, "cmd", cmd, "sudo", true)
	return e.client.RunPrivileged(ctx, cmd)
}
