package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/wentf9/ufwctl/pkg/logger"
)

// LocalExecutor 本地执行器
type LocalExecutor struct {
	// SudoPassword 非空时通过 sudo -S 从 stdin 注入
	SudoPassword string
}

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

func (e *LocalExecutor) Target() string {
	return "localhost"
}

func (e *LocalExecutor) Run(ctx context.Context, cmd string) (string, error) {
	return e.run(ctx, cmd, "")
}

func (e *LocalExecutor) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	if os.Geteuid() == 0 || strings.HasPrefix(cmd, "sudo ") {
		return e.run(ctx, cmd, "")
	}
	if e.SudoPassword != "" {
		// -p '': 不输出密码提示, 保持输出干净
		return e.run(ctx, "sudo -S -p '' "+cmd, e.SudoPassword+"\n")
	}
	return e.run(ctx, "sudo -n "+cmd, "")
}

func (e *LocalExecutor) run(ctx context.Context, cmd, stdin string) (string, error) {
	logger.L().Debug("exec", "target", e.Target(), "cmd", cmd)
	// 使用 bash -c 执行以支持复杂的 shell 语法
	c := exec.CommandContext(ctx, "bash", "-c", cmd)
	if stdin != "" {
		c.Stdin = strings.NewReader(stdin)
	}
	out, err := c.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w", err)
	}
	return string(out), nil
}
