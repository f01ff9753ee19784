package executor

import "context"

// Executor 执行一条 shell 命令并返回合并后的输出 (stdout + stderr)
type Executor interface {
	Run(ctx context.Context, cmd string) (string, error)
	// RunWithSudo 以 root 权限执行, 已是 root 时直接执行
	RunWithSudo(ctx context.Context, cmd string) (string, error)
	// Target 用于日志和输出前缀, 本地为 "localhost"
	Target() string
}
