package ufw

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPort    = errors.New("invalid port")
	ErrInvalidAddress = errors.New("invalid address")
	ErrNoSuchRule     = errors.New("no such rule")
	ErrNotInstalled   = errors.New("ufw not installed")
)

// CommandError 表示 ufw 命令执行失败, Output 为工具原始输出
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("ufw command %q failed: %s", e.Command, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// toolError 找出 ufw 以退出码 0 返回但打印了 "ERROR:" 的情况
func toolError(output string) error {
	for _, line := range strings.Split(output, "\n") {
		if msg, ok := strings.CutPrefix(strings.TrimSpace(line), "ERROR:"); ok {
			return errors.New(strings.TrimSpace(msg))
		}
	}
	return nil
}
