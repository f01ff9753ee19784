package global

import (
	"os"

	"golang.org/x/term"
)

var (
	// IsTerminal 标准输入是否为交互终端, false 表示管道或重定向
	IsTerminal = term.IsTerminal(int(os.Stdin.Fd()))
	// StderrIsTerminal 为真时才绘制进度条
	StderrIsTerminal = term.IsTerminal(int(os.Stderr.Fd()))
)
