package runner

import (
	"context"
	"errors"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/wentf9/ufwctl/pkg/logger"
	"github.com/wentf9/ufwctl/pkg/utils"
)

// ErrTaskPanicked 任务执行中发生 panic
var ErrTaskPanicked = errors.New("task panicked")

// TaskFunc 在单个节点上执行的操作, 返回要展示给用户的输出
type TaskFunc func(ctx context.Context, node string) (string, error)

type Result struct {
	Node   string
	Output string
	Err    error
}

type Options struct {
	Concurrency uint
	// Progress 非空时在其上绘制进度条
	Progress    io.Writer
	Description string
}

// RunParallel 以受限并发在所有节点上执行 task, 结果顺序与 nodes 一致.
// ctx 取消后尚未开始的节点直接返回 ctx.Err()
func RunParallel(ctx context.Context, nodes []string, opts Options, task TaskFunc) []Result {
	results := make([]Result, len(nodes))
	bar := newBar(len(nodes), opts)
	wp := utils.NewWorkerPool(opts.Concurrency, utils.WithPanicHandler(func(r any) {
		logger.L().Error("task panic", "error", utils.PanicError(r))
	}))

	for i, node := range nodes {
		wp.Go(func() {
			res := Result{Node: node, Err: ErrTaskPanicked}
			defer func() {
				results[i] = res
				if bar != nil {
					bar.Add(1)
				}
			}()
			if err := ctx.Err(); err != nil {
				res.Err = err
				return
			}
			res.Output, res.Err = task(ctx, node)
		})
	}
	wp.Wait()
	if bar != nil {
		bar.Finish()
	}
	return results
}

// Failed 返回出错的结果
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

func newBar(total int, opts Options) *progressbar.ProgressBar {
	if opts.Progress == nil || total < 2 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(opts.Progress),
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
