package utils

import (
	"fmt"
	"sync"
)

// DefaultConcurrency 未指定并发数时的上限
const DefaultConcurrency = 5

// WorkerPool 限制同时运行的任务数
type WorkerPool interface {
	// Go 提交任务, 用法与 sync.WaitGroup.Go 一致
	Go(task func())
	Wait()
}

type defaultWorkerPool struct {
	limit        chan struct{}
	wg           sync.WaitGroup
	panicHandler func(any)
}

type Option func(*defaultWorkerPool)

// WithPanicHandler 捕获任务中的 panic, 未设置时 panic 照常传播
func WithPanicHandler(handler func(any)) Option {
	return func(wp *defaultWorkerPool) {
		wp.panicHandler = handler
	}
}

func NewWorkerPool(maxConcurrent uint, options ...Option) WorkerPool {
	if maxConcurrent == 0 {
		maxConcurrent = DefaultConcurrency
	}
	wp := &defaultWorkerPool{limit: make(chan struct{}, maxConcurrent)}
	for _, option := range options {
		option(wp)
	}
	return wp
}

func (wp *defaultWorkerPool) Go(task func()) {
	wp.wg.Go(func() {
		wp.limit <- struct{}{}
		defer func() { <-wp.limit }()
		if wp.panicHandler != nil {
			defer func() {
				if r := recover(); r != nil {
					wp.panicHandler(r)
				}
			}()
		}
		task()
	})
}

func (wp *defaultWorkerPool) Wait() {
	wp.wg.Wait()
}

// PanicError 把 recover 得到的值包装为 error
func PanicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
