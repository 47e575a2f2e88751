package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
)

// Phase 生命周期阶段
type Phase int

const (
	PhaseInitialize Phase = iota
	PhaseDestroy
)

func (p Phase) String() string {
	if p == PhaseDestroy {
		return "destroy"
	}
	return "initialize"
}

// Wrapper 包装生命周期回调，类似消息总线中间件
//
// 先注册的 Wrapper 位于最外层。
type Wrapper func(desc IDescriptor, phase Phase, next Hook) Hook

// WithTimeout 为每次生命周期调用设置超时
//
// 超时后返回 ErrCodeTimeout，被包装的回调仍在后台继续运行，其结果被丢弃。
// 超时的初始化若之后成功完成，会立即调用该描述符的 Destroy 释放它在后台取得的资源；
// 该条目停留在 InitFailed，DestroyAll 不会再次销毁它。
// d <= 0 时不做任何包装。
func WithTimeout(d time.Duration) Wrapper {
	return func(desc IDescriptor, phase Phase, next Hook) Hook {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			var (
				mu       sync.Mutex
				finished bool
				timedOut bool
			)
			done := make(chan error, 1)
			go func() {
				err := guard(ctx, next)
				mu.Lock()
				finished = true
				late := timedOut
				mu.Unlock()
				done <- err
				if late && err == nil && phase == PhaseInitialize {
					_ = guard(context.Background(), desc.Destroy)
				}
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				mu.Lock()
				if finished {
					mu.Unlock()
					return <-done
				}
				timedOut = true
				mu.Unlock()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return apperrors.NewError(apperrors.ErrCodeTimeout,
						fmt.Sprintf("%s %q did not complete within %s", phase, desc.ID(), d)).
						WithContext("id", desc.ID()).
						WithContext("phase", phase.String())
				}
				return ctx.Err()
			}
		}
	}
}

// guard 调用 hook 并把 panic 转为错误
func guard(ctx context.Context, hook Hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.FromPanic(r)
		}
	}()
	return hook(ctx)
}

// WithLogging 记录每次生命周期调用的耗时与结果
func WithLogging(logger logging.Logger) Wrapper {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return func(desc IDescriptor, phase Phase, next Hook) Hook {
		return func(ctx context.Context) error {
			start := time.Now()
			fields := []logging.Field{
				logging.String("id", desc.ID()),
				logging.String("phase", phase.String()),
			}
			logger.Debug(ctx, "lifecycle call started", fields...)
			err := next(ctx)
			fields = append(fields, logging.Duration("elapsed", time.Since(start)))
			if err != nil {
				logger.Warn(ctx, "lifecycle call failed", append(fields, logging.Error(err))...)
				return err
			}
			logger.Info(ctx, "lifecycle call completed", fields...)
			return nil
		}
	}
}

// compose 按注册顺序组装包装链，并把 panic 转换为错误
func compose(desc IDescriptor, phase Phase, base Hook, wrappers []Wrapper) Hook {
	hook := base
	for i := len(wrappers) - 1; i >= 0; i-- {
		hook = wrappers[i](desc, phase, hook)
	}
	return func(ctx context.Context) error {
		return guard(ctx, hook)
	}
}
