package errors

import (
	"context"
	stdErrors "errors"
	"fmt"

	"projectvoice/logging"
)

// WrapWithLog 包装错误并立即记录日志
//
// 用于需要"报告但不上抛"的隔离场景（监听器失败、插件初始化失败、销毁失败）。
// level 决定日志级别，返回包装后的错误以便调用方继续聚合。
func WrapWithLog(ctx context.Context, logger logging.Logger, level logging.Level, err error, code ErrorCode, msg string, fields ...logging.Field) *AppError {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	wrapped := WrapError(err, code, msg)

	all := make([]logging.Field, 0, len(fields)+2)
	all = append(all, logging.Error(err), logging.String("error_code", string(code)))
	all = append(all, fields...)

	switch level {
	case logging.DebugLevel:
		logger.Debug(ctx, msg, all...)
	case logging.InfoLevel:
		logger.Info(ctx, msg, all...)
	case logging.WarnLevel:
		logger.Warn(ctx, msg, all...)
	default:
		logger.Error(ctx, msg, all...)
	}
	return wrapped
}

// ErrPanic 标记由 panic 转换而来的错误
var ErrPanic = stdErrors.New("panic recovered")

// FromPanic 将 recover() 得到的值转换为错误
// recovered 为 nil 时返回 nil
func FromPanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, recovered)
}
