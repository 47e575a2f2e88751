package eventbus

import (
	"context"
	"fmt"

	apperrors "projectvoice/errors"
)

// Subscribe 以类型化载荷订阅事件
//
// 载荷既可以是 T 也可以是 *T；类型不符时返回 ErrCodeInvalidInput 错误，
// 由总线按监听器失败处理。
func Subscribe[T any](bus IEventBus, name string, fn func(ctx context.Context, payload T) error) Unsubscribe {
	return bus.On(name, ListenerFunc(func(ctx context.Context, evt *Event) error {
		payload, err := PayloadAs[T](evt)
		if err != nil {
			return err
		}
		return fn(ctx, payload)
	}))
}

// Publish 以类型化载荷发布事件
func Publish[T any](ctx context.Context, bus IEventBus, name string, payload T) {
	bus.Emit(ctx, name, payload)
}

// PayloadAs 将事件载荷断言为 T（接受 *T）
func PayloadAs[T any](evt *Event) (T, error) {
	var zero T
	if evt == nil {
		return zero, apperrors.NewError(apperrors.ErrCodeInvalidInput, "nil event")
	}
	switch p := evt.Payload.(type) {
	case T:
		return p, nil
	case *T:
		if p != nil {
			return *p, nil
		}
	}
	return zero, apperrors.NewError(apperrors.ErrCodeInvalidInput,
		fmt.Sprintf("event %s: unexpected payload type %T, want %T", evt.Name, evt.Payload, zero)).
		WithContext("event", evt.Name)
}
