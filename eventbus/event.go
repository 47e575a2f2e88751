// Package eventbus 提供进程内的发布/订阅事件总线
//
// 总线是各功能模块之间唯一的通信通道：生产者与消费者互不持有引用，
// 只共享事件名常量与载荷约定（见 events 包）。
package eventbus

import (
	"context"
	"time"
)

// Wildcard 订阅该名称的监听器会收到所有事件
const Wildcard = "*"

// Event 一次发布的事件信封
type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Payload   any            `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// GetMetadata 获取元数据（惰性初始化）
func (e *Event) GetMetadata() map[string]any {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	return e.Metadata
}

// MetadataString 读取字符串类型的元数据
func (e *Event) MetadataString(key string) string {
	if e.Metadata == nil {
		return ""
	}
	s, _ := e.Metadata[key].(string)
	return s
}

// IListener 事件监听器接口
//
// 返回的错误（以及 panic）会被总线记录为 ListenerFailure，不影响其他监听器。
type IListener interface {
	Handle(ctx context.Context, evt *Event) error
}

// ListenerFunc 函数适配器
//
// 函数值不可比较，因此同一函数多次 On 会产生多个独立订阅，
// 只能通过 On 返回的 Unsubscribe 移除。
type ListenerFunc func(ctx context.Context, evt *Event) error

// Handle 实现 IListener
func (f ListenerFunc) Handle(ctx context.Context, evt *Event) error {
	return f(ctx, evt)
}

// Unsubscribe 取消订阅能力，重复调用为空操作
type Unsubscribe func()

func noopUnsubscribe() {}

// IEventBus 事件总线接口
type IEventBus interface {
	On(name string, listener IListener) Unsubscribe
	Once(name string, listener IListener) Unsubscribe
	Off(name string, listener IListener)
	Emit(ctx context.Context, name string, payload any)
	Clear()
	ListenerCount(name string) int
}
