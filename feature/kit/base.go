// Package kit 为功能模块提供公共骨架：描述符元数据、总线订阅跟踪与日志
//
// 功能模块嵌入 *Base 获得 ID/Name/Version/Dependencies/Routes，
// 自行实现 Initialize/Destroy；Initialize 中通过 Handle/Listen 订阅，
// Destroy 中调用 Release 一次性退订。
package kit

import (
	"context"
	"sync"

	"projectvoice/eventbus"
	"projectvoice/logging"
	"projectvoice/registry"
)

// Base 功能模块骨架
type Base struct {
	meta   registry.Metadata
	bus    eventbus.IEventBus
	logger logging.Logger

	mu   sync.Mutex
	subs []eventbus.Unsubscribe
}

// NewBase 创建骨架，logger 为 nil 时使用带 module 字段的默认日志器
func NewBase(meta registry.Metadata, bus eventbus.IEventBus, logger logging.Logger) *Base {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Base{
		meta:   meta,
		bus:    bus,
		logger: logger.WithFields(logging.String("module", meta.ID)),
	}
}

func (b *Base) ID() string { return b.meta.ID }

func (b *Base) Name() string {
	if b.meta.Name == "" {
		return b.meta.ID
	}
	return b.meta.Name
}

func (b *Base) Version() string { return b.meta.Version }

func (b *Base) Dependencies() []string { return b.meta.Dependencies }

func (b *Base) Routes() []registry.Route { return b.meta.Routes }

// Bus 返回事件总线
func (b *Base) Bus() eventbus.IEventBus { return b.bus }

// Logger 返回模块日志器
func (b *Base) Logger() logging.Logger { return b.logger }

// Track 记录一个需要在 Release 时调用的退订函数
func (b *Base) Track(unsub eventbus.Unsubscribe) {
	if unsub == nil {
		return
	}
	b.mu.Lock()
	b.subs = append(b.subs, unsub)
	b.mu.Unlock()
}

// Listen 订阅原始事件
func (b *Base) Listen(name string, fn eventbus.ListenerFunc) {
	b.Track(b.bus.On(name, fn))
}

// Handle 以类型化载荷订阅事件
func Handle[T any](b *Base, name string, fn func(ctx context.Context, payload T) error) {
	b.Track(eventbus.Subscribe(b.bus, name, fn))
}

// Emit 发布事件
func (b *Base) Emit(ctx context.Context, name string, payload any) {
	b.bus.Emit(ctx, name, payload)
}

// Release 退订全部已跟踪的订阅，返回退订数量
func (b *Base) Release() int {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	return len(subs)
}

// Subscriptions 当前跟踪的订阅数量
func (b *Base) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
