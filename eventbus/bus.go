package eventbus

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
)

// HandlerFunc 中间件链中的执行单元，对应一次监听器调用
type HandlerFunc func(ctx context.Context, evt *Event) error

// IMiddleware 包裹每一次监听器调用
type IMiddleware interface {
	Handle(ctx context.Context, evt *Event, next HandlerFunc) error
	Name() string
}

// ErrorHandler 监听器失败观察者
type ErrorHandler func(ctx context.Context, evt *Event, err error)

// Option 总线配置
type Option func(*Bus)

// WithLogger 设置日志
func WithLogger(logger logging.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithErrorHandler 设置监听器失败观察者（在记录日志之后调用）
func WithErrorHandler(fn ErrorHandler) Option {
	return func(b *Bus) {
		b.onError = fn
	}
}

// WithIDGenerator 覆盖事件 ID 生成器（默认 uuid）
func WithIDGenerator(fn func() string) Option {
	return func(b *Bus) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithClock 覆盖时间来源
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

type subscription struct {
	listener IListener
	// key 用于 On 去重，不可比较的监听器为 nil
	key any
	// match 用于 Off 匹配
	match any
}

// Bus 同步事件总线
//
// 特性:
//   - Emit 在调用方 goroutine 中按订阅顺序同步投递，不等待监听器启动的异步工作
//   - 投递基于发布时刻的订阅快照，投递过程中的订阅/退订不影响本次投递
//   - 每个监听器独立隔离：错误与 panic 被记录，不阻断后续监听器
//   - 允许重入发布，递归深度由调用方负责
//   - 订阅表由互斥锁保护，监听器执行期间不持锁
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]*subscription
	middlewares []IMiddleware

	logger  logging.Logger
	onError ErrorHandler
	newID   func() string
	now     func() time.Time
}

// New 创建事件总线
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string][]*subscription),
		logger: logging.Component("eventbus"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Use 注册中间件，按注册顺序由外到内包裹监听器调用
func (b *Bus) Use(middleware IMiddleware) {
	if middleware == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, middleware)
}

// On 订阅事件，返回仅移除本次订阅的能力
//
// 可比较且与已有订阅相等的监听器不会重复登记，返回的 Unsubscribe 指向已有订阅。
func (b *Bus) On(name string, listener IListener) Unsubscribe {
	if listener == nil {
		return noopUnsubscribe
	}
	key := listenerKey(listener)

	b.mu.Lock()
	if key != nil {
		for _, existing := range b.subs[name] {
			if sameKey(existing.key, key) {
				b.mu.Unlock()
				return b.unsubscriber(name, existing)
			}
		}
	}
	sub := &subscription{listener: listener, key: key, match: key}
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	return b.unsubscriber(name, sub)
}

// Once 订阅事件，首次投递前自动退订
func (b *Bus) Once(name string, listener IListener) Unsubscribe {
	if listener == nil {
		return noopUnsubscribe
	}
	wrapper := &onceListener{inner: listener}
	sub := &subscription{listener: wrapper, match: listenerKey(listener)}
	wrapper.unsub = b.unsubscriber(name, sub)

	b.mu.Lock()
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	return wrapper.unsub
}

// Off 移除与 listener 相等的订阅（包括 Once 订阅），不存在时为空操作
func (b *Bus) Off(name string, listener IListener) {
	key := listenerKey(listener)
	if key == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	kept := subs[:0:0]
	for _, sub := range subs {
		if !sameKey(sub.match, key) {
			kept = append(kept, sub)
		}
	}
	b.store(name, kept)
}

// Emit 同步发布事件
//
// 无订阅者时为空操作；监听器失败只记录日志并通知 ErrorHandler。
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.RLock()
	exact := b.subs[name]
	var wildcard []*subscription
	if name != Wildcard {
		wildcard = b.subs[Wildcard]
	}
	if len(exact) == 0 && len(wildcard) == 0 {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]*subscription, 0, len(exact)+len(wildcard))
	snapshot = append(snapshot, exact...)
	snapshot = append(snapshot, wildcard...)
	middlewares := b.middlewares
	b.mu.RUnlock()

	evt := &Event{
		ID:        b.newID(),
		Name:      name,
		Payload:   payload,
		Timestamp: b.now(),
		Metadata:  make(map[string]any),
	}

	for _, sub := range snapshot {
		b.deliver(ctx, evt, sub.listener, middlewares)
	}
}

// Clear 清空所有订阅，仅用于整体拆除或测试重置
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]*subscription)
}

// ListenerCount 返回指定事件名的存活订阅数
func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Names 返回当前有订阅的事件名（排序）
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Bus) deliver(ctx context.Context, evt *Event, listener IListener, middlewares []IMiddleware) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = apperrors.FromPanic(r)
			}
		}()
		err = chain(listener, middlewares)(ctx, evt)
	}()
	if err == nil {
		return
	}

	failure := apperrors.WrapWithLog(ctx, b.logger, logging.ErrorLevel, err, apperrors.ErrCodeListener,
		"event listener failed",
		logging.String("event", evt.Name),
		logging.String("event_id", evt.ID),
	).WithContext("event", evt.Name)

	if b.onError != nil {
		b.onError(ctx, evt, failure)
	}
}

func (b *Bus) unsubscriber(name string, sub *subscription) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, sub) })
	}
}

func (b *Bus) remove(name string, target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, sub := range subs {
		if sub == target {
			kept := make([]*subscription, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			kept = append(kept, subs[i+1:]...)
			b.store(name, kept)
			return
		}
	}
}

// store 写回订阅列表，最后一个订阅移除时删除条目；调用方持有写锁
func (b *Bus) store(name string, subs []*subscription) {
	if len(subs) == 0 {
		delete(b.subs, name)
		return
	}
	b.subs[name] = subs
}

func chain(listener IListener, middlewares []IMiddleware) HandlerFunc {
	next := HandlerFunc(listener.Handle)
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		inner := next
		next = func(ctx context.Context, evt *Event) error {
			return mw.Handle(ctx, evt, inner)
		}
	}
	return next
}

type onceListener struct {
	inner IListener
	fired atomic.Bool
	unsub Unsubscribe
}

func (l *onceListener) Handle(ctx context.Context, evt *Event) error {
	if !l.fired.CompareAndSwap(false, true) {
		return nil
	}
	if l.unsub != nil {
		l.unsub()
	}
	return l.inner.Handle(ctx, evt)
}

// listenerKey 可比较的监听器以自身为键，否则返回 nil
func listenerKey(listener IListener) any {
	if listener == nil {
		return nil
	}
	if !reflect.TypeOf(listener).Comparable() {
		return nil
	}
	return listener
}

// sameKey 比较两个键；含不可比较动态值的结构体在比较时会 panic，视为不相等
func sameKey(a, b any) (equal bool) {
	if a == nil || b == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
