// Package relay 把选定的总线事件镜像到外部通道（NATS JetStream、Redis Streams）
//
// 镜像是旁路行为：监听器只把记录放入有界队列，由后台协程发送；
// 队列满时丢弃并计入失败，发送失败只记录日志，都不回传给发布者。
package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ISink 外部通道
type ISink interface {
	// Name 通道名，用于插件 ID（relay.<name>）
	Name() string
	Open(ctx context.Context) error
	Send(ctx context.Context, rec Record) error
	Close() error
}

// Option 插件选项
type Option func(*Plugin)

// WithEvents 设置镜像的事件名，可使用 eventbus.Wildcard
func WithEvents(names ...string) Option {
	return func(p *Plugin) {
		if len(names) > 0 {
			p.names = append([]string(nil), names...)
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(p *Plugin) { p.logger = logger }
}

// WithBuffer 设置待发送队列容量，默认 DefaultBuffer
func WithBuffer(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithSendTimeout 设置单条记录的发送时限，默认 DefaultSendTimeout
func WithSendTimeout(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.sendTimeout = d
		}
	}
}

// 队列与发送默认值
const (
	DefaultBuffer      = 256
	DefaultSendTimeout = 5 * time.Second
)

// Stats 发送统计
type Stats struct {
	Sent   int64
	Failed int64
}

// Plugin 事件镜像插件
type Plugin struct {
	*kit.Base
	sink        ISink
	names       []string
	logger      logging.Logger
	buffer      int
	sendTimeout time.Duration

	// mu 保护 queue：forward 持读锁入队，Destroy 持写锁关闭
	mu    sync.RWMutex
	queue chan Record
	done  chan struct{}

	sent   atomic.Int64
	failed atomic.Int64
}

// New 创建镜像插件，默认镜像 events.MessageRelayDefaults
func New(bus eventbus.IEventBus, sink ISink, opts ...Option) *Plugin {
	p := &Plugin{
		sink:        sink,
		names:       append([]string(nil), events.MessageRelayDefaults...),
		buffer:      DefaultBuffer,
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Base = kit.NewBase(registry.Metadata{
		ID:      "relay." + sink.Name(),
		Name:    "Event relay (" + sink.Name() + ")",
		Version: "1.0.0",
	}, bus, p.logger)
	return p
}

// Initialize 打开通道，启动发送协程后订阅事件
func (p *Plugin) Initialize(ctx context.Context) error {
	if err := p.sink.Open(ctx); err != nil {
		return err
	}
	queue := make(chan Record, p.buffer)
	done := make(chan struct{})
	p.mu.Lock()
	p.queue, p.done = queue, done
	p.mu.Unlock()
	go p.loop(queue, done)

	for _, name := range p.names {
		p.Listen(name, p.forward)
	}
	p.Logger().Info(ctx, "relay started", logging.Strings("events", p.names))
	return nil
}

// Destroy 退订后发送完队列中的记录再关闭通道
//
// ctx 结束时不再等待剩余记录，直接关闭通道。
func (p *Plugin) Destroy(ctx context.Context) error {
	p.Release()

	p.mu.Lock()
	queue, done := p.queue, p.done
	p.queue, p.done = nil, nil
	p.mu.Unlock()

	if queue != nil {
		close(queue)
		select {
		case <-done:
		case <-ctx.Done():
			p.Logger().Warn(ctx, "relay stopped before queue drained", logging.Int("pending", len(queue)))
		}
	}
	return p.sink.Close()
}

// Events 返回镜像的事件名
func (p *Plugin) Events() []string {
	return append([]string(nil), p.names...)
}

// Stats 返回发送统计
func (p *Plugin) Stats() Stats {
	return Stats{Sent: p.sent.Load(), Failed: p.failed.Load()}
}

func (p *Plugin) forward(ctx context.Context, evt *eventbus.Event) error {
	rec, err := Encode(evt)
	if err != nil {
		p.fail(ctx, evt.Name, evt.ID, "relay encode failed", err)
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.queue == nil {
		return nil
	}
	select {
	case p.queue <- rec:
	default:
		p.fail(ctx, rec.Name, rec.ID, "relay queue full, event dropped", nil)
	}
	return nil
}

// loop 逐条发送直到 queue 被关闭
func (p *Plugin) loop(queue <-chan Record, done chan<- struct{}) {
	defer close(done)
	for rec := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
		err := p.sink.Send(ctx, rec)
		cancel()
		if err != nil {
			p.fail(context.Background(), rec.Name, rec.ID, "relay send failed", err)
			continue
		}
		p.sent.Add(1)
	}
}

func (p *Plugin) fail(ctx context.Context, name, id, msg string, err error) {
	p.failed.Add(1)
	fields := []logging.Field{logging.String("event", name), logging.String("event_id", id)}
	if err != nil {
		fields = append(fields, logging.Error(err))
	}
	p.Logger().Warn(ctx, msg, fields...)
}
