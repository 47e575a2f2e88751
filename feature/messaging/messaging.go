// Package messaging 文本消息模块
package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ID 模块标识
const ID = "messaging"

// Draft 待发送的消息
type Draft struct {
	ChannelID string
	AuthorID  string
	Content   string
}

// ISender 消息发送通道，返回服务端确认后的消息
type ISender interface {
	Send(ctx context.Context, draft Draft) (events.Message, error)
}

// LocalSender 本地发送：生成 uuid 作为消息 ID，不经过网络
type LocalSender struct {
	now func() time.Time
}

// NewLocalSender 创建本地发送器，now 为 nil 时使用 time.Now
func NewLocalSender(now func() time.Time) *LocalSender {
	if now == nil {
		now = time.Now
	}
	return &LocalSender{now: now}
}

func (s *LocalSender) Send(ctx context.Context, draft Draft) (events.Message, error) {
	return events.Message{
		ID:        uuid.NewString(),
		ChannelID: draft.ChannelID,
		AuthorID:  draft.AuthorID,
		Content:   draft.Content,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// WithSender 替换消息发送通道
func WithSender(sender ISender) Option {
	return func(m *Module) {
		if sender != nil {
			m.sender = sender
		}
	}
}

// Module 消息模块
type Module struct {
	*kit.Base
	logger logging.Logger
	sender ISender

	mu      sync.RWMutex
	userID  string
	channel string
}

// New 创建消息模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{sender: NewLocalSender(nil)}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Messaging",
		Version:      "1.0.0",
		Dependencies: []string{"auth", "channels"},
	}, bus, m.logger)
	return m
}

func (m *Module) Initialize(ctx context.Context) error {
	kit.Handle(m.Base, events.AuthLoggedIn, func(ctx context.Context, p events.LoggedIn) error {
		m.mu.Lock()
		m.userID = p.Session.UserID
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.AuthLoggedOut, func(ctx context.Context, _ events.LoggedOut) error {
		m.mu.Lock()
		m.userID = ""
		m.channel = ""
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.ServersServerSelected, func(ctx context.Context, _ events.ServerSelected) error {
		m.mu.Lock()
		m.channel = ""
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.ChannelsChannelSelected, func(ctx context.Context, p events.ChannelSelected) error {
		if p.Kind != "" && p.Kind != "text" {
			return nil
		}
		m.mu.Lock()
		m.channel = p.ChannelID
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.MessagingCommandSendMessage, m.send)
	kit.Handle(m.Base, events.MessagingCommandDeleteMessage, m.delete)
	return nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	m.userID, m.channel = "", ""
	m.mu.Unlock()
	return nil
}

// ActiveChannel 返回当前文本频道
func (m *Module) ActiveChannel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channel
}

func (m *Module) send(ctx context.Context, cmd events.SendMessage) error {
	if cmd.Content == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "message content is empty")
	}
	m.mu.RLock()
	userID, channel := m.userID, m.channel
	m.mu.RUnlock()

	if userID == "" {
		return apperrors.NewError(apperrors.ErrCodeUnauthorized, "send message requires a session")
	}
	if cmd.ChannelID != "" {
		channel = cmd.ChannelID
	}
	if channel == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "no text channel selected")
	}

	msg, err := m.sender.Send(ctx, Draft{ChannelID: channel, AuthorID: userID, Content: cmd.Content})
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "send message").WithContext("channel_id", channel)
	}
	m.Emit(ctx, events.MessagingMessageCreated, events.MessageCreated{Message: msg})
	return nil
}

func (m *Module) delete(ctx context.Context, cmd events.DeleteMessage) error {
	if cmd.ChannelID == "" || cmd.MessageID == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "channel id and message id are required")
	}
	m.Emit(ctx, events.MessagingMessageDeleted, events.MessageDeleted{
		ChannelID: cmd.ChannelID,
		MessageID: cmd.MessageID,
	})
	return nil
}
