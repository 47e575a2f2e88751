// Package admin 管理模块：消息审核与审计记录
package admin

import (
	"context"
	"sync"
	"time"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ID 模块标识
const ID = "admin"

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.now = now
		}
	}
}

// WithAuditLimit 审计记录保留条数，<= 0 表示不限
func WithAuditLimit(n int) Option {
	return func(m *Module) { m.limit = n }
}

// Module 管理模块
type Module struct {
	*kit.Base
	logger logging.Logger
	now    func() time.Time
	limit  int

	mu     sync.RWMutex
	userID string
	server string
	audit  []events.MessageRemoved
}

// New 创建管理模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{now: time.Now, limit: 500}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Administration",
		Version:      "1.0.0",
		Dependencies: []string{"auth", "servers"},
		Routes:       []registry.Route{{Path: "/servers/:serverId/admin", View: "AdminView"}},
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
		m.userID, m.server = "", ""
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.ServersServerSelected, func(ctx context.Context, p events.ServerSelected) error {
		m.mu.Lock()
		m.server = p.ServerID
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.AdminCommandRemoveMessage, m.removeMessage)
	return nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	m.userID, m.server = "", ""
	m.mu.Unlock()
	return nil
}

// Audit 返回审计记录副本，最早的在前
func (m *Module) Audit() []events.MessageRemoved {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]events.MessageRemoved(nil), m.audit...)
}

func (m *Module) removeMessage(ctx context.Context, cmd events.RemoveMessage) error {
	if cmd.ChannelID == "" || cmd.MessageID == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "channel id and message id are required")
	}
	m.mu.RLock()
	moderator, server := m.userID, m.server
	m.mu.RUnlock()
	if moderator == "" {
		return apperrors.NewError(apperrors.ErrCodeUnauthorized, "remove message requires a session")
	}
	if server == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "no server selected")
	}

	m.Emit(ctx, events.MessagingCommandDeleteMessage, events.DeleteMessage{
		ChannelID: cmd.ChannelID,
		MessageID: cmd.MessageID,
	})

	record := events.MessageRemoved{
		ChannelID:   cmd.ChannelID,
		MessageID:   cmd.MessageID,
		ModeratorID: moderator,
		Reason:      cmd.Reason,
		At:          m.now().UTC(),
	}
	m.mu.Lock()
	m.audit = append(m.audit, record)
	if m.limit > 0 && len(m.audit) > m.limit {
		m.audit = append([]events.MessageRemoved(nil), m.audit[len(m.audit)-m.limit:]...)
	}
	m.mu.Unlock()

	m.Logger().Info(ctx, "message removed",
		logging.String("server_id", server),
		logging.String("channel_id", cmd.ChannelID),
		logging.String("message_id", cmd.MessageID),
		logging.String("moderator_id", moderator))
	m.Emit(ctx, events.AdminMessageRemoved, record)
	return nil
}
