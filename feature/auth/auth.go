// Package auth 认证模块：维护当前会话
package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ID 模块标识
const ID = "auth"

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// WithTokenGenerator 替换会话令牌生成
func WithTokenGenerator(fn func() string) Option {
	return func(m *Module) {
		if fn != nil {
			m.newToken = fn
		}
	}
}

// Module 认证模块
type Module struct {
	*kit.Base
	logger   logging.Logger
	newToken func() string

	mu      sync.RWMutex
	session *events.Session
}

// New 创建认证模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{newToken: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:      ID,
		Name:    "Authentication",
		Version: "1.0.0",
		Routes: []registry.Route{
			{Path: "/login", View: "LoginView"},
			{Path: "/register", View: "RegisterView"},
		},
	}, bus, m.logger)
	return m
}

func (m *Module) Initialize(ctx context.Context) error {
	kit.Handle(m.Base, events.AuthCommandLogin, m.login)
	kit.Handle(m.Base, events.AuthCommandLogout, m.logout)
	return nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return nil
}

// Session 返回当前会话
func (m *Module) Session() (events.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return events.Session{}, false
	}
	return *m.session, true
}

func (m *Module) login(ctx context.Context, cmd events.Login) error {
	if cmd.Session.Username == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "username is required")
	}
	next := cmd.Session
	if next.UserID == "" {
		next.UserID = uuid.NewString()
	}
	if next.Token == "" {
		next.Token = m.newToken()
	}

	m.mu.Lock()
	prev := m.session
	m.session = &next
	m.mu.Unlock()

	if prev != nil {
		m.Emit(ctx, events.AuthLoggedOut, events.LoggedOut{UserID: prev.UserID})
	}
	m.Logger().Info(ctx, "user logged in", logging.String("user_id", next.UserID))
	m.Emit(ctx, events.AuthLoggedIn, events.LoggedIn{Session: next})
	return nil
}

func (m *Module) logout(ctx context.Context, _ events.Logout) error {
	m.mu.Lock()
	prev := m.session
	m.session = nil
	m.mu.Unlock()

	if prev == nil {
		return nil
	}
	m.Logger().Info(ctx, "user logged out", logging.String("user_id", prev.UserID))
	m.Emit(ctx, events.AuthLoggedOut, events.LoggedOut{UserID: prev.UserID})
	return nil
}
