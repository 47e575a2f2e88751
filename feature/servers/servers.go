// Package servers 服务器（社区）选择模块
package servers

import (
	"context"
	"sync"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ID 模块标识
const ID = "servers"

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// Module 服务器模块
type Module struct {
	*kit.Base
	logger logging.Logger

	mu       sync.RWMutex
	userID   string
	selected string
}

// New 创建服务器模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Servers",
		Version:      "1.0.0",
		Dependencies: []string{"auth"},
		Routes: []registry.Route{
			{Path: "/servers", View: "ServerListView"},
			{Path: "/servers/:serverId", View: "ServerView"},
		},
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
		m.selected = ""
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.ServersCommandSelect, m.selectServer)
	return nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	m.userID, m.selected = "", ""
	m.mu.Unlock()
	return nil
}

// Selected 返回当前选中的服务器
func (m *Module) Selected() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

func (m *Module) selectServer(ctx context.Context, cmd events.SelectServer) error {
	if cmd.ServerID == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "server id is required")
	}
	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return apperrors.NewError(apperrors.ErrCodeUnauthorized, "select server requires a session")
	}
	if m.selected == cmd.ServerID {
		m.mu.Unlock()
		return nil
	}
	m.selected = cmd.ServerID
	m.mu.Unlock()

	m.Emit(ctx, events.ServersServerSelected, events.ServerSelected{ServerID: cmd.ServerID})
	return nil
}
