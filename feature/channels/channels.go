// Package channels 频道选择模块
package channels

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
const ID = "channels"

// 频道类型
const (
	KindText  = "text"
	KindVoice = "voice"
)

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// Module 频道模块
type Module struct {
	*kit.Base
	logger logging.Logger

	mu       sync.RWMutex
	serverID string
	selected map[string]string // kind -> channel id
}

// New 创建频道模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{selected: map[string]string{}}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Channels",
		Version:      "1.0.0",
		Dependencies: []string{"servers"},
		Routes:       []registry.Route{{Path: "/servers/:serverId/channels/:channelId", View: "ChannelView"}},
	}, bus, m.logger)
	return m
}

func (m *Module) Initialize(ctx context.Context) error {
	kit.Handle(m.Base, events.ServersServerSelected, func(ctx context.Context, p events.ServerSelected) error {
		m.mu.Lock()
		m.serverID = p.ServerID
		m.selected = map[string]string{}
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.ChannelsCommandSelect, m.selectChannel)
	return nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	m.serverID = ""
	m.selected = map[string]string{}
	m.mu.Unlock()
	return nil
}

// Selected 返回当前服务器下指定类型的选中频道
func (m *Module) Selected(kind string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected[kind]
}

func (m *Module) selectChannel(ctx context.Context, cmd events.SelectChannel) error {
	if cmd.ChannelID == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "channel id is required")
	}
	kind := cmd.Kind
	if kind == "" {
		kind = KindText
	}
	if kind != KindText && kind != KindVoice {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "unknown channel kind").WithContext("kind", kind)
	}

	m.mu.Lock()
	if m.serverID == "" {
		m.mu.Unlock()
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "no server selected")
	}
	m.selected[kind] = cmd.ChannelID
	serverID := m.serverID
	m.mu.Unlock()

	m.Emit(ctx, events.ChannelsChannelSelected, events.ChannelSelected{
		ServerID:  serverID,
		ChannelID: cmd.ChannelID,
		Kind:      kind,
	})
	return nil
}
