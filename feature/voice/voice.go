// Package voice 语音频道模块：维护参与者名单与本地连接状态
//
// 实际媒体传输不在本模块内，本模块只根据命令与远端事件维护状态并发布事件。
package voice

import (
	"context"
	"sort"
	"sync"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ID 模块标识
const ID = "voice"

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// Participant 名单中的参与者
type Participant struct {
	UserID string
	Muted  bool
}

// Module 语音模块
type Module struct {
	*kit.Base
	logger logging.Logger

	mu        sync.RWMutex
	userID    string
	selected  string // 当前选中的语音频道
	connected string // 当前连接的语音频道
	roster    map[string]map[string]Participant
}

// New 创建语音模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{roster: map[string]map[string]Participant{}}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Voice",
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
		m.disconnect(ctx)
		m.mu.Lock()
		m.userID = ""
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.ChannelsChannelSelected, func(ctx context.Context, p events.ChannelSelected) error {
		if p.Kind != "voice" {
			return nil
		}
		m.mu.Lock()
		m.selected = p.ChannelID
		m.mu.Unlock()
		return nil
	})
	kit.Handle(m.Base, events.VoiceParticipantJoined, m.participantJoined)
	kit.Handle(m.Base, events.VoiceParticipantLeft, m.participantLeft)
	kit.Handle(m.Base, events.VoiceCommandJoin, m.join)
	kit.Handle(m.Base, events.VoiceCommandLeave, func(ctx context.Context, _ events.LeaveVoice) error {
		m.disconnect(ctx)
		return nil
	})
	return nil
}

// Destroy 退订并清空状态，不再发布离开事件
func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	m.userID, m.selected, m.connected = "", "", ""
	m.roster = map[string]map[string]Participant{}
	m.mu.Unlock()
	return nil
}

// Connected 返回当前连接的语音频道
func (m *Module) Connected() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Participants 按用户 ID 排序返回频道参与者
func (m *Module) Participants(channelID string) []Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.roster[channelID]
	out := make([]Participant, 0, len(members))
	for _, p := range members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (m *Module) participantJoined(ctx context.Context, p events.ParticipantJoined) error {
	if p.ChannelID == "" || p.UserID == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "participant event requires channel and user")
	}
	m.mu.Lock()
	members := m.roster[p.ChannelID]
	if members == nil {
		members = map[string]Participant{}
		m.roster[p.ChannelID] = members
	}
	members[p.UserID] = Participant{UserID: p.UserID, Muted: p.Muted}
	m.mu.Unlock()
	return nil
}

func (m *Module) participantLeft(ctx context.Context, p events.ParticipantLeft) error {
	m.mu.Lock()
	if members := m.roster[p.ChannelID]; members != nil {
		delete(members, p.UserID)
		if len(members) == 0 {
			delete(m.roster, p.ChannelID)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Module) join(ctx context.Context, cmd events.JoinVoice) error {
	m.mu.RLock()
	userID, channel, current := m.userID, m.selected, m.connected
	m.mu.RUnlock()

	if userID == "" {
		return apperrors.NewError(apperrors.ErrCodeUnauthorized, "join voice requires a session")
	}
	if cmd.ChannelID != "" {
		channel = cmd.ChannelID
	}
	if channel == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "no voice channel selected")
	}
	if channel == current {
		return nil
	}
	if current != "" {
		m.disconnect(ctx)
	}

	m.mu.Lock()
	m.connected = channel
	m.mu.Unlock()

	m.Logger().Info(ctx, "voice connected", logging.String("channel_id", channel))
	m.Emit(ctx, events.VoiceConnected, events.VoiceConnection{ChannelID: channel, UserID: userID})
	m.Emit(ctx, events.VoiceParticipantJoined, events.ParticipantJoined{ChannelID: channel, UserID: userID, Muted: cmd.Muted})
	return nil
}

func (m *Module) disconnect(ctx context.Context) {
	m.mu.Lock()
	userID, channel := m.userID, m.connected
	m.connected = ""
	m.mu.Unlock()

	if channel == "" {
		return
	}
	m.Emit(ctx, events.VoiceParticipantLeft, events.ParticipantLeft{ChannelID: channel, UserID: userID})
	m.Emit(ctx, events.VoiceDisconnected, events.VoiceConnection{ChannelID: channel, UserID: userID})
	m.Logger().Info(ctx, "voice disconnected", logging.String("channel_id", channel))
}
