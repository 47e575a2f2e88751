package events

import "time"

// ParticipantJoined voice:participant-joined
type ParticipantJoined struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Muted     bool   `json:"muted,omitempty"`
}

// ParticipantLeft voice:participant-left
type ParticipantLeft struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// VoiceConnection voice:connected / voice:disconnected
type VoiceConnection struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// JoinVoice voice:command:join
type JoinVoice struct {
	ChannelID string `json:"channel_id"`
	Muted     bool   `json:"muted,omitempty"`
}

// LeaveVoice voice:command:leave
type LeaveVoice struct{}

// ChannelSelected channels:channel-selected
type ChannelSelected struct {
	ServerID  string `json:"server_id"`
	ChannelID string `json:"channel_id"`
	Kind      string `json:"kind"` // text | voice
}

// SelectChannel channels:command:select
type SelectChannel struct {
	ChannelID string `json:"channel_id"`
	Kind      string `json:"kind"`
}

// Message 消息记录
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageCreated messaging:message-created
type MessageCreated struct {
	Message Message `json:"message"`
}

// MessageDeleted messaging:message-deleted
type MessageDeleted struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// SendMessage messaging:command:send-message
//
// ChannelID 为空时使用当前选中的文本频道。
type SendMessage struct {
	ChannelID string `json:"channel_id,omitempty"`
	Content   string `json:"content"`
}

// DeleteMessage messaging:command:delete-message
type DeleteMessage struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Session 认证会话
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"-"`
}

// LoggedIn auth:logged-in
type LoggedIn struct {
	Session Session `json:"session"`
}

// LoggedOut auth:logged-out
type LoggedOut struct {
	UserID string `json:"user_id"`
}

// Login auth:command:login
type Login struct {
	Session Session `json:"session"`
}

// Logout auth:command:logout
type Logout struct{}

// ServerSelected servers:server-selected
type ServerSelected struct {
	ServerID string `json:"server_id"`
}

// SelectServer servers:command:select
type SelectServer struct {
	ServerID string `json:"server_id"`
}

// SettingsChange settings:changed
type SettingsChange struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateSetting settings:command:update
type UpdateSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Invite invite:accepted
type Invite struct {
	Code     string `json:"code"`
	ServerID string `json:"server_id"`
}

// AcceptInvite invite:command:accept
type AcceptInvite struct {
	Code string `json:"code"`
}

// RemoveMessage admin:command:remove-message
type RemoveMessage struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Reason    string `json:"reason,omitempty"`
}

// MessageRemoved admin:message-removed
type MessageRemoved struct {
	ChannelID   string    `json:"channel_id"`
	MessageID   string    `json:"message_id"`
	ModeratorID string    `json:"moderator_id"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// ThemeApplied app:theme-applied
type ThemeApplied struct {
	Name      string            `json:"name,omitempty"`
	Version   string            `json:"version,omitempty"`
	Variables map[string]string `json:"variables"`
}

// Ready app:ready
type Ready struct {
	Modules []string `json:"modules"`
	Plugins []string `json:"plugins"`
	// FailedPlugins 初始化失败被隔离的插件
	FailedPlugins []string `json:"failed_plugins,omitempty"`
}
