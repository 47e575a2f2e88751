// Package events 定义功能模块之间共享的事件与命令名称，以及载荷约定
//
// 名称是模块间唯一的公共词汇：事件描述已发生的事实（<domain>:<fact>），
// 命令请求某个模块执行动作（<domain>:command:<action>）。总线不校验载荷，
// 生产者与消费者通过本包的载荷类型保持一致。
package events

// 语音
const (
	VoiceParticipantJoined = "voice:participant-joined"
	VoiceParticipantLeft   = "voice:participant-left"
	VoiceConnected         = "voice:connected"
	VoiceDisconnected      = "voice:disconnected"

	VoiceCommandJoin  = "voice:command:join"
	VoiceCommandLeave = "voice:command:leave"
)

// 频道
const (
	ChannelsChannelSelected = "channels:channel-selected"

	ChannelsCommandSelect = "channels:command:select"
)

// 消息
const (
	MessagingMessageCreated = "messaging:message-created"
	MessagingMessageDeleted = "messaging:message-deleted"

	MessagingCommandSendMessage   = "messaging:command:send-message"
	MessagingCommandDeleteMessage = "messaging:command:delete-message"
)

// 认证
const (
	AuthLoggedIn  = "auth:logged-in"
	AuthLoggedOut = "auth:logged-out"

	AuthCommandLogin  = "auth:command:login"
	AuthCommandLogout = "auth:command:logout"
)

// 服务器
const (
	ServersServerSelected = "servers:server-selected"

	ServersCommandSelect = "servers:command:select"
)

// 设置
const (
	SettingsChanged = "settings:changed"

	SettingsCommandUpdate = "settings:command:update"
)

// 邀请
const (
	InviteAccepted = "invite:accepted"

	InviteCommandAccept = "invite:command:accept"
)

// 管理
const (
	AdminMessageRemoved = "admin:message-removed"

	AdminCommandRemoveMessage = "admin:command:remove-message"
)

// 应用级事件，由启动编排器发布
const (
	AppReady        = "app:ready"
	AppThemeApplied = "app:theme-applied"
)

// MessageRelayDefaults 默认镜像到外部通道的事件
var MessageRelayDefaults = []string{
	MessagingMessageCreated,
	MessagingMessageDeleted,
	VoiceParticipantJoined,
	VoiceParticipantLeft,
}
