// Package invite 邀请模块：接受邀请后切换到对应服务器
package invite

import (
	"context"
	"strings"
	"sync"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
)

// ID 模块标识
const ID = "invite"

// IResolver 将邀请码解析为服务器 ID
type IResolver interface {
	Resolve(ctx context.Context, code string) (string, error)
}

// ResolverFunc 函数形式的 IResolver
type ResolverFunc func(ctx context.Context, code string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

// StaticResolver 固定映射表
type StaticResolver map[string]string

func (r StaticResolver) Resolve(ctx context.Context, code string) (string, error) {
	if id, ok := r[code]; ok {
		return id, nil
	}
	return "", apperrors.NewError(apperrors.ErrCodeNotFound, "unknown invite code").WithContext("code", code)
}

// codeResolver 离线模式：邀请码形如 "<server id>" 或 "<server id>.<token>"
func codeResolver(ctx context.Context, code string) (string, error) {
	id, _, _ := strings.Cut(code, ".")
	return id, nil
}

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// WithResolver 替换邀请码解析
func WithResolver(r IResolver) Option {
	return func(m *Module) {
		if r != nil {
			m.resolver = r
		}
	}
}

// Module 邀请模块
type Module struct {
	*kit.Base
	logger   logging.Logger
	resolver IResolver

	mu       sync.Mutex
	accepted []events.Invite
}

// New 创建邀请模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{resolver: ResolverFunc(codeResolver)}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Invites",
		Version:      "1.0.0",
		Dependencies: []string{"servers"},
		Routes:       []registry.Route{{Path: "/invite/:code", View: "InviteView"}},
	}, bus, m.logger)
	return m
}

func (m *Module) Initialize(ctx context.Context) error {
	kit.Handle(m.Base, events.InviteCommandAccept, m.accept)
	return nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	return nil
}

// Accepted 返回已接受邀请的副本
func (m *Module) Accepted() []events.Invite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Invite(nil), m.accepted...)
}

func (m *Module) accept(ctx context.Context, cmd events.AcceptInvite) error {
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "invite code is required")
	}
	serverID, err := m.resolver.Resolve(ctx, code)
	if err != nil {
		return err
	}
	if serverID == "" {
		return apperrors.NewError(apperrors.ErrCodeNotFound, "invite resolved to no server").WithContext("code", code)
	}

	inv := events.Invite{Code: code, ServerID: serverID}
	m.mu.Lock()
	m.accepted = append(m.accepted, inv)
	m.mu.Unlock()

	m.Emit(ctx, events.InviteAccepted, inv)
	m.Emit(ctx, events.ServersCommandSelect, events.SelectServer{ServerID: serverID})
	return nil
}
