// Package settings 用户偏好模块，持久化到 settingsstore
package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/feature/kit"
	"projectvoice/logging"
	"projectvoice/registry"
	"projectvoice/settingsstore"
)

// ID 模块标识
const ID = "settings"

// DefaultPath 未注入存储且未指定 DSN 时使用的数据库文件，位于用户配置目录下
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "resolve user config dir")
	}
	return filepath.Join(dir, "projectvoice", "settings.db"), nil
}

// IStore 偏好存储
type IStore interface {
	Get(ctx context.Context, userID, key string) (string, bool, error)
	Set(ctx context.Context, userID, key, value string) error
	All(ctx context.Context, userID string) (map[string]string, error)
}

// Option 模块选项
type Option func(*Module)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

// WithStore 注入存储，模块不负责关闭
func WithStore(store IStore) Option {
	return func(m *Module) { m.store = store }
}

// WithDSN 未注入存储时使用的 DSN，为空时使用 DefaultPath
func WithDSN(dsn string) Option {
	return func(m *Module) {
		if dsn != "" {
			m.dsn = dsn
		}
	}
}

// Module 设置模块
type Module struct {
	*kit.Base
	logger logging.Logger
	dsn    string

	mu     sync.RWMutex
	store  IStore
	owned  *settingsstore.Store
	userID string
	values map[string]string
}

// New 创建设置模块
func New(bus eventbus.IEventBus, opts ...Option) *Module {
	m := &Module{values: map[string]string{}}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = kit.NewBase(registry.Metadata{
		ID:           ID,
		Name:         "Settings",
		Version:      "1.0.0",
		Dependencies: []string{"auth"},
		Routes:       []registry.Route{{Path: "/settings", View: "SettingsView"}},
	}, bus, m.logger)
	return m
}

// Initialize 打开存储并加载匿名用户的偏好
func (m *Module) Initialize(ctx context.Context) error {
	if m.store == nil {
		dsn, err := m.resolveDSN()
		if err != nil {
			return err
		}
		store, err := settingsstore.Open(ctx, dsn, settingsstore.WithLogger(m.Logger()))
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.store = store
		m.owned = store
		m.mu.Unlock()
	}
	if err := m.load(ctx, ""); err != nil {
		return err
	}

	kit.Handle(m.Base, events.AuthLoggedIn, func(ctx context.Context, p events.LoggedIn) error {
		return m.load(ctx, p.Session.UserID)
	})
	kit.Handle(m.Base, events.SettingsCommandUpdate, m.update)
	return nil
}

func (m *Module) resolveDSN() (string, error) {
	if m.dsn != "" {
		return m.dsn, nil
	}
	path, err := DefaultPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrCodeInternal, "create settings dir").
			WithContext("path", path)
	}
	return "file:" + path, nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.Release()
	m.mu.Lock()
	owned := m.owned
	m.owned = nil
	if owned != nil {
		m.store = nil
	}
	m.mu.Unlock()
	if owned != nil {
		return owned.Close()
	}
	return nil
}

// Value 返回当前用户的偏好值
func (m *Module) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Values 返回当前用户全部偏好的副本
func (m *Module) Values() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

func (m *Module) load(ctx context.Context, userID string) error {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()

	values, err := store.All(ctx, userID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.userID = userID
	m.values = values
	m.mu.Unlock()
	m.Logger().Debug(ctx, "settings loaded", logging.String("user_id", userID), logging.Int("count", len(values)))
	return nil
}

func (m *Module) update(ctx context.Context, cmd events.UpdateSetting) error {
	if cmd.Key == "" {
		return apperrors.NewError(apperrors.ErrCodeInvalidInput, "setting key is required")
	}
	m.mu.RLock()
	store, userID := m.store, m.userID
	m.mu.RUnlock()

	if err := store.Set(ctx, userID, cmd.Key, cmd.Value); err != nil {
		return err
	}
	m.mu.Lock()
	m.values[cmd.Key] = cmd.Value
	m.mu.Unlock()
	m.Emit(ctx, events.SettingsChanged, events.SettingsChange{Key: cmd.Key, Value: cmd.Value})
	return nil
}
