// Package module 提供功能模块管理器
//
// 模块可声明依赖，按依赖顺序初始化；任何模块初始化失败都会中止整体初始化。
package module

import (
	"time"

	"projectvoice/logging"
	"projectvoice/registry"
)

// Kind 模块在错误与日志中的名词
const Kind = "module"

// Option 管理器选项
type Option func(*options)

type options struct {
	logger   logging.Logger
	wrappers []registry.Wrapper
}

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout 为每个模块的初始化与销毁设置超时，d <= 0 表示不限时
func WithTimeout(d time.Duration) Option {
	return WithWrapper(registry.WithTimeout(d))
}

// WithWrapper 添加生命周期包装器
func WithWrapper(w registry.Wrapper) Option {
	return func(o *options) {
		if w != nil {
			o.wrappers = append(o.wrappers, w)
		}
	}
}

// Manager 模块管理器（fail-fast 策略）
type Manager struct {
	*registry.Registry
}

// New 创建模块管理器
func New(opts ...Option) *Manager {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	reg := registry.New(registry.Config{
		Kind:              Kind,
		Policy:            registry.FailFast,
		AllowDependencies: true,
		Logger:            o.logger,
	})
	for _, w := range o.wrappers {
		reg.Use(w)
	}
	return &Manager{Registry: reg}
}

// RegisterAll 依次登记多个模块，遇到首个错误即返回
func (m *Manager) RegisterAll(descs ...registry.IDescriptor) error {
	for _, desc := range descs {
		if err := m.Register(desc); err != nil {
			return err
		}
	}
	return nil
}
