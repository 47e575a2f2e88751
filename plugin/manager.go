// Package plugin 提供插件管理器
//
// 插件在全部模块就绪后初始化，不能声明依赖；单个插件失败只记录日志，其余插件照常初始化。
package plugin

import (
	"time"

	"projectvoice/logging"
	"projectvoice/registry"
)

// Kind 插件在错误与日志中的名词
const Kind = "plugin"

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

// WithTimeout 为每个插件的初始化与销毁设置超时
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

// Manager 插件管理器（isolate 策略）
type Manager struct {
	*registry.Registry
}

// New 创建插件管理器
func New(opts ...Option) *Manager {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	reg := registry.New(registry.Config{
		Kind:   Kind,
		Policy: registry.Isolate,
		Logger: o.logger,
	})
	for _, w := range o.wrappers {
		reg.Use(w)
	}
	return &Manager{Registry: reg}
}

// Healthy 返回初始化成功的插件 ID
func (m *Manager) Healthy() []string {
	return m.Order()
}
