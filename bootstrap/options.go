package bootstrap

import (
	"time"

	"projectvoice/appinfo"
	"projectvoice/eventbus"
	"projectvoice/feature/admin"
	"projectvoice/feature/auth"
	"projectvoice/feature/channels"
	"projectvoice/feature/invite"
	"projectvoice/feature/messaging"
	"projectvoice/feature/servers"
	"projectvoice/feature/settings"
	"projectvoice/feature/voice"
	"projectvoice/logging"
	"projectvoice/registry"
	"projectvoice/retry"
)

// Env 构造模块/插件时可用的共享依赖
type Env struct {
	Bus    eventbus.IEventBus
	Logger logging.Logger
}

// Factory 构造一个模块或插件描述符
type Factory func(env Env) registry.IDescriptor

// Options 应用配置
type Options struct {
	Name    string
	Version string
	Logger  logging.Logger
	Runtime *Runtime

	// Modules 按声明顺序登记的模块；为 nil 时使用 DefaultModules
	Modules []Factory
	Plugins []Factory

	// SettingsDSN 默认 settings 模块使用的数据库，为空时由 settings.DefaultPath 决定
	SettingsDSN string

	// LifecycleTimeout 单个模块/插件生命周期调用的时限，0 表示不限
	LifecycleTimeout time.Duration
	// TraceLifecycle 记录每次生命周期调用的耗时
	TraceLifecycle bool

	// MetadataSource 为 nil 时跳过远端元数据步骤
	MetadataSource appinfo.IMetadataSource
	// ThemeApplier 为 nil 时通过总线发布 app:theme-applied
	ThemeApplier  appinfo.IThemeApplier
	MetadataRetry retry.Config

	BusOptions []eventbus.Option
}

// Option 配置修改函数
type Option func(*Options)

// DefaultOptions 获取默认配置
func DefaultOptions() *Options {
	return &Options{
		Name:          "projectvoice",
		Version:       "0.0.0",
		Runtime:       DefaultRuntime,
		MetadataRetry: retry.DefaultConfig(),
	}
}

// DefaultModules 内置功能模块，按依赖意图排列（正确性由解析器保证）
func DefaultModules(settingsDSN string) []Factory {
	return []Factory{
		func(env Env) registry.IDescriptor { return auth.New(env.Bus, auth.WithLogger(env.Logger)) },
		func(env Env) registry.IDescriptor {
			return settings.New(env.Bus, settings.WithDSN(settingsDSN), settings.WithLogger(env.Logger))
		},
		func(env Env) registry.IDescriptor { return servers.New(env.Bus, servers.WithLogger(env.Logger)) },
		func(env Env) registry.IDescriptor { return channels.New(env.Bus, channels.WithLogger(env.Logger)) },
		func(env Env) registry.IDescriptor { return messaging.New(env.Bus, messaging.WithLogger(env.Logger)) },
		func(env Env) registry.IDescriptor { return voice.New(env.Bus, voice.WithLogger(env.Logger)) },
		func(env Env) registry.IDescriptor { return invite.New(env.Bus, invite.WithLogger(env.Logger)) },
		func(env Env) registry.IDescriptor { return admin.New(env.Bus, admin.WithLogger(env.Logger)) },
	}
}

// WithName 设置应用名称
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithVersion 设置应用版本
func WithVersion(version string) Option {
	return func(o *Options) {
		o.Version = version
	}
}

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRuntime 替换运行时开关（测试用）
func WithRuntime(rt *Runtime) Option {
	return func(o *Options) {
		if rt != nil {
			o.Runtime = rt
		}
	}
}

// WithModules 替换模块列表
func WithModules(factories ...Factory) Option {
	return func(o *Options) {
		o.Modules = append([]Factory{}, factories...)
	}
}

// WithPlugins 追加插件
func WithPlugins(factories ...Factory) Option {
	return func(o *Options) {
		o.Plugins = append(o.Plugins, factories...)
	}
}

// WithSettingsDSN 设置默认 settings 模块的数据库
func WithSettingsDSN(dsn string) Option {
	return func(o *Options) {
		if dsn != "" {
			o.SettingsDSN = dsn
		}
	}
}

// WithLifecycleTimeout 设置生命周期调用时限
func WithLifecycleTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.LifecycleTimeout = d
	}
}

// WithLifecycleTracing 开启生命周期调用追踪日志
func WithLifecycleTracing(enabled bool) Option {
	return func(o *Options) {
		o.TraceLifecycle = enabled
	}
}

// WithMetadataSource 设置远端元数据来源
func WithMetadataSource(src appinfo.IMetadataSource) Option {
	return func(o *Options) {
		o.MetadataSource = src
	}
}

// WithThemeApplier 设置主题应用器
func WithThemeApplier(applier appinfo.IThemeApplier) Option {
	return func(o *Options) {
		o.ThemeApplier = applier
	}
}

// WithMetadataRetry 设置元数据获取的重试策略
func WithMetadataRetry(cfg retry.Config) Option {
	return func(o *Options) {
		o.MetadataRetry = cfg
	}
}

// WithBusOptions 追加事件总线选项
func WithBusOptions(opts ...eventbus.Option) Option {
	return func(o *Options) {
		o.BusOptions = append(o.BusOptions, opts...)
	}
}
