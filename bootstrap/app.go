// Package bootstrap 应用启动编排：进程启动与关闭的唯一有序入口
//
// Initialize 依次执行：打开运行时、登记模块、初始化模块（失败即中止）、
// 初始化插件（失败隔离）、尽力获取远端元数据、发布 app:ready。
// Destroy 先销毁插件再销毁模块，最后清空总线。
package bootstrap

import (
	"context"
	"errors"
	"sync"

	"projectvoice/appinfo"
	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
	"projectvoice/events"
	"projectvoice/logging"
	"projectvoice/module"
	"projectvoice/plugin"
	"projectvoice/registry"
)

// App 应用实例，持有唯一的事件总线与两个管理器
type App struct {
	opts    *Options
	logger  logging.Logger
	bus     *eventbus.Bus
	modules *module.Manager
	plugins *plugin.Manager

	// lifecycle 串行化 Initialize/Destroy
	lifecycle sync.Mutex

	mu    sync.RWMutex
	state State
	meta  *appinfo.Metadata
}

// New 创建应用实例，不执行任何启动步骤
func New(opts ...Option) *App {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = logging.GetLogger()
	}
	if o.Runtime == nil {
		o.Runtime = DefaultRuntime
	}
	if o.Modules == nil {
		o.Modules = DefaultModules(o.SettingsDSN)
	}

	logger := o.Logger.WithFields(logging.String("app", o.Name))
	busOpts := append([]eventbus.Option{
		eventbus.WithLogger(logger.WithFields(logging.String("component", "eventbus"))),
	}, o.BusOptions...)
	bus := eventbus.New(busOpts...)
	bus.Use(eventbus.NewTracingMiddleware())

	var wrappers []registry.Wrapper
	if o.TraceLifecycle {
		wrappers = append(wrappers, registry.WithLogging(logger.WithFields(logging.String("component", "lifecycle"))))
	}
	moduleOpts := []module.Option{module.WithLogger(logger), module.WithTimeout(o.LifecycleTimeout)}
	pluginOpts := []plugin.Option{plugin.WithLogger(logger), plugin.WithTimeout(o.LifecycleTimeout)}
	for _, w := range wrappers {
		moduleOpts = append(moduleOpts, module.WithWrapper(w))
		pluginOpts = append(pluginOpts, plugin.WithWrapper(w))
	}

	return &App{
		opts:    o,
		logger:  logger.WithFields(logging.String("component", "bootstrap")),
		bus:     bus,
		modules: module.New(moduleOpts...),
		plugins: plugin.New(pluginOpts...),
		state:   StatePending,
	}
}

// Bus 返回应用事件总线
func (a *App) Bus() *eventbus.Bus { return a.bus }

// Modules 返回模块管理器
func (a *App) Modules() *module.Manager { return a.modules }

// Plugins 返回插件管理器
func (a *App) Plugins() *plugin.Manager { return a.plugins }

// State 返回当前状态
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Metadata 返回最近一次成功获取的远端元数据
func (a *App) Metadata() (*appinfo.Metadata, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.meta, a.meta != nil
}

// Env 返回构造描述符的共享依赖
func (a *App) Env() Env {
	return Env{Bus: a.bus, Logger: a.opts.Logger}
}

// Initialize 执行启动序列
//
// 模块登记或初始化失败时状态为 Failed 并返回错误；插件与元数据步骤的失败只记录日志。
// 未经 Destroy 重复调用会在模块登记时返回 DuplicateID 错误。
func (a *App) Initialize(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.setState(StateStarting)
	a.logger.Info(ctx, "starting application", logging.String("version", a.opts.Version))

	if a.opts.Runtime.Enable() {
		a.logger.Debug(ctx, "reactive runtime enabled")
	}

	env := a.Env()
	for _, factory := range a.opts.Modules {
		if err := a.modules.Register(factory(env)); err != nil {
			return a.fail(ctx, err)
		}
	}
	if err := a.modules.InitializeAll(ctx); err != nil {
		return a.fail(ctx, err)
	}

	for _, factory := range a.opts.Plugins {
		if err := a.plugins.Register(factory(env)); err != nil {
			a.logger.Warn(ctx, "plugin rejected", logging.Error(err))
		}
	}
	if err := a.plugins.InitializeAll(ctx); err != nil {
		a.logger.Warn(ctx, "plugin initialization skipped", logging.Error(err))
	}

	a.loadMetadata(ctx)

	a.setState(StateRunning)
	ready := events.Ready{
		Modules:       a.modules.Order(),
		Plugins:       a.plugins.Order(),
		FailedPlugins: a.plugins.Failed(),
	}
	a.logger.Info(ctx, "application ready",
		logging.Strings("modules", ready.Modules),
		logging.Strings("plugins", ready.Plugins),
		logging.Strings("failed_plugins", ready.FailedPlugins))
	a.bus.Emit(ctx, events.AppReady, ready)
	return nil
}

// Destroy 先销毁插件再销毁模块，随后清空总线订阅
//
// 尽力而为：返回所有销毁失败的合并错误。之后可再次 Initialize。
func (a *App) Destroy(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.setState(StateStopping)
	a.logger.Info(ctx, "stopping application")

	var errs []error
	if err := a.plugins.DestroyAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.modules.DestroyAll(ctx); err != nil {
		errs = append(errs, err)
	}
	a.bus.Clear()
	a.plugins.Reset()
	a.modules.Reset()

	a.setState(StateStopped)
	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn(ctx, "application stopped with teardown errors", logging.Error(err))
		return err
	}
	a.logger.Info(ctx, "application stopped")
	return nil
}

func (a *App) fail(ctx context.Context, err error) error {
	a.setState(StateFailed)
	a.logger.Error(ctx, "application failed to start",
		logging.Error(err),
		logging.String("error_code", string(apperrors.GetErrorCode(err))))
	return err
}

// loadMetadata 尽力获取并应用远端元数据，任何失败都被吞掉
func (a *App) loadMetadata(ctx context.Context) {
	src := a.opts.MetadataSource
	if src == nil {
		return
	}
	applier := a.opts.ThemeApplier
	if applier == nil {
		applier = appinfo.NewBusApplier(a.bus)
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn(ctx, "metadata step panicked", logging.Error(apperrors.FromPanic(r)))
		}
	}()
	meta, err := appinfo.Load(ctx, src, applier, a.opts.MetadataRetry, a.logger)
	if meta != nil {
		a.mu.Lock()
		a.meta = meta
		a.mu.Unlock()
	}
	if err != nil {
		a.logger.Warn(ctx, "remote metadata unavailable", logging.Error(err))
		return
	}
	a.logger.Debug(ctx, "remote metadata applied", logging.String("name", meta.Name))
}

func (a *App) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}
