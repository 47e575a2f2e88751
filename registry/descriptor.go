// Package registry 实现模块与插件共用的描述符注册表、依赖解析与生命周期驱动
//
// 模块管理器（module 包）与插件管理器（plugin 包）都是本包 Registry 的特化，
// 区别只在于初始化失败策略与是否允许声明依赖。
package registry

import "context"

// Hook 生命周期回调，ctx 可用于取消
type Hook func(ctx context.Context) error

// Route 视图路由条目，内容由 UI 层定义，注册表只负责透传
type Route struct {
	Path    string
	View    string
	Options map[string]any
}

// IDescriptor 模块/插件描述符
//
// Initialize 每个进程生命周期内最多调用一次，且只在所有依赖初始化成功之后；
// Destroy 只对初始化成功的描述符调用一次，且在所有依赖它的描述符销毁之后。
type IDescriptor interface {
	ID() string
	Name() string
	Version() string
	Dependencies() []string
	Routes() []Route
	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// Metadata 描述符的静态数据部分
type Metadata struct {
	ID           string
	Name         string
	Version      string
	Dependencies []string
	Routes       []Route
}

// Define 由元数据与两个回调构造描述符，回调为 nil 时视为空操作
func Define(meta Metadata, initialize, destroy Hook) IDescriptor {
	return &funcDescriptor{meta: meta, initialize: initialize, destroy: destroy}
}

type funcDescriptor struct {
	meta       Metadata
	initialize Hook
	destroy    Hook
}

func (d *funcDescriptor) ID() string { return d.meta.ID }

func (d *funcDescriptor) Name() string {
	if d.meta.Name == "" {
		return d.meta.ID
	}
	return d.meta.Name
}

func (d *funcDescriptor) Version() string        { return d.meta.Version }
func (d *funcDescriptor) Dependencies() []string { return d.meta.Dependencies }
func (d *funcDescriptor) Routes() []Route        { return d.meta.Routes }

func (d *funcDescriptor) Initialize(ctx context.Context) error {
	if d.initialize == nil {
		return nil
	}
	return d.initialize(ctx)
}

func (d *funcDescriptor) Destroy(ctx context.Context) error {
	if d.destroy == nil {
		return nil
	}
	return d.destroy(ctx)
}
