package registry

import (
	"context"
	"errors"
	"sync"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
)

// Config 注册表配置
type Config struct {
	// Kind 用于错误信息与日志中的名词，如 "module"、"plugin"
	Kind string
	// Policy 初始化失败策略
	Policy Policy
	// AllowDependencies 为 false 时拒绝声明了依赖的描述符
	AllowDependencies bool
	Logger            logging.Logger
}

// Info 描述符的只读快照
type Info struct {
	ID           string
	Name         string
	Version      string
	Dependencies []string
	State        State
	Err          error
}

type entry struct {
	id    string
	desc  IDescriptor
	deps  []string
	seq   int
	state State
	err   error
}

// Registry 描述符注册表
//
// Register/List/State 等查询可与生命周期操作并发调用；
// InitializeAll 与 DestroyAll 互相串行。
type Registry struct {
	kind      string
	policy    Policy
	allowDeps bool
	logger    logging.Logger

	lifecycle sync.Mutex

	mu       sync.RWMutex
	entries  map[string]*entry
	declared []*entry
	live     []*entry
	wrappers []Wrapper
	nextSeq  int
}

// New 创建注册表
func New(cfg Config) *Registry {
	if cfg.Kind == "" {
		cfg.Kind = "descriptor"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Registry{
		kind:      cfg.Kind,
		policy:    cfg.Policy,
		allowDeps: cfg.AllowDependencies,
		logger:    logger.WithFields(logging.String("component", cfg.Kind+"-registry")),
		entries:   make(map[string]*entry),
	}
}

// Kind 返回注册表的名词
func (r *Registry) Kind() string { return r.kind }

// Use 添加生命周期包装器，对之后的生命周期调用生效
func (r *Registry) Use(w Wrapper) {
	if w == nil {
		return
	}
	r.mu.Lock()
	r.wrappers = append(r.wrappers, w)
	r.mu.Unlock()
}

// Register 登记描述符，不调用任何生命周期回调
func (r *Registry) Register(desc IDescriptor) error {
	if desc == nil {
		return invalidDescriptor(r.kind, "descriptor is nil")
	}
	id := desc.ID()
	if id == "" {
		return invalidDescriptor(r.kind, "id is empty")
	}
	deps, err := r.normalizeDeps(id, desc.Dependencies())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return duplicateID(r.kind, id)
	}
	e := &entry{id: id, desc: desc, deps: deps, seq: r.nextSeq, state: StateRegistered}
	r.nextSeq++
	r.entries[id] = e
	r.declared = append(r.declared, e)
	r.logger.Debug(context.Background(), r.kind+" registered",
		logging.String("id", id), logging.Strings("dependencies", deps))
	return nil
}

func (r *Registry) normalizeDeps(id string, deps []string) ([]string, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	if !r.allowDeps {
		return nil, invalidDescriptor(r.kind, r.kind+"s cannot declare dependencies").WithContext("id", id)
	}
	seen := make(map[string]struct{}, len(deps))
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep == "" {
			return nil, invalidDescriptor(r.kind, "dependency id is empty").WithContext("id", id)
		}
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out, nil
}

// Resolve 返回当前全部描述符的初始化顺序（ID 列表），不修改任何状态
func (r *Registry) Resolve() ([]string, error) {
	order, err := resolve(r.kind, r.snapshot())
	if err != nil {
		return nil, err
	}
	return ids(order), nil
}

// InitializeAll 按依赖顺序初始化所有处于 Registered 状态的描述符
//
// 依赖解析失败时不调用任何回调。FailFast 策略下返回首个失败，
// 已初始化成功的描述符保持 Initialized；Isolate 策略下失败仅记录并继续。
// ctx 在每个描述符之间检查，取消后立即返回。
func (r *Registry) InitializeAll(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	order, err := resolve(r.kind, r.snapshot())
	if err != nil {
		r.logger.Error(ctx, r.kind+" dependency resolution failed", logging.Error(err))
		return err
	}

	for _, e := range order {
		if r.stateOf(e) != StateRegistered {
			continue
		}
		if err := ctx.Err(); err != nil {
			return apperrors.WrapError(err, apperrors.ErrCodeInitialization, r.kind+" initialization interrupted").
				WithContext("id", e.id)
		}
		if dep, st, ok := r.unmetDependency(e); !ok {
			failure := dependencyNotReady(r.kind, e.id, dep, st)
			if r.policy == FailFast {
				r.logger.Error(ctx, r.kind+" initialization aborted", logging.String("id", e.id), logging.Error(failure))
				return failure
			}
			r.logger.Warn(ctx, r.kind+" skipped", logging.String("id", e.id), logging.Error(failure))
			continue
		}

		r.setState(e, StateInitializing, nil)
		hook := compose(e.desc, PhaseInitialize, e.desc.Initialize, r.wrapperList())
		if err := hook(ctx); err != nil {
			failure := initializationFailure(r.kind, e.id, err)
			r.setState(e, StateInitFailed, failure)
			if r.policy == FailFast {
				r.logger.Error(ctx, r.kind+" initialization failed", logging.String("id", e.id), logging.Error(err))
				return failure
			}
			r.logger.Warn(ctx, r.kind+" initialization failed, continuing", logging.String("id", e.id), logging.Error(err))
			continue
		}

		r.mu.Lock()
		e.state = StateInitialized
		e.err = nil
		r.live = append(r.live, e)
		r.mu.Unlock()
		r.logger.Info(ctx, r.kind+" initialized", logging.String("id", e.id))
	}
	return nil
}

// DestroyAll 按实际初始化顺序的逆序销毁所有 Initialized 描述符
//
// 尽力而为：单个失败不阻止其余描述符销毁，所有失败合并后返回。
func (r *Registry) DestroyAll(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	live := r.live
	r.live = nil
	r.mu.Unlock()

	var errs []error
	for i := len(live) - 1; i >= 0; i-- {
		e := live[i]
		r.setState(e, StateDestroying, nil)
		hook := compose(e.desc, PhaseDestroy, e.desc.Destroy, r.wrapperList())
		if err := hook(ctx); err != nil {
			failure := destructionFailure(r.kind, e.id, err)
			r.setState(e, StateDestroyed, failure)
			r.logger.Error(ctx, r.kind+" destroy failed", logging.String("id", e.id), logging.Error(err))
			errs = append(errs, failure)
			continue
		}
		r.setState(e, StateDestroyed, nil)
		r.logger.Info(ctx, r.kind+" destroyed", logging.String("id", e.id))
	}
	return errors.Join(errs...)
}

// Reset 移除所有处于终态（Registered、InitFailed、Destroyed）的描述符，返回移除数量
//
// 仍处于 Initialized 的描述符保留，须先 DestroyAll。
func (r *Registry) Reset() int {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.declared[:0]
	removed := 0
	for _, e := range r.declared {
		if e.state.Terminal() {
			delete(r.entries, e.id)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(r.declared); i++ {
		r.declared[i] = nil
	}
	r.declared = kept
	return removed
}

// List 按注册顺序返回所有描述符信息
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.declared))
	for _, e := range r.declared {
		out = append(out, info(e))
	}
	return out
}

// Get 返回指定描述符信息
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Info{}, false
	}
	return info(e), true
}

// State 返回指定描述符的状态
func (r *Registry) State(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Order 返回当前存活（Initialized）描述符的实际初始化顺序
func (r *Registry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ids(r.live)
}

// Failed 按注册顺序返回初始化失败的描述符 ID
func (r *Registry) Failed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, e := range r.declared {
		if e.state == StateInitFailed {
			out = append(out, e.id)
		}
	}
	return out
}

// Routes 按初始化顺序汇总存活描述符声明的路由
func (r *Registry) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Route
	for _, e := range r.live {
		out = append(out, e.desc.Routes()...)
	}
	return out
}

// Len 返回已登记的描述符数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.declared)
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, len(r.declared))
	copy(out, r.declared)
	return out
}

func (r *Registry) wrapperList() []Wrapper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Wrapper, len(r.wrappers))
	copy(out, r.wrappers)
	return out
}

func (r *Registry) stateOf(e *entry) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.state
}

func (r *Registry) setState(e *entry, state State, err error) {
	r.mu.Lock()
	e.state = state
	e.err = err
	r.mu.Unlock()
}

func (r *Registry) unmetDependency(e *entry) (string, State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dep := range e.deps {
		if d := r.entries[dep]; d.state != StateInitialized {
			return dep, d.state, false
		}
	}
	return "", 0, true
}

func info(e *entry) Info {
	var deps []string
	if len(e.deps) > 0 {
		deps = append([]string(nil), e.deps...)
	}
	return Info{
		ID:           e.id,
		Name:         e.desc.Name(),
		Version:      e.desc.Version(),
		Dependencies: deps,
		State:        e.state,
		Err:          e.err,
	}
}

func ids(entries []*entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.id)
	}
	return out
}
