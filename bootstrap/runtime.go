package bootstrap

import "sync"

// Runtime 响应式状态运行时开关，只能打开一次
type Runtime struct {
	once    sync.Once
	mu      sync.RWMutex
	enabled bool
	hooks   []func()
}

// DefaultRuntime 进程级运行时
var DefaultRuntime = &Runtime{}

// OnEnable 注册打开时执行的回调；已打开时立即执行
func (r *Runtime) OnEnable(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	if r.enabled {
		r.mu.Unlock()
		fn()
		return
	}
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Enable 打开运行时，幂等；返回本次调用是否真正打开
func (r *Runtime) Enable() bool {
	first := false
	r.once.Do(func() {
		r.mu.Lock()
		r.enabled = true
		hooks := r.hooks
		r.hooks = nil
		r.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
		first = true
	})
	return first
}

// Enabled 运行时是否已打开
func (r *Runtime) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}
