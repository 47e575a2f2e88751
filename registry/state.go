package registry

// State 描述符生命周期状态
//
//	Registered -> Initializing -> Initialized -> Destroying -> Destroyed
//	                  \-> InitFailed (终态，不会进入 Destroying)
type State int

const (
	StateRegistered State = iota
	StateInitializing
	StateInitialized
	StateInitFailed
	StateDestroying
	StateDestroyed
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "Registered"
	case StateInitializing:
		return "Initializing"
	case StateInitialized:
		return "Initialized"
	case StateInitFailed:
		return "InitFailed"
	case StateDestroying:
		return "Destroying"
	case StateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// Terminal 是否为终态（可被 Reset 清理）
func (s State) Terminal() bool {
	return s == StateRegistered || s == StateInitFailed || s == StateDestroyed
}

// Policy 初始化失败策略
type Policy int

const (
	// FailFast 首个失败即中止 InitializeAll，已初始化的不回滚
	FailFast Policy = iota
	// Isolate 失败只记录，继续初始化其余描述符
	Isolate
)

func (p Policy) String() string {
	if p == Isolate {
		return "isolate"
	}
	return "fail-fast"
}
