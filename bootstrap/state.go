package bootstrap

// State 应用生命周期状态
type State int

const (
	// StatePending 尚未初始化
	StatePending State = iota
	// StateStarting 正在执行启动步骤
	StateStarting
	// StateRunning 模块与插件已就绪
	StateRunning
	// StateFailed 启动失败，界面应展示"应用启动失败"
	StateFailed
	// StateStopping 正在销毁
	StateStopping
	// StateStopped 已销毁
	StateStopped
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateFailed:
		return "Failed"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
