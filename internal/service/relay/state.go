package relay

// State 回合状态
type State int

const (
	StateIdle State = iota
	StateRequestingCompletion
	StateStreaming
	StateFinalizing
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingCompletion:
		return "requesting_completion"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// 事件名
const (
	EventAppend = "append"
	EventTitle  = "title"
	EventID     = "id"
	EventEnd    = "end"
)

// AppendPayload append 事件数据，content 为修复后的完整内容快照
type AppendPayload struct {
	Content string `json:"content"`
}
