package orchestration

import "time"

// EventType 运行事件类型
type EventType string

const (
	// EventPlan 规划完成
	EventPlan EventType = "plan"
	// EventHits 检索完成
	EventHits EventType = "hits"
	// EventDraft 草稿完成
	EventDraft EventType = "draft"
	// EventCritique 批评完成
	EventCritique EventType = "critique"
	// EventFinal 终态事件（每个运行恰好一个）
	EventFinal EventType = "final"
)

// Event 运行事件
// 每次阶段转换按时间顺序追加一个事件，final 永远是最后一个
type Event struct {
	// Type 事件类型
	Type EventType `json:"type"`
	// RunID 运行 ID
	RunID string `json:"run_id"`
	// Iteration 所属迭代序号（从 1 开始）
	Iteration int `json:"iteration,omitempty"`
	// Payload 事件数据（plan/hits/draft/critique 的产物，final 时为 Result）
	Payload any `json:"payload,omitempty"`
	// At 事件时间
	At time.Time `json:"at"`
}

// EventLog 单个运行的只追加事件日志
// 消费者以有限、不可重启的序列读取，以恰好一个终态事件结束；
// 替代回调风格的事件分发，便于同步与异步消费
type EventLog struct {
	ch     chan Event
	closed bool
}

// NewEventLog 创建事件日志
// buffer 应足以容纳 max_iterations 轮的全部事件，避免发送端阻塞
func NewEventLog(buffer int) *EventLog {
	if buffer < 8 {
		buffer = 8
	}
	return &EventLog{ch: make(chan Event, buffer)}
}

// Append 追加事件
// final 事件之后日志关闭，后续追加被忽略
func (l *EventLog) Append(ev Event) {
	if l.closed {
		return
	}
	ev.At = time.Now()
	l.ch <- ev
	if ev.Type == EventFinal {
		l.closed = true
		close(l.ch)
	}
}

// Events 返回只读事件序列
func (l *EventLog) Events() <-chan Event {
	return l.ch
}
