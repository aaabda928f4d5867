package events

import "time"

// DocumentFileEvent 文档文件变更事件
// 监听目录下的 .txt/.md 文件发生变更时触发
type DocumentFileEvent struct {
	// EventType 事件类型（created/modified/deleted）
	EventType EventType
	// DocumentID 由文件名派生的稳定文档 ID，同一文件反复修改映射到同一文档
	DocumentID string
	// FilePath 文件完整路径
	FilePath string
	// ModTime 文件最后修改时间（deleted 时为零值）
	ModTime time.Time
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *DocumentFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *DocumentFileEvent) Timestamp() time.Time {
	return e.EventTime
}
