// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 文档文件相关事件类型
const (
	// DocumentFileCreated 监听目录中新增文档文件
	DocumentFileCreated EventType = "document.file.created"
	// DocumentFileModified 监听目录中文档文件被修改
	DocumentFileModified EventType = "document.file.modified"
	// DocumentFileDeleted 监听目录中文档文件被删除
	DocumentFileDeleted EventType = "document.file.deleted"
)

// Event 领域事件接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
