package trace

import "time"

// Type 追踪记录类型
type Type string

const (
	// TypeIngest 文档摄入
	TypeIngest Type = "ingest"
	// TypeDelete 文档删除
	TypeDelete Type = "delete"
	// TypeQuery 提问
	TypeQuery Type = "query"
	// TypeResult 提问结果
	TypeResult Type = "result"
	// TypeExtract 实体提取
	TypeExtract Type = "extract"
)

// Trace 审计追踪记录
// 记录系统的摄入与问答活动，供前端时间线展示
type Trace struct {
	// ID 记录 ID
	ID int64 `json:"id"`
	// Type 记录类型
	Type Type `json:"type"`
	// Payload JSON 负载（各类型自定义结构）
	Payload map[string]any `json:"payload"`
	// CreatedAt 记录时间
	CreatedAt time.Time `json:"created_at"`
}

// Repository 追踪仓库接口
type Repository interface {
	// Append 追加一条追踪记录
	Append(t Type, payload map[string]any) error

	// Recent 返回最近 limit 条记录（按时间降序）
	Recent(limit int) ([]*Trace, error)
}
