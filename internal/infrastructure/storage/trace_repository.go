package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	domainTrace "github.com/ragpro/backend/internal/domain/trace"
)

// 确保 TraceRepositoryImpl 实现了 domainTrace.Repository 接口
var _ domainTrace.Repository = (*TraceRepositoryImpl)(nil)

// TraceRepositoryImpl 追踪仓库实现
type TraceRepositoryImpl struct {
	db *sql.DB
}

// NewTraceRepository 创建追踪仓库实例
func NewTraceRepository(db *sql.DB) domainTrace.Repository {
	return &TraceRepositoryImpl{db: db}
}

// Append 追加一条追踪记录
func (r *TraceRepositoryImpl) Append(t domainTrace.Type, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		`INSERT INTO traces (type, payload, created_at) VALUES (?, ?, ?)`,
		string(t), string(data), time.Now().Unix(),
	)
	return err
}

// Recent 返回最近 limit 条记录
func (r *TraceRepositoryImpl) Recent(limit int) ([]*domainTrace.Trace, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, type, payload, created_at FROM traces ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var traces []*domainTrace.Trace
	for rows.Next() {
		var t domainTrace.Trace
		var typ, payload string
		var createdAt int64
		if err := rows.Scan(&t.ID, &typ, &payload, &createdAt); err != nil {
			return nil, err
		}
		t.Type = domainTrace.Type(typ)
		t.CreatedAt = time.Unix(createdAt, 0)
		if err := json.Unmarshal([]byte(payload), &t.Payload); err != nil {
			// 历史数据损坏时保留原始内容
			t.Payload = map[string]any{"raw": payload}
		}
		traces = append(traces, &t)
	}
	return traces, rows.Err()
}
