package orchestration

import (
	"github.com/ragpro/backend/internal/domain/corpus"
)

// RunStatus 运行状态
type RunStatus string

const (
	// StatusRunning 运行中
	StatusRunning RunStatus = "running"
	// StatusAnswered 批评者判定答案充分，正常结束
	StatusAnswered RunStatus = "answered"
	// StatusExhausted 迭代预算耗尽，返回尽力而为的答案
	StatusExhausted RunStatus = "exhausted"
	// StatusFailed 以类型化错误结束，无答案
	StatusFailed RunStatus = "failed"
	// StatusCancelled 在阶段边界被取消
	StatusCancelled RunStatus = "cancelled"
)

// DefaultMaxIterations 默认迭代上限
const DefaultMaxIterations = 5

// Plan 规划阶段产物
type Plan struct {
	// Query 本轮检索查询（非空）
	Query string `json:"query"`
	// EntityFilter 可选的实体过滤词
	EntityFilter []string `json:"entity_filter,omitempty"`
	// Rationale 规划说明（可为空，仅用于追踪展示）
	Rationale string `json:"rationale,omitempty"`
}

// Critique 批评阶段产物
type Critique struct {
	// Sufficient 答案是否充分
	Sufficient bool `json:"sufficient"`
	// Guidance 不充分时给下一轮规划的改进指引
	Guidance string `json:"guidance,omitempty"`
}

// Iteration 单轮迭代记录
type Iteration struct {
	// Index 迭代序号（从 1 开始）
	Index int `json:"index"`
	// Plan 本轮规划
	Plan Plan `json:"plan"`
	// Hits 本轮检索命中
	Hits []corpus.SearchHit `json:"hits"`
	// Draft 本轮草稿答案
	Draft string `json:"draft"`
	// Critique 本轮批评结论
	Critique Critique `json:"critique"`
}

// Source 答案引用的来源片段（去重后按得分降序）
type Source struct {
	FragmentID string  `json:"fragment_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Result 一次运行的最终产物
// Accepted 与 Exhausted 都携带 {answer, sources}，
// 但 Exhausted 必须被标记为非权威的尽力而为答案
type Result struct {
	// Status 终态（answered/exhausted/failed/cancelled）
	Status RunStatus `json:"status"`
	// Answer 最终答案（failed/cancelled 时为空）
	Answer string `json:"answer,omitempty"`
	// Sources 实际使用过的来源片段
	Sources []Source `json:"sources,omitempty"`
	// BestEffort Exhausted 时为 true，提示答案非权威
	BestEffort bool `json:"best_effort,omitempty"`
	// Iterations 完整迭代历史
	Iterations []Iteration `json:"iterations,omitempty"`
	// ErrorKind failed 时的错误种类
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// ErrorDetail failed 时的错误描述
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Request 一次提问请求
type Request struct {
	// Question 用户问题
	Question string
	// MaxIterations 迭代上限（<=0 时取默认值）
	MaxIterations int
	// EntityFilter 调用方显式指定的实体过滤词（可选）
	EntityFilter []string
}

// Normalize 填充默认值
func (r *Request) Normalize() {
	if r.MaxIterations <= 0 {
		r.MaxIterations = DefaultMaxIterations
	}
}
