package orchestration

import (
	"errors"

	"github.com/ragpro/backend/internal/domain/corpus"
)

// 编排失败的类型化错误
// 调用方依据错误种类区分"无法回答"、"可重试"与"降级答案"
var (
	// ErrNoRelevantDocuments 所有检索尝试均无命中
	ErrNoRelevantDocuments = errors.New("no relevant documents")

	// ErrGenerationUnavailable 文本生成能力不可达（传输错误）
	ErrGenerationUnavailable = errors.New("generation capability unavailable")

	// ErrGenerationTimeout 文本生成能力超时
	ErrGenerationTimeout = errors.New("generation capability timeout")

	// ErrCancelled 运行在阶段边界被取消
	ErrCancelled = errors.New("run cancelled")
)

// ErrorKind 错误种类标识（对外暴露在响应里）
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "invalid_input"
	KindNoRelevantDocuments   ErrorKind = "no_relevant_documents"
	KindExtractionFailed      ErrorKind = "extraction_failed"
	KindGenerationUnavailable ErrorKind = "generation_unavailable"
	KindGenerationTimeout     ErrorKind = "generation_timeout"
	KindCancelled             ErrorKind = "cancelled"
)

// KindOf 将错误映射为对外的错误种类；未知错误归为 generation_unavailable
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, corpus.ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNoRelevantDocuments):
		return KindNoRelevantDocuments
	case errors.Is(err, corpus.ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrGenerationTimeout):
		return KindGenerationTimeout
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	default:
		return KindGenerationUnavailable
	}
}
