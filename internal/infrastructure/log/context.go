package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// DocumentContextID 文档 ID
	DocumentContextID = "document_id"

	// RunContextID 编排运行 ID
	RunContextID = "run_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithDocumentID 在上下文中添加文档 ID
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentContextID, documentID)
}

// WithRunID 在上下文中添加运行 ID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunContextID, runID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := ctx.Value(RequestContextID); requestID != nil {
		attrs = append(attrs, slog.String("request_id", requestID.(string)))
	}
	if documentID := ctx.Value(DocumentContextID); documentID != nil {
		attrs = append(attrs, slog.String("document_id", documentID.(string)))
	}
	if runID := ctx.Value(RunContextID); runID != nil {
		attrs = append(attrs, slog.String("run_id", runID.(string)))
	}

	return attrs
}
