package handler

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gin-gonic/gin"

	domainTrace "github.com/ragpro/backend/internal/domain/trace"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/interfaces/http/response"
)

// TraceHandler 追踪处理器
type TraceHandler struct {
	traceRepo domainTrace.Repository
	logger    *slog.Logger
}

// NewTraceHandler 创建追踪处理器
func NewTraceHandler(traceRepo domainTrace.Repository) *TraceHandler {
	return &TraceHandler{
		traceRepo: traceRepo,
		logger:    log.NewModuleLogger("http", "trace_handler"),
	}
}

// Recent 查询最近的追踪记录
// @Summary 查询最近的摄入/删除/问答追踪记录
// @Tags 追踪
// @Produce json
// @Param limit query int false "返回条数，默认 50"
// @Success 200 {object} response.Response{data=[]domainTrace.Trace}
// @Router /api/v1/traces [get]
func (h *TraceHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	traces, err := h.traceRepo.Recent(limit)
	if err != nil {
		h.logger.Error("Failed to load traces", "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	response.Success(c, gin.H{
		"traces": traces,
		"count":  len(traces),
	})
}
