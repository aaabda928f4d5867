package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/gin-gonic/gin"

	appOrch "github.com/ragpro/backend/internal/application/orchestration"
	domainOrch "github.com/ragpro/backend/internal/domain/orchestration"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/interfaces/http/response"
)

// AskHandler 问答处理器
type AskHandler struct {
	orchestrator *appOrch.Orchestrator
	logger       *slog.Logger
}

// NewAskHandler 创建问答处理器
func NewAskHandler(orchestrator *appOrch.Orchestrator) *AskHandler {
	return &AskHandler{
		orchestrator: orchestrator,
		logger:       log.NewModuleLogger("http", "ask_handler"),
	}
}

// AskRequest 提问请求
type AskRequest struct {
	Question string `json:"question" binding:"required"`
	// MaxIterations 迭代上限，<=0 时使用服务端默认值
	MaxIterations int `json:"max_iterations,omitempty"`
	// EntityFilter 请求级实体过滤词，作用于每一轮检索
	EntityFilter []string `json:"entity_filter,omitempty"`
}

// Ask 同步提问
// @Summary 对语料提问并等待最终结果
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body AskRequest true "提问请求"
// @Success 200 {object} response.Response{data=domainOrch.Result}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/ask [post]
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1001, err.Error())
		return
	}

	result := h.orchestrator.Ask(c.Request.Context(), domainOrch.Request{
		Question:      req.Question,
		MaxIterations: req.MaxIterations,
		EntityFilter:  req.EntityFilter,
	})

	if result.Status == domainOrch.StatusFailed || result.Status == domainOrch.StatusCancelled {
		response.ErrorWithKind(c, statusForKind(result.ErrorKind), 1002, string(result.ErrorKind), result.ErrorDetail)
		return
	}

	response.Success(c, result)
}

// AskStream 流式提问
// @Summary 以 SSE 流式返回运行事件，final 事件携带最终结果
// @Tags 问答
// @Produce text/event-stream
// @Param question query string true "问题"
// @Param max_iterations query int false "迭代上限"
// @Param entity_filter query string false "逗号分隔的实体过滤词"
// @Success 200 {string} string "SSE 事件流"
// @Router /api/v1/ask/stream [get]
func (h *AskHandler) AskStream(c *gin.Context) {
	question := c.Query("question")
	if strings.TrimSpace(question) == "" {
		response.ErrorWithKind(c, http.StatusBadRequest, 1001, "invalid_input", "question is required")
		return
	}

	maxIterations, _ := strconv.Atoi(c.DefaultQuery("max_iterations", "0"))
	var entityFilter []string
	if raw := c.Query("entity_filter"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				entityFilter = append(entityFilter, v)
			}
		}
	}

	runID, events := h.orchestrator.Stream(c.Request.Context(), domainOrch.Request{
		Question:      question,
		MaxIterations: maxIterations,
		EntityFilter:  entityFilter,
	})

	h.logger.Info("Streaming run started", "run_id", runID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events.Events()
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return ev.Type != domainOrch.EventFinal
	})
}

// statusForKind 错误种类到 HTTP 状态码的映射
func statusForKind(kind domainOrch.ErrorKind) int {
	switch kind {
	case domainOrch.KindInvalidInput:
		return http.StatusBadRequest
	case domainOrch.KindNoRelevantDocuments:
		return http.StatusNotFound
	case domainOrch.KindGenerationTimeout:
		return http.StatusGatewayTimeout
	case domainOrch.KindCancelled:
		// 客户端主动断开
		return 499
	default:
		return http.StatusBadGateway
	}
}
