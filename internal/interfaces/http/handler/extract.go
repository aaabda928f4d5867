package handler

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	appExtraction "github.com/ragpro/backend/internal/application/extraction"
	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/interfaces/http/response"
)

// ExtractHandler 实体提取处理器
type ExtractHandler struct {
	extractor *appExtraction.Extractor
	docRepo   domainCorpus.DocumentRepository
	logger    *slog.Logger
}

// NewExtractHandler 创建实体提取处理器
func NewExtractHandler(extractor *appExtraction.Extractor, docRepo domainCorpus.DocumentRepository) *ExtractHandler {
	return &ExtractHandler{
		extractor: extractor,
		docRepo:   docRepo,
		logger:    log.NewModuleLogger("http", "extract_handler"),
	}
}

// ExtractRequest 提取请求
type ExtractRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	// TaskPrompt 可选的提取指令，为空时使用默认指令；相同指令命中缓存
	TaskPrompt string `json:"task_prompt,omitempty"`
}

// Extract 提取文档实体
// @Summary 按文档和指令提取类型化实体提及（带缓存）
// @Tags 实体
// @Accept json
// @Produce json
// @Param request body ExtractRequest true "提取请求"
// @Success 200 {object} response.Response{data=[]domainCorpus.EntityMention}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/extract [post]
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1001, err.Error())
		return
	}

	doc, err := h.docRepo.GetDocument(req.DocumentID)
	if err != nil {
		h.logger.Error("Failed to load document", "document_id", req.DocumentID, "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, 1002, "document not found")
		return
	}

	mentions, err := h.extractor.Extract(c.Request.Context(), doc.ID, doc.Text, req.TaskPrompt)
	if err != nil {
		if errors.Is(err, domainCorpus.ErrExtractionFailed) {
			response.ErrorWithKind(c, http.StatusBadGateway, 1004, "extraction_failed", err.Error())
			return
		}
		h.logger.Error("Extraction failed", "document_id", req.DocumentID, "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	response.Success(c, gin.H{
		"document_id": doc.ID,
		"mentions":    mentions,
		"count":       len(mentions),
	})
}
