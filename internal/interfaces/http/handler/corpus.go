package handler

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	appCorpus "github.com/ragpro/backend/internal/application/corpus"
	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/interfaces/http/response"
)

// CorpusHandler 语料处理器
type CorpusHandler struct {
	service *appCorpus.Service
	search  *appCorpus.SearchService
	logger  *slog.Logger
}

// NewCorpusHandler 创建语料处理器
func NewCorpusHandler(service *appCorpus.Service, search *appCorpus.SearchService) *CorpusHandler {
	return &CorpusHandler{
		service: service,
		search:  search,
		logger:  log.NewModuleLogger("http", "corpus_handler"),
	}
}

// IngestRequest 摄入请求
type IngestRequest struct {
	// DocumentID 可选，为空时自动分配；同 ID 重复摄入替换旧内容
	DocumentID string `json:"document_id,omitempty"`
	// Text 文档全文
	Text string `json:"text" binding:"required"`
}

// Ingest 摄入文档
// @Summary 摄入文档
// @Tags 语料
// @Accept json
// @Produce json
// @Param request body IngestRequest true "摄入请求"
// @Success 200 {object} response.Response{data=appCorpus.IngestResult}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/documents [post]
func (h *CorpusHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1001, err.Error())
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), req.DocumentID, req.Text)
	if err != nil {
		if errors.Is(err, domainCorpus.ErrInvalidInput) {
			response.ErrorWithKind(c, http.StatusBadRequest, 1001, "invalid_input", err.Error())
			return
		}
		h.logger.Error("Ingest failed", "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	response.Success(c, result)
}

// List 列出文档
// @Summary 列出全部文档摘要
// @Tags 语料
// @Produce json
// @Success 200 {object} response.Response{data=[]domainCorpus.DocumentSummary}
// @Router /api/v1/documents [get]
func (h *CorpusHandler) List(c *gin.Context) {
	docs, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.Error("List documents failed", "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	response.Success(c, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

// Delete 删除文档
// @Summary 删除文档及其片段和缓存实体
// @Tags 语料
// @Produce json
// @Param id path string true "文档 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/documents/{id} [delete]
func (h *CorpusHandler) Delete(c *gin.Context) {
	documentID := c.Param("id")

	deleted, err := h.service.Delete(c.Request.Context(), documentID)
	if err != nil {
		h.logger.Error("Delete document failed", "document_id", documentID, "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	response.Success(c, gin.H{
		"document_id": documentID,
		"deleted":     deleted,
	})
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	// K 返回数量上限，默认 10
	K int `json:"k,omitempty"`
	// EntityFilter 实体过滤词（大小写不敏感，OR 语义）
	EntityFilter []string `json:"entity_filter,omitempty"`
}

// Search 词法检索
// @Summary 对语料执行词法检索
// @Tags 语料
// @Accept json
// @Produce json
// @Param request body SearchRequest true "检索请求"
// @Success 200 {object} response.Response{data=[]domainCorpus.SearchHit}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/search [post]
func (h *CorpusHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 1001, err.Error())
		return
	}

	hits, err := h.search.Search(c.Request.Context(), req.Query, req.K, req.EntityFilter)
	if err != nil {
		h.logger.Error("Search failed", "query", req.Query, "error", err)
		response.Error(c, http.StatusInternalServerError, 1003, err.Error())
		return
	}

	response.Success(c, gin.H{
		"hits":  hits,
		"count": len(hits),
	})
}
