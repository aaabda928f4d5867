package corpus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	domainTrace "github.com/ragpro/backend/internal/domain/trace"
	"github.com/ragpro/backend/internal/infrastructure/index"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/infrastructure/websocket"
)

// EntityExtractor 实体提取能力
// 由 application/extraction 提供；taskPrompt 为空时使用默认提取指令
type EntityExtractor interface {
	Extract(ctx context.Context, documentID, text, taskPrompt string) ([]*domainCorpus.EntityMention, error)
}

// IngestResult 摄入结果
type IngestResult struct {
	DocumentID    string   `json:"document_id"`
	FragmentIDs   []string `json:"fragment_ids"`
	FragmentCount int      `json:"fragment_count"`
}

// Service 语料服务
// 负责文档摄入、删除、列表与索引维护。
// 写操作通过全局互斥锁串行化（单写多读），
// 避免读方观测到"片段已删未建"的中间态
type Service struct {
	docRepo    domainCorpus.DocumentRepository
	entityRepo domainCorpus.EntityRepository
	traceRepo  domainTrace.Repository
	idx        *index.LexicalIndex
	fragmenter *Fragmenter
	extractor  EntityExtractor
	hub        *websocket.Hub
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewService 创建语料服务
func NewService(
	docRepo domainCorpus.DocumentRepository,
	entityRepo domainCorpus.EntityRepository,
	traceRepo domainTrace.Repository,
	idx *index.LexicalIndex,
	fragmenter *Fragmenter,
	extractor EntityExtractor,
	hub *websocket.Hub,
) *Service {
	return &Service{
		docRepo:    docRepo,
		entityRepo: entityRepo,
		traceRepo:  traceRepo,
		idx:        idx,
		fragmenter: fragmenter,
		extractor:  extractor,
		hub:        hub,
		logger:     log.NewModuleLogger("corpus", "service"),
	}
}

// Ingest 摄入文档
// documentID 为空时自动分配 UUID；同 ID 重复摄入替换其全部片段。
// 规范化后为空的文本在任何索引变更前被拒绝
func (s *Service) Ingest(ctx context.Context, documentID, text string) (*IngestResult, error) {
	fragTexts := s.fragmenter.Split(text)
	if len(fragTexts) == 0 {
		return nil, fmt.Errorf("%w: text is empty after normalization", domainCorpus.ErrInvalidInput)
	}

	if documentID == "" {
		documentID = uuid.NewString()
	}

	doc := &domainCorpus.Document{
		ID:        documentID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	fragments := make([]*domainCorpus.Fragment, 0, len(fragTexts))
	fragmentIDs := make([]string, 0, len(fragTexts))
	for i, ft := range fragTexts {
		frag := &domainCorpus.Fragment{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Text:       ft,
			Position:   i,
		}
		fragments = append(fragments, frag)
		fragmentIDs = append(fragmentIDs, frag.ID)
	}

	// 写锁内完成持久化与索引替换，读方看不到中间态
	s.mu.Lock()
	if err := s.docRepo.SaveDocument(doc, fragments); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	s.idx.RemoveDocument(documentID)
	for _, frag := range fragments {
		s.idx.Reindex(frag.ID, frag.DocumentID, frag.Position, frag.Text)
	}
	s.mu.Unlock()

	s.logger.Info("Document ingested",
		"document_id", documentID,
		"fragments", len(fragments),
	)

	s.appendTrace(domainTrace.TypeIngest, map[string]any{
		"document_id": documentID,
		"fragments":   len(fragments),
		"length":      len(text),
	})
	s.notify("ingest", documentID)

	// 摄入后异步提取实体；失败只记日志，绝不影响摄入结果
	if s.extractor != nil {
		go s.extractInBackground(documentID, text)
	}

	return &IngestResult{
		DocumentID:    documentID,
		FragmentIDs:   fragmentIDs,
		FragmentCount: len(fragmentIDs),
	}, nil
}

// Delete 删除文档及其片段和缓存实体
// 幂等：删除未知 ID 返回 false 而非错误
func (s *Service) Delete(ctx context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	deleted, err := s.docRepo.DeleteDocument(documentID)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	s.idx.RemoveDocument(documentID)
	s.mu.Unlock()

	if deleted {
		s.logger.Info("Document deleted", "document_id", documentID)
		s.appendTrace(domainTrace.TypeDelete, map[string]any{"document_id": documentID})
		s.notify("delete", documentID)
	}
	return deleted, nil
}

// List 列出全部文档摘要
func (s *Service) List(ctx context.Context) ([]*domainCorpus.DocumentSummary, error) {
	return s.docRepo.ListDocuments()
}

// RebuildIndex 从存储重建索引（启动时调用）
func (s *Service) RebuildIndex() error {
	fragments, err := s.docRepo.ListAllFragments()
	if err != nil {
		return fmt.Errorf("failed to load fragments: %w", err)
	}

	s.mu.Lock()
	for _, frag := range fragments {
		s.idx.Reindex(frag.ID, frag.DocumentID, frag.Position, frag.Text)
	}
	s.mu.Unlock()

	s.logger.Info("Lexical index rebuilt", "fragments", len(fragments))
	return nil
}

// extractInBackground 摄入后的后台实体提取
func (s *Service) extractInBackground(documentID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.extractor.Extract(ctx, documentID, text, ""); err != nil {
		// 本地恢复：记日志、实体缺省，摄入不受影响
		s.logger.Warn("Entity extraction failed after ingest",
			"document_id", documentID,
			"error", err,
		)
	}
}

// appendTrace 追加追踪记录（失败只记日志）
func (s *Service) appendTrace(t domainTrace.Type, payload map[string]any) {
	if s.traceRepo == nil {
		return
	}
	if err := s.traceRepo.Append(t, payload); err != nil {
		s.logger.Warn("Failed to append trace", "type", string(t), "error", err)
	}
}

// notify 向语料主题广播变更通知
func (s *Service) notify(action, documentID string) {
	if s.hub == nil {
		return
	}
	_ = s.hub.Broadcast(websocket.TopicCorpus, map[string]any{
		"action":      action,
		"document_id": documentID,
	})
}
