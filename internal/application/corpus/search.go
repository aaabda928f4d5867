package corpus

import (
	"context"
	"fmt"

	"log/slog"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	"github.com/ragpro/backend/internal/infrastructure/index"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// SearchService 词法检索服务
// 在倒排索引之上叠加实体过滤：过滤词先解析为允许的文档集合
type SearchService struct {
	entityRepo domainCorpus.EntityRepository
	idx        *index.LexicalIndex
	logger     *slog.Logger
}

// NewSearchService 创建检索服务
func NewSearchService(entityRepo domainCorpus.EntityRepository, idx *index.LexicalIndex) *SearchService {
	return &SearchService{
		entityRepo: entityRepo,
		idx:        idx,
		logger:     log.NewModuleLogger("corpus", "search"),
	}
}

// Search 执行检索
// entityFilter 非空时仅保留实体值命中（大小写不敏感，OR 语义）的文档；
// 过滤词全部未命中返回空序列而非错误
func (s *SearchService) Search(ctx context.Context, query string, k int, entityFilter []string) ([]domainCorpus.SearchHit, error) {
	if k <= 0 {
		k = 10
	}
	if k > 100 {
		k = 100
	}

	var allowedDocs map[string]struct{}
	if len(entityFilter) > 0 {
		docs, err := s.entityRepo.FindDocumentsByValues(entityFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve entity filter: %w", err)
		}
		// 非 nil 空集合：过滤词无命中时结果为空
		allowedDocs = docs
	}

	hits := s.idx.Search(query, k, allowedDocs)

	s.logger.Debug("Search executed",
		"query", query,
		"k", k,
		"entity_filter", entityFilter,
		"hits", len(hits),
	)
	return hits, nil
}
