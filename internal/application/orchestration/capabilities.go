package orchestration

import (
	"context"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	domain "github.com/ragpro/backend/internal/domain/orchestration"
)

// Searcher 词法检索能力
// 由 application/corpus.SearchService 提供
type Searcher interface {
	Search(ctx context.Context, query string, k int, entityFilter []string) ([]domainCorpus.SearchHit, error)
}

// Planner 规划能力
// 根据问题与此前各轮的记录产出下一轮检索规划
type Planner interface {
	Plan(ctx context.Context, question string, history []domain.Iteration, guidance string) (domain.Plan, error)
}

// Drafter 撰写能力
// 仅基于给定语料片段撰写草稿答案
type Drafter interface {
	Draft(ctx context.Context, question string, snippets []string) (string, error)
}

// Critic 批评能力
// 判断草稿是否充分回答了问题，不充分时给出改进指引
type Critic interface {
	Critique(ctx context.Context, question, draft string, snippets []string) (domain.Critique, error)
}
