package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	domainOrch "github.com/ragpro/backend/internal/domain/orchestration"
)

// AskCorpusInput 问答工具输入
type AskCorpusInput struct {
	Question      string   `json:"question" jsonschema:"要回答的问题"`
	MaxIterations int      `json:"max_iterations,omitempty" jsonschema:"迭代上限（可选，默认服务端配置）"`
	EntityFilter  []string `json:"entity_filter,omitempty" jsonschema:"实体过滤词（可选，大小写不敏感，OR 语义）"`
}

// AskCorpusOutput 问答工具输出
type AskCorpusOutput struct {
	Status     string             `json:"status" jsonschema:"终态：answered/exhausted/failed/cancelled"`
	Answer     string             `json:"answer,omitempty" jsonschema:"最终答案"`
	BestEffort bool               `json:"best_effort,omitempty" jsonschema:"是否为非权威的尽力而为答案"`
	Sources    []domainOrch.Source `json:"sources,omitempty" jsonschema:"答案引用的来源片段"`
	ErrorKind  string             `json:"error_kind,omitempty" jsonschema:"失败时的错误种类"`
	Iterations int                `json:"iterations" jsonschema:"实际执行的迭代数"`
}

// askCorpusTool 对语料提问
func (s *MCPServer) askCorpusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskCorpusInput,
) (*mcp.CallToolResult, AskCorpusOutput, error) {
	result := s.orchestrator.Ask(ctx, domainOrch.Request{
		Question:      input.Question,
		MaxIterations: input.MaxIterations,
		EntityFilter:  input.EntityFilter,
	})

	return nil, AskCorpusOutput{
		Status:     string(result.Status),
		Answer:     result.Answer,
		BestEffort: result.BestEffort,
		Sources:    result.Sources,
		ErrorKind:  string(result.ErrorKind),
		Iterations: len(result.Iterations),
	}, nil
}

// SearchCorpusInput 检索工具输入
type SearchCorpusInput struct {
	Query        string   `json:"query" jsonschema:"检索关键词"`
	K            int      `json:"k,omitempty" jsonschema:"返回数量上限（可选，默认 10）"`
	EntityFilter []string `json:"entity_filter,omitempty" jsonschema:"实体过滤词（可选）"`
}

// SearchHitOutput 单条命中
type SearchHitOutput struct {
	FragmentID string  `json:"fragment_id" jsonschema:"片段 ID"`
	DocumentID string  `json:"document_id" jsonschema:"所属文档 ID"`
	Text       string  `json:"text" jsonschema:"片段文本"`
	Score      float64 `json:"score" jsonschema:"相关性得分"`
	Rank       int     `json:"rank" jsonschema:"排名（从 0 开始）"`
}

// SearchCorpusOutput 检索工具输出
type SearchCorpusOutput struct {
	Hits  []SearchHitOutput `json:"hits" jsonschema:"命中列表，按得分降序"`
	Count int               `json:"count" jsonschema:"命中数量"`
}

// searchCorpusTool 对语料执行单次词法检索
func (s *MCPServer) searchCorpusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchCorpusInput,
) (*mcp.CallToolResult, SearchCorpusOutput, error) {
	hits, err := s.searchSvc.Search(ctx, input.Query, input.K, input.EntityFilter)
	if err != nil {
		return nil, SearchCorpusOutput{}, err
	}

	out := SearchCorpusOutput{Hits: make([]SearchHitOutput, 0, len(hits)), Count: len(hits)}
	for _, hit := range hits {
		out.Hits = append(out.Hits, SearchHitOutput{
			FragmentID: hit.FragmentID,
			DocumentID: hit.DocumentID,
			Text:       hit.Text,
			Score:      hit.Score,
			Rank:       hit.Rank,
		})
	}
	return nil, out, nil
}

// ListDocumentsInput 文档列表工具输入（空输入）
type ListDocumentsInput struct{}

// DocumentSummaryOutput 单个文档摘要
type DocumentSummaryOutput struct {
	DocumentID    string `json:"document_id" jsonschema:"文档 ID"`
	FragmentCount int    `json:"fragment_count" jsonschema:"片段数量"`
	Preview       string `json:"preview" jsonschema:"文本预览"`
	CreatedAt     string `json:"created_at" jsonschema:"创建时间（RFC3339）"`
}

// ListDocumentsOutput 文档列表工具输出
type ListDocumentsOutput struct {
	Documents []DocumentSummaryOutput `json:"documents" jsonschema:"文档列表"`
	Count     int                     `json:"count" jsonschema:"文档数量"`
}

// listDocumentsTool 列出全部已摄入文档
func (s *MCPServer) listDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.corpusSvc.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	out := ListDocumentsOutput{Documents: make([]DocumentSummaryOutput, 0, len(docs)), Count: len(docs)}
	for _, doc := range docs {
		out.Documents = append(out.Documents, DocumentSummaryOutput{
			DocumentID:    doc.ID,
			FragmentCount: doc.FragmentCount,
			Preview:       doc.TextPreview,
			CreatedAt:     doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return nil, out, nil
}
