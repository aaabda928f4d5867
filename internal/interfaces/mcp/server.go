package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	appCorpus "github.com/ragpro/backend/internal/application/corpus"
	appOrch "github.com/ragpro/backend/internal/application/orchestration"
)

// MCPServer MCP 服务器
// 将语料检索与问答能力暴露给 MCP 客户端
type MCPServer struct {
	server       *mcp.Server
	handler      http.Handler
	corpusSvc    *appCorpus.Service
	searchSvc    *appCorpus.SearchService
	orchestrator *appOrch.Orchestrator
}

// NewServer 创建 MCP 服务器
func NewServer(
	corpusSvc *appCorpus.Service,
	searchSvc *appCorpus.SearchService,
	orchestrator *appOrch.Orchestrator,
) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "ragpro-backend",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:       server,
		corpusSvc:    corpusSvc,
		searchSvc:    searchSvc,
		orchestrator: orchestrator,
	}

	// 注册工具：ask_corpus
	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_corpus",
		Description: `Ask a question against the ingested document corpus using iterative plan-retrieve-draft-critique loops.
Parameters:
- question (string, required): The question to answer
- max_iterations (int, optional): Iteration budget, defaults to server setting
- entity_filter (array of strings, optional): Only consider documents mentioning these entity values (case-insensitive, OR semantics)

Returns: status (answered/exhausted/failed), answer, best_effort flag, and the source fragments used.`,
	}, mcpServer.askCorpusTool)

	// 注册工具：search_corpus
	mcp.AddTool(server, &mcp.Tool{
		Name: "search_corpus",
		Description: `Run a single lexical search over the corpus without the answer loop.
Parameters:
- query (string, required): Search keywords
- k (int, optional): Maximum number of hits, defaults to 10
- entity_filter (array of strings, optional): Restrict to documents mentioning these entity values

Returns: ranked fragment hits with scores.`,
	}, mcpServer.searchCorpusTool)

	// 注册工具：list_documents
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all ingested documents with fragment counts and text previews. No parameters required.",
	}, mcpServer.listDocumentsTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}
