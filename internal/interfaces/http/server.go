package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ragpro/backend/internal/infrastructure/config"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/interfaces/http/handler"
	"github.com/ragpro/backend/internal/interfaces/http/middleware"
	"github.com/ragpro/backend/internal/interfaces/mcp"

	_ "github.com/ragpro/backend/docs" // Swagger docs
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.Config,
	corpusHandler *handler.CorpusHandler,
	askHandler *handler.AskHandler,
	extractHandler *handler.ExtractHandler,
	traceHandler *handler.TraceHandler,
	wsHandler *handler.WSHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 语料相关路由
		api.POST("/documents", corpusHandler.Ingest)
		api.GET("/documents", corpusHandler.List)
		api.DELETE("/documents/:id", corpusHandler.Delete)
		api.POST("/search", corpusHandler.Search)

		// 问答相关路由
		api.POST("/ask", askHandler.Ask)
		api.GET("/ask/stream", askHandler.AskStream)

		// 实体与追踪
		api.POST("/extract", extractHandler.Extract)
		api.GET("/traces", traceHandler.Recent)
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 主题订阅
	router.GET("/ws", wsHandler.Subscribe)

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: cfg.Server.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting", "port", s.httpPort)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
