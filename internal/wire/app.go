package wire

import (
	"database/sql"

	"log/slog"

	appCorpus "github.com/ragpro/backend/internal/application/corpus"
	"github.com/ragpro/backend/internal/domain/events"
	applog "github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/infrastructure/watcher"
	"github.com/ragpro/backend/internal/infrastructure/websocket"
	"github.com/ragpro/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer    *interfaces.HTTPServer
	MCPServer     *interfaces.MCPServer
	wsHub         *websocket.Hub
	corpusService *appCorpus.Service
	fileHandler   *appCorpus.FileHandler
	eventBus      events.EventBus
	fileWatcher   *watcher.FileWatcher
	db            *sql.DB
	logger        *slog.Logger

	unsubscribe func()
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	corpusService *appCorpus.Service,
	fileHandler *appCorpus.FileHandler,
	eventBus events.EventBus,
	fileWatcher *watcher.FileWatcher,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:    httpServer,
		MCPServer:     mcpServer,
		wsHub:         wsHub,
		corpusService: corpusService,
		fileHandler:   fileHandler,
		eventBus:      eventBus,
		fileWatcher:   fileWatcher,
		db:            db,
		logger:        applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting ragpro backend application")

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 从存储重建词法索引
	if err := a.corpusService.RebuildIndex(); err != nil {
		a.logger.Error("Failed to rebuild lexical index", "error", err)
		return err
	}

	// 注册文件事件订阅并启动文档目录监听
	a.unsubscribe = a.fileHandler.Register(a.eventBus)
	if a.fileWatcher != nil {
		if err := a.fileWatcher.Start(); err != nil {
			a.logger.Error("Failed to start document watcher", "error", err)
		} else {
			a.logger.Info("Document watcher started")
		}
	}

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("HTTP server stopped", "error", err)
		}
	}()

	a.logger.Info("ragpro backend application started successfully")

	// MCP 服务器通过 HTTP Handler 提供服务，已注册 /mcp/sse 端点
	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping ragpro backend application")

	// 停止文档目录监听
	if a.fileWatcher != nil {
		a.fileWatcher.Stop()
	}

	// 关闭事件总线，等待进行中的摄入完成
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.eventBus != nil {
		a.eventBus.Close()
	}

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server", "error", err)
		return err
	}

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database connection", "error", err)
			return err
		}
	}

	a.logger.Info("ragpro backend application stopped successfully")
	return nil
}
