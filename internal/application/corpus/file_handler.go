package corpus

import (
	"context"
	"os"
	"time"

	"log/slog"

	"github.com/ragpro/backend/internal/domain/events"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// FileHandler 文档文件事件处理器
// 订阅监听器发布的文件事件，将文件内容摄入语料库或从中删除
type FileHandler struct {
	service *Service
	logger  *slog.Logger
}

// NewFileHandler 创建文件事件处理器
func NewFileHandler(service *Service) *FileHandler {
	return &FileHandler{
		service: service,
		logger:  log.NewModuleLogger("corpus", "file_handler"),
	}
}

// Register 在事件总线上注册订阅
func (h *FileHandler) Register(bus events.EventBus) func() {
	return bus.SubscribeMultiple([]events.EventType{
		events.DocumentFileCreated,
		events.DocumentFileModified,
		events.DocumentFileDeleted,
	}, h)
}

// HandleEvent 实现 events.Handler
func (h *FileHandler) HandleEvent(event events.Event) error {
	fileEvent, ok := event.(*events.DocumentFileEvent)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch fileEvent.EventType {
	case events.DocumentFileCreated, events.DocumentFileModified:
		return h.ingestFile(ctx, fileEvent)
	case events.DocumentFileDeleted:
		_, err := h.service.Delete(ctx, fileEvent.DocumentID)
		return err
	}
	return nil
}

// ingestFile 读取文件并摄入
func (h *FileHandler) ingestFile(ctx context.Context, fileEvent *events.DocumentFileEvent) error {
	data, err := os.ReadFile(fileEvent.FilePath)
	if err != nil {
		// 防抖延迟期间文件可能已被删除
		h.logger.Warn("Failed to read watched file",
			"path", fileEvent.FilePath,
			"error", err,
		)
		return nil
	}

	if _, err := h.service.Ingest(ctx, fileEvent.DocumentID, string(data)); err != nil {
		h.logger.Warn("Failed to ingest watched file",
			"path", fileEvent.FilePath,
			"document_id", fileEvent.DocumentID,
			"error", err,
		)
	}
	return nil
}
