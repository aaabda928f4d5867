package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ragpro/backend/internal/domain/events"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// WatchConfig FileWatcher 配置
type WatchConfig struct {
	// DocsDir 文档目录，其中的 .txt/.md 文件被自动摄入语料库
	DocsDir string
	// DebounceDelay 防抖延迟，编辑器连续写入合并为一次事件
	DebounceDelay time.Duration
}

// DefaultWatchConfig 返回默认配置
func DefaultWatchConfig(docsDir string) WatchConfig {
	return WatchConfig{
		DocsDir:       docsDir,
		DebounceDelay: 500 * time.Millisecond,
	}
}

// FileWatcher 文档目录监听器
// 将目录中文档文件的增删改转换为领域事件发布到总线
type FileWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFileWatcher 创建文档目录监听器
func NewFileWatcher(config WatchConfig, eventBus events.EventBus) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "file_watcher"),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动监听
// 先对目录做一次全量扫描补齐存量文件，再进入增量监听
func (fw *FileWatcher) Start() error {
	fw.logger.Info("Starting document watcher", "docs_dir", fw.config.DocsDir)

	if err := os.MkdirAll(fw.config.DocsDir, 0755); err != nil {
		return err
	}

	fw.performFullScan()

	if err := fw.watcher.Add(fw.config.DocsDir); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.watchLoop()

	return nil
}

// Stop 停止监听
func (fw *FileWatcher) Stop() {
	fw.logger.Info("Stopping document watcher")

	close(fw.stopCh)
	fw.watcher.Close()
	fw.wg.Wait()

	fw.debounceMu.Lock()
	for _, timer := range fw.debounceTimers {
		timer.Stop()
	}
	fw.debounceMu.Unlock()

	fw.logger.Info("Document watcher stopped")
}

// performFullScan 全量扫描目录中的存量文档
func (fw *FileWatcher) performFullScan() {
	startTime := time.Now()
	count := 0

	entries, err := os.ReadDir(fw.config.DocsDir)
	if err != nil {
		fw.logger.Error("Failed to read docs directory", "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isDocumentFile(entry.Name()) {
			continue
		}
		path := filepath.Join(fw.config.DocsDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		fw.eventBus.Publish(&events.DocumentFileEvent{
			EventType:  events.DocumentFileCreated,
			DocumentID: DocumentIDForPath(path),
			FilePath:   path,
			ModTime:    info.ModTime(),
			EventTime:  time.Now(),
		})
		count++
	}

	fw.logger.Info("Full scan completed",
		"documents", count,
		"duration", time.Since(startTime),
	)
}

// watchLoop 事件监听循环
func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理文件系统事件（带防抖）
func (fw *FileWatcher) handleFsEvent(fsEvent fsnotify.Event) {
	if !isDocumentFile(fsEvent.Name) {
		return
	}

	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if timer, exists := fw.debounceTimers[fsEvent.Name]; exists {
		timer.Stop()
	}

	fw.debounceTimers[fsEvent.Name] = time.AfterFunc(fw.config.DebounceDelay, func() {
		fw.emitDocumentEvent(fsEvent)

		fw.debounceMu.Lock()
		delete(fw.debounceTimers, fsEvent.Name)
		fw.debounceMu.Unlock()
	})
}

// emitDocumentEvent 发布文档文件事件
func (fw *FileWatcher) emitDocumentEvent(fsEvent fsnotify.Event) {
	var eventType events.EventType
	switch {
	case fsEvent.Has(fsnotify.Create):
		eventType = events.DocumentFileCreated
	case fsEvent.Has(fsnotify.Write):
		eventType = events.DocumentFileModified
	case fsEvent.Has(fsnotify.Remove), fsEvent.Has(fsnotify.Rename):
		eventType = events.DocumentFileDeleted
	default:
		return
	}

	var modTime time.Time
	if info, err := os.Stat(fsEvent.Name); err == nil {
		modTime = info.ModTime()
	}

	fw.eventBus.Publish(&events.DocumentFileEvent{
		EventType:  eventType,
		DocumentID: DocumentIDForPath(fsEvent.Name),
		FilePath:   fsEvent.Name,
		ModTime:    modTime,
		EventTime:  time.Now(),
	})

	fw.logger.Debug("Document file event emitted",
		"type", eventType,
		"path", fsEvent.Name,
	)
}

// isDocumentFile 判断是否为可摄入的文档文件
func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

// DocumentIDForPath 由文件名派生稳定文档 ID
// 同一文件反复修改映射到同一文档，重新摄入即替换
func DocumentIDForPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return "file:" + name
}
