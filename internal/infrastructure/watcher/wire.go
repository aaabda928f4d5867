package watcher

import (
	"github.com/google/wire"
	"github.com/ragpro/backend/internal/domain/events"
	"github.com/ragpro/backend/internal/infrastructure/config"
)

// ProviderSet 文档监听 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideEventBus,
	ProvideFileWatcher,
)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() events.EventBus {
	return NewEventBus()
}

// ProvideFileWatcher 提供文档目录监听器实例
// 未配置监听目录时返回 nil，应用跳过启动监听
func ProvideFileWatcher(cfg *config.Config, eventBus events.EventBus) (*FileWatcher, error) {
	if cfg.Watcher.DocsDir == "" {
		return nil, nil
	}
	return NewFileWatcher(DefaultWatchConfig(cfg.Watcher.DocsDir), eventBus)
}
