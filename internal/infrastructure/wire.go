package infrastructure

import (
	"github.com/google/wire"
	"github.com/ragpro/backend/internal/infrastructure/config"
	"github.com/ragpro/backend/internal/infrastructure/index"
	"github.com/ragpro/backend/internal/infrastructure/llm"
	"github.com/ragpro/backend/internal/infrastructure/storage"
	"github.com/ragpro/backend/internal/infrastructure/watcher"
	"github.com/ragpro/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	index.ProviderSet,
	llm.ProviderSet,
	websocket.ProviderSet,
	watcher.ProviderSet,
)
