//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"
	"github.com/ragpro/backend/internal/application"
	appCorpus "github.com/ragpro/backend/internal/application/corpus"
	appExtraction "github.com/ragpro/backend/internal/application/extraction"
	appOrch "github.com/ragpro/backend/internal/application/orchestration"
	"github.com/ragpro/backend/internal/infrastructure"
	"github.com/ragpro/backend/internal/infrastructure/llm"
	"github.com/ragpro/backend/internal/interfaces"
)

// InitializeAll 初始化所有服务（HTTP + MCP）
func InitializeAll() (*App, error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		// 接口绑定：应用层能力 -> 具体实现
		wire.Bind(new(appCorpus.EntityExtractor), new(*appExtraction.Extractor)),
		wire.Bind(new(appExtraction.Generator), new(*llm.Client)),
		wire.Bind(new(appOrch.Generator), new(*llm.Client)),
		wire.Bind(new(appOrch.Searcher), new(*appCorpus.SearchService)),
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil
}
