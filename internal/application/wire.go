package application

import (
	"github.com/google/wire"
	"github.com/ragpro/backend/internal/application/corpus"
	"github.com/ragpro/backend/internal/application/extraction"
	"github.com/ragpro/backend/internal/application/orchestration"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	corpus.ProviderSet,
	extraction.ProviderSet,
	orchestration.ProviderSet,
)
