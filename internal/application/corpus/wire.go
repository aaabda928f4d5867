package corpus

import "github.com/google/wire"

// ProviderSet 语料应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewFragmenter,
	NewService,
	NewSearchService,
	NewFileHandler,
)
