package extraction

import "github.com/google/wire"

// ProviderSet 实体提取 ProviderSet
var ProviderSet = wire.NewSet(
	NewExtractor,
)
