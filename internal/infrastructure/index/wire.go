package index

import "github.com/google/wire"

// ProviderSet 词法索引 ProviderSet
var ProviderSet = wire.NewSet(
	NewLexicalIndex,
)
