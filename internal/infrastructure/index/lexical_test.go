package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildIndex 构造测试索引
func buildIndex() *LexicalIndex {
	idx := NewLexicalIndex()
	idx.Reindex("f1", "doc-a", 0, "Acme Corp signed a contract in Berlin on 2024-01-05.")
	idx.Reindex("f2", "doc-a", 1, "The contract covers cloud services for three years.")
	idx.Reindex("f3", "doc-b", 0, "Berlin is the capital of Germany.")
	idx.Reindex("f4", "doc-c", 0, "Quarterly revenue grew by twelve percent.")
	return idx
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := NewLexicalIndex()
	hits := idx.Search("anything", 5, nil)
	assert.Empty(t, hits, "空索引返回空切片而非错误")
}

func TestSearch_NoMatch(t *testing.T) {
	idx := buildIndex()
	hits := idx.Search("zebra xylophone", 5, nil)
	assert.Empty(t, hits)
}

func TestSearch_RankingAndLimit(t *testing.T) {
	idx := buildIndex()

	hits := idx.Search("Berlin contract", 5, nil)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 5)

	// f1 同时命中 Berlin 和 contract，应排第一
	assert.Equal(t, "f1", hits[0].FragmentID)
	assert.Equal(t, "doc-a", hits[0].DocumentID)
	assert.Equal(t, 0, hits[0].Rank)

	// 得分严格非负、降序，rank 连续
	for i, h := range hits {
		assert.Equal(t, i, h.Rank)
		assert.GreaterOrEqual(t, h.Score, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
	}

	// k 截断
	hits = idx.Search("Berlin contract", 1, nil)
	assert.Len(t, hits, 1)
}

func TestSearch_Deterministic(t *testing.T) {
	idx := buildIndex()

	first := idx.Search("Berlin contract services", 10, nil)
	for i := 0; i < 20; i++ {
		again := idx.Search("Berlin contract services", 10, nil)
		require.Equal(t, first, again, "索引未变时重复检索结果必须一致")
	}
}

func TestSearch_AllowedDocsFilter(t *testing.T) {
	idx := buildIndex()

	allowed := map[string]struct{}{"doc-b": {}}
	hits := idx.Search("Berlin", 5, allowed)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-b", hits[0].DocumentID)

	// 空集合过滤掉所有候选
	hits = idx.Search("Berlin", 5, map[string]struct{}{})
	assert.Empty(t, hits)
}

func TestSearch_TermFrequencyMonotonic(t *testing.T) {
	idx := NewLexicalIndex()
	idx.Reindex("f1", "doc-a", 0, "apple banana cherry")
	idx.Reindex("f2", "doc-b", 0, "apple apple banana cherry")

	hits := idx.Search("apple", 5, nil)
	require.Len(t, hits, 2)
	// 词频更高的片段得分更高（长度相近时）
	assert.Equal(t, "f2", hits[0].FragmentID)
}

func TestSearch_LengthNormalization(t *testing.T) {
	idx := NewLexicalIndex()
	idx.Reindex("short", "doc-a", 0, "berlin weather")
	idx.Reindex("long", "doc-b", 0,
		"berlin weather report with a very long trailing discussion about unrelated topics such as trains schedules museums and food")

	hits := idx.Search("berlin", 5, nil)
	require.Len(t, hits, 2)
	// 同词频下，较短片段得分更高
	assert.Equal(t, "short", hits[0].FragmentID)
}

func TestRemove_FragmentAndDocument(t *testing.T) {
	idx := buildIndex()

	idx.Remove("f3")
	hits := idx.Search("Germany", 5, nil)
	assert.Empty(t, hits)

	// 删除未知 ID 是 no-op
	idx.Remove("nonexistent")

	idx.RemoveDocument("doc-a")
	hits = idx.Search("contract", 5, nil)
	assert.Empty(t, hits)
	assert.Equal(t, 1, idx.Size())
}

func TestReindex_ReplacesOldTerms(t *testing.T) {
	idx := NewLexicalIndex()
	idx.Reindex("f1", "doc-a", 0, "original wording here")

	idx.Reindex("f1", "doc-a", 0, "replacement text entirely")

	assert.Empty(t, idx.Search("original", 5, nil), "旧词元应随重索引消失")
	require.Len(t, idx.Search("replacement", 5, nil), 1)
	assert.Equal(t, 1, idx.Size())
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Acme Corp's revenue: $12.4M in Q2-2025!")
	assert.Equal(t, []string{"acme", "corp's", "revenue", "12", "4m", "in", "q2", "2025"}, tokens)

	assert.Empty(t, Tokenize("!!! ---"))
}

func TestSearch_TieBreakByPosition(t *testing.T) {
	idx := NewLexicalIndex()
	// 两个内容完全相同的片段，位置不同
	idx.Reindex("late", "doc-a", 5, "identical fragment text")
	idx.Reindex("early", "doc-a", 1, "identical fragment text")

	hits := idx.Search("identical fragment", 5, nil)
	require.Len(t, hits, 2)
	assert.Equal(t, "early", hits[0].FragmentID, "同分时位置小的在前")
	assert.Equal(t, "late", hits[1].FragmentID)
}
