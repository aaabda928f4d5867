package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
)

// fakeGenerator 脚本化文本理解能力
type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (g *fakeGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

// memEntityRepo 内存实体缓存
type memEntityRepo struct {
	store map[string][]*domainCorpus.EntityMention
}

func newMemEntityRepo() *memEntityRepo {
	return &memEntityRepo{store: make(map[string][]*domainCorpus.EntityMention)}
}

func (r *memEntityRepo) key(documentID, promptHash string) string {
	return documentID + "/" + promptHash
}

func (r *memEntityRepo) SaveMentions(documentID, promptHash string, mentions []*domainCorpus.EntityMention) error {
	r.store[r.key(documentID, promptHash)] = mentions
	return nil
}

func (r *memEntityRepo) GetMentions(documentID, promptHash string) ([]*domainCorpus.EntityMention, bool, error) {
	m, ok := r.store[r.key(documentID, promptHash)]
	return m, ok, nil
}

func (r *memEntityRepo) FindDocumentsByValues(values []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (r *memEntityRepo) DeleteByDocument(documentID string) error {
	for k := range r.store {
		delete(r.store, k)
	}
	return nil
}

// memDocRepo 只实现片段列表的文档仓库桩
type memDocRepo struct {
	fragments map[string][]*domainCorpus.Fragment
}

func (r *memDocRepo) SaveDocument(doc *domainCorpus.Document, fragments []*domainCorpus.Fragment) error {
	return nil
}
func (r *memDocRepo) GetDocument(documentID string) (*domainCorpus.Document, error) { return nil, nil }
func (r *memDocRepo) ListDocuments() ([]*domainCorpus.DocumentSummary, error)      { return nil, nil }
func (r *memDocRepo) DeleteDocument(documentID string) (bool, error)               { return false, nil }
func (r *memDocRepo) ListAllFragments() ([]*domainCorpus.Fragment, error)          { return nil, nil }
func (r *memDocRepo) ListFragments(documentID string) ([]*domainCorpus.Fragment, error) {
	return r.fragments[documentID], nil
}

func newTestExtractor(gen *fakeGenerator) (*Extractor, *memEntityRepo) {
	entityRepo := newMemEntityRepo()
	docRepo := &memDocRepo{fragments: map[string][]*domainCorpus.Fragment{
		"doc1": {
			{ID: "f1", DocumentID: "doc1", Text: "Acme Corp announced a new contract.", Position: 0},
			{ID: "f2", DocumentID: "doc1", Text: "The deal is worth $2 million and was signed in Berlin.", Position: 1},
		},
	}}
	return NewExtractor(gen, entityRepo, docRepo, nil), entityRepo
}

func TestExtractor_ParsesMentions(t *testing.T) {
	gen := &fakeGenerator{response: `[
		{"type": "organization", "value": "Acme Corp"},
		{"type": "money", "value": "$2 million"},
		{"type": "location", "value": "Berlin"}
	]`}
	extractor, _ := newTestExtractor(gen)

	mentions, err := extractor.Extract(context.Background(), "doc1", "irrelevant", "")
	require.NoError(t, err, "提取不应失败")
	require.Len(t, mentions, 3, "应提取到 3 个实体")

	assert.Equal(t, domainCorpus.EntityOrganization, mentions[0].Type, "第一个实体应为组织")
	assert.Equal(t, "Acme Corp", mentions[0].Value)
	assert.Equal(t, "f1", mentions[0].SourceFragmentID, "来源片段应定位到包含实体值的片段")
	assert.Equal(t, "f2", mentions[1].SourceFragmentID, "金额实体应定位到第二个片段")
	assert.Equal(t, "doc1", mentions[2].DocumentID)
}

func TestExtractor_FencedJSONAndUnknownType(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n[{\"type\": \"weapon\", \"value\": \"Acme Corp\"}]\n```"}
	extractor, _ := newTestExtractor(gen)

	mentions, err := extractor.Extract(context.Background(), "doc1", "text", "")
	require.NoError(t, err, "围栏包裹的 JSON 应被解析")
	require.Len(t, mentions, 1)
	assert.Equal(t, domainCorpus.EntityOther, mentions[0].Type, "未知类型应归为 other")
}

func TestExtractor_CacheHitSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{response: `[{"type": "person", "value": "Alice"}]`}
	extractor, _ := newTestExtractor(gen)

	first, err := extractor.Extract(context.Background(), "doc1", "text", "custom prompt")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, gen.calls, "首次提取应调用一次外部能力")

	second, err := extractor.Extract(context.Background(), "doc1", "text", "custom prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls, "缓存命中不应再次调用外部能力")
	assert.Equal(t, first[0].Value, second[0].Value, "缓存结果应与首次一致")
}

func TestExtractor_DifferentPromptMissesCache(t *testing.T) {
	gen := &fakeGenerator{response: `[]`}
	extractor, _ := newTestExtractor(gen)

	_, err := extractor.Extract(context.Background(), "doc1", "text", "prompt A")
	require.NoError(t, err)
	_, err = extractor.Extract(context.Background(), "doc1", "text", "prompt B")
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls, "不同指令应各自触发一次提取")
	assert.NotEqual(t, HashPrompt("prompt A"), HashPrompt("prompt B"), "不同指令的缓存键应不同")
}

func TestExtractor_EmptyResultIsCached(t *testing.T) {
	gen := &fakeGenerator{response: `[]`}
	extractor, _ := newTestExtractor(gen)

	mentions, err := extractor.Extract(context.Background(), "doc1", "text", "")
	require.NoError(t, err)
	assert.Empty(t, mentions, "无实体时返回空序列")

	_, err = extractor.Extract(context.Background(), "doc1", "text", "")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls, "零实体的结果同样应命中缓存")
}

func TestExtractor_GeneratorFailureMapsToExtractionFailed(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("connection refused")}
	extractor, entityRepo := newTestExtractor(gen)

	_, err := extractor.Extract(context.Background(), "doc1", "text", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainCorpus.ErrExtractionFailed), "外部能力失败应映射为 ErrExtractionFailed")
	assert.Empty(t, entityRepo.store, "失败的提取不应写入缓存")
}

func TestExtractor_UnparsableResultMapsToExtractionFailed(t *testing.T) {
	gen := &fakeGenerator{response: "I could not find any entities, sorry!"}
	extractor, entityRepo := newTestExtractor(gen)

	_, err := extractor.Extract(context.Background(), "doc1", "text", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainCorpus.ErrExtractionFailed), "无法解析的结果应映射为 ErrExtractionFailed")
	assert.Empty(t, entityRepo.store, "失败的提取不应写入缓存")
}
