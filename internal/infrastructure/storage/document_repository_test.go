package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB 创建临时测试数据库
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ragpro_test_*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)

	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	require.NoError(t, err)

	require.NoError(t, initSchema(db))

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

// makeDocument 构造测试文档及片段
func makeDocument(id, text string, fragTexts ...string) (*domainCorpus.Document, []*domainCorpus.Fragment) {
	doc := &domainCorpus.Document{
		ID:        id,
		Text:      text,
		CreatedAt: time.Now(),
	}
	var fragments []*domainCorpus.Fragment
	for i, ft := range fragTexts {
		fragments = append(fragments, &domainCorpus.Fragment{
			ID:         id + "-f" + string(rune('0'+i)),
			DocumentID: id,
			Text:       ft,
			Position:   i,
		})
	}
	return doc, fragments
}

func TestDocumentRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	doc, frags := makeDocument("doc-1", "first paragraph\n\nsecond paragraph", "first paragraph", "second paragraph")
	require.NoError(t, repo.SaveDocument(doc, frags))

	found, err := repo.GetDocument("doc-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, doc.Text, found.Text)

	listed, err := repo.ListFragments("doc-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 0, listed[0].Position)
	assert.Equal(t, "first paragraph", listed[0].Text)
}

func TestDocumentRepository_ReingestReplacesFragments(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	doc, frags := makeDocument("doc-1", "old text", "old text")
	require.NoError(t, repo.SaveDocument(doc, frags))

	// 重新摄入同一 ID，片段应被替换而非追加
	doc2, frags2 := makeDocument("doc-1", "new alpha\n\nnew beta", "new alpha", "new beta")
	require.NoError(t, repo.SaveDocument(doc2, frags2))

	listed, err := repo.ListFragments("doc-1")
	require.NoError(t, err)
	require.Len(t, listed, 2, "旧片段不应残留")
	assert.Equal(t, "new alpha", listed[0].Text)
	assert.Equal(t, "new beta", listed[1].Text)
}

func TestDocumentRepository_ReingestInvalidatesEntities(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	docRepo := NewDocumentRepository(db)
	entRepo := NewEntityRepository(db)

	doc, frags := makeDocument("doc-1", "Acme Corp in Berlin", "Acme Corp in Berlin")
	require.NoError(t, docRepo.SaveDocument(doc, frags))
	require.NoError(t, entRepo.SaveMentions("doc-1", "hash-a", []*domainCorpus.EntityMention{
		{DocumentID: "doc-1", Type: domainCorpus.EntityOrganization, Value: "Acme Corp"},
	}))

	_, hit, err := entRepo.GetMentions("doc-1", "hash-a")
	require.NoError(t, err)
	assert.True(t, hit)

	// 替换文档后缓存失效
	doc2, frags2 := makeDocument("doc-1", "totally different", "totally different")
	require.NoError(t, docRepo.SaveDocument(doc2, frags2))

	_, hit, err = entRepo.GetMentions("doc-1", "hash-a")
	require.NoError(t, err)
	assert.False(t, hit, "重摄入后实体缓存应失效")
}

func TestDocumentRepository_DeleteIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	doc, frags := makeDocument("doc-1", "text", "text")
	require.NoError(t, repo.SaveDocument(doc, frags))

	deleted, err := repo.DeleteDocument("doc-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	// 片段级联删除
	listed, err := repo.ListFragments("doc-1")
	require.NoError(t, err)
	assert.Empty(t, listed)

	// 删除未知 ID 是 no-op
	deleted, err = repo.DeleteDocument("doc-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteDocument("never-existed")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDocumentRepository_DeleteCascadesOnPooledConnections(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	docRepo := NewDocumentRepository(db)
	entRepo := NewEntityRepository(db)

	doc, frags := makeDocument("doc-1", "Acme Corp in Berlin", "Acme Corp in Berlin")
	require.NoError(t, docRepo.SaveDocument(doc, frags))
	require.NoError(t, entRepo.SaveMentions("doc-1", "h", []*domainCorpus.EntityMention{
		{DocumentID: "doc-1", Type: domainCorpus.EntityOrganization, Value: "Acme Corp"},
	}))

	// 占住首个连接，迫使删除走连接池里的另一条连接
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	deleted, err := docRepo.DeleteDocument("doc-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	listed, err := docRepo.ListFragments("doc-1")
	require.NoError(t, err)
	assert.Empty(t, listed, "删除后不应残留片段")

	all, err := docRepo.ListAllFragments()
	require.NoError(t, err)
	assert.Empty(t, all, "索引重建的数据源不应包含已删除文档的片段")

	docs, err := entRepo.FindDocumentsByValues([]string{"acme corp"})
	require.NoError(t, err)
	assert.Empty(t, docs, "删除后实体值不应再命中该文档")
}

func TestDocumentRepository_ListDocuments(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	doc1, frags1 := makeDocument("doc-1", "alpha text", "alpha text")
	doc2, frags2 := makeDocument("doc-2", "beta one\n\nbeta two", "beta one", "beta two")
	require.NoError(t, repo.SaveDocument(doc1, frags1))
	require.NoError(t, repo.SaveDocument(doc2, frags2))

	summaries, err := repo.ListDocuments()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := map[string]int{}
	for _, s := range summaries {
		byID[s.ID] = s.FragmentCount
	}
	assert.Equal(t, 1, byID["doc-1"])
	assert.Equal(t, 2, byID["doc-2"])
}

func TestEntityRepository_FindDocumentsByValues(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	docRepo := NewDocumentRepository(db)
	entRepo := NewEntityRepository(db)

	doc1, frags1 := makeDocument("doc-1", "Acme Corp signed in Berlin", "Acme Corp signed in Berlin")
	doc2, frags2 := makeDocument("doc-2", "weather report", "weather report")
	require.NoError(t, docRepo.SaveDocument(doc1, frags1))
	require.NoError(t, docRepo.SaveDocument(doc2, frags2))

	require.NoError(t, entRepo.SaveMentions("doc-1", "h", []*domainCorpus.EntityMention{
		{DocumentID: "doc-1", Type: domainCorpus.EntityOrganization, Value: "Acme Corp"},
		{DocumentID: "doc-1", Type: domainCorpus.EntityLocation, Value: "Berlin"},
	}))

	// 大小写不敏感匹配
	docs, err := entRepo.FindDocumentsByValues([]string{"BERLIN"})
	require.NoError(t, err)
	assert.Contains(t, docs, "doc-1")
	assert.NotContains(t, docs, "doc-2")

	// 多个值 OR 语义
	docs, err = entRepo.FindDocumentsByValues([]string{"nonexistent", "acme corp"})
	require.NoError(t, err)
	assert.Contains(t, docs, "doc-1")

	// 无匹配返回空集合而非错误
	docs, err = entRepo.FindDocumentsByValues([]string{"nothing"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestTraceRepository_AppendAndRecent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTraceRepository(db)

	require.NoError(t, repo.Append("ingest", map[string]any{"document_id": "doc-1", "fragments": 3}))
	require.NoError(t, repo.Append("query", map[string]any{"question": "what happened"}))

	traces, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, traces, 2)
	// 按时间降序，最新的在前
	assert.Equal(t, "query", string(traces[0].Type))
	assert.Equal(t, "what happened", traces[0].Payload["question"])
}
