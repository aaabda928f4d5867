package storage

import (
	"database/sql"
	"fmt"
	"time"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
)

// 确保 DocumentRepositoryImpl 实现了 domainCorpus.DocumentRepository 接口
var _ domainCorpus.DocumentRepository = (*DocumentRepositoryImpl)(nil)

// DocumentRepositoryImpl 文档仓库实现
type DocumentRepositoryImpl struct {
	db *sql.DB
}

// NewDocumentRepository 创建文档仓库实例
func NewDocumentRepository(db *sql.DB) domainCorpus.DocumentRepository {
	return &DocumentRepositoryImpl{db: db}
}

// SaveDocument 保存文档及其全部片段
// 事务内先删除旧片段再写入新片段，保证重摄入是替换而非追加
func (r *DocumentRepositoryImpl) SaveDocument(doc *domainCorpus.Document, fragments []*domainCorpus.Fragment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM fragments WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to delete old fragments: %w", err)
	}
	// 文档被替换时，缓存的实体随之失效
	if _, err := tx.Exec(`DELETE FROM entity_mentions WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to invalidate entity mentions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entity_extractions WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to invalidate entity extractions: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO documents (id, text, created_at) VALUES (?, ?, ?)`,
		doc.ID, doc.Text, doc.CreatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO fragments (id, document_id, text, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, frag := range fragments {
		if _, err := stmt.Exec(frag.ID, frag.DocumentID, frag.Text, frag.Position); err != nil {
			return fmt.Errorf("failed to save fragment: %w", err)
		}
	}

	return tx.Commit()
}

// GetDocument 按 ID 获取文档
func (r *DocumentRepositoryImpl) GetDocument(documentID string) (*domainCorpus.Document, error) {
	row := r.db.QueryRow(`SELECT id, text, created_at FROM documents WHERE id = ?`, documentID)

	var doc domainCorpus.Document
	var createdAt int64
	if err := row.Scan(&doc.ID, &doc.Text, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	doc.CreatedAt = time.Unix(createdAt, 0)
	return &doc, nil
}

// ListDocuments 列出全部文档摘要
func (r *DocumentRepositoryImpl) ListDocuments() ([]*domainCorpus.DocumentSummary, error) {
	rows, err := r.db.Query(`
		SELECT d.id, d.text, d.created_at, COUNT(f.id)
		FROM documents d
		LEFT JOIN fragments f ON f.document_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at ASC, d.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domainCorpus.DocumentSummary
	for rows.Next() {
		var id, text string
		var createdAt int64
		var fragmentCount int
		if err := rows.Scan(&id, &text, &createdAt, &fragmentCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, &domainCorpus.DocumentSummary{
			ID:            id,
			TextPreview:   domainCorpus.Preview(text),
			TextLength:    len(text),
			FragmentCount: fragmentCount,
			CreatedAt:     time.Unix(createdAt, 0),
		})
	}
	return summaries, rows.Err()
}

// DeleteDocument 删除文档及其片段和缓存实体
// 事务内显式删除全部关联行，不依赖连接级的外键级联配置
func (r *DocumentRepositoryImpl) DeleteDocument(documentID string) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM fragments WHERE document_id = ?`, documentID); err != nil {
		return false, fmt.Errorf("failed to delete fragments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entity_mentions WHERE document_id = ?`, documentID); err != nil {
		return false, fmt.Errorf("failed to delete entity mentions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entity_extractions WHERE document_id = ?`, documentID); err != nil {
		return false, fmt.Errorf("failed to delete entity extractions: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListFragments 列出文档的全部片段
func (r *DocumentRepositoryImpl) ListFragments(documentID string) ([]*domainCorpus.Fragment, error) {
	rows, err := r.db.Query(
		`SELECT id, document_id, text, position FROM fragments WHERE document_id = ? ORDER BY position ASC`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragments(rows)
}

// ListAllFragments 列出库中全部片段
func (r *DocumentRepositoryImpl) ListAllFragments() ([]*domainCorpus.Fragment, error) {
	rows, err := r.db.Query(
		`SELECT id, document_id, text, position FROM fragments ORDER BY document_id ASC, position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragments(rows)
}

// scanFragments 扫描片段行
func scanFragments(rows *sql.Rows) ([]*domainCorpus.Fragment, error) {
	var fragments []*domainCorpus.Fragment
	for rows.Next() {
		var frag domainCorpus.Fragment
		if err := rows.Scan(&frag.ID, &frag.DocumentID, &frag.Text, &frag.Position); err != nil {
			return nil, err
		}
		fragments = append(fragments, &frag)
	}
	return fragments, rows.Err()
}
