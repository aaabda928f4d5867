package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
)

// 确保 EntityRepositoryImpl 实现了 domainCorpus.EntityRepository 接口
var _ domainCorpus.EntityRepository = (*EntityRepositoryImpl)(nil)

// EntityRepositoryImpl 实体缓存仓库实现
type EntityRepositoryImpl struct {
	db *sql.DB
}

// NewEntityRepository 创建实体缓存仓库实例
func NewEntityRepository(db *sql.DB) domainCorpus.EntityRepository {
	return &EntityRepositoryImpl{db: db}
}

// SaveMentions 保存一次提取的全部实体提及
func (r *EntityRepositoryImpl) SaveMentions(documentID, promptHash string, mentions []*domainCorpus.EntityMention) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 替换同键旧值
	if _, err := tx.Exec(
		`DELETE FROM entity_mentions WHERE document_id = ? AND prompt_hash = ?`,
		documentID, promptHash,
	); err != nil {
		return fmt.Errorf("failed to clear old mentions: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO entity_extractions (document_id, prompt_hash, extracted_at) VALUES (?, ?, ?)`,
		documentID, promptHash, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to record extraction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entity_mentions (document_id, prompt_hash, type, value, value_lower, source_fragment_id)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range mentions {
		if _, err := stmt.Exec(
			documentID, promptHash, string(m.Type), m.Value,
			strings.ToLower(strings.TrimSpace(m.Value)), m.SourceFragmentID,
		); err != nil {
			return fmt.Errorf("failed to save mention: %w", err)
		}
	}

	return tx.Commit()
}

// GetMentions 按缓存键获取实体提及
// 第二个返回值表示缓存是否命中（命中但零实体也算命中）
func (r *EntityRepositoryImpl) GetMentions(documentID, promptHash string) ([]*domainCorpus.EntityMention, bool, error) {
	row := r.db.QueryRow(
		`SELECT COUNT(*) FROM entity_extractions WHERE document_id = ? AND prompt_hash = ?`,
		documentID, promptHash)
	var count int
	if err := row.Scan(&count); err != nil {
		return nil, false, err
	}
	if count == 0 {
		return nil, false, nil
	}

	rows, err := r.db.Query(`
		SELECT document_id, type, value, COALESCE(source_fragment_id, '')
		FROM entity_mentions
		WHERE document_id = ? AND prompt_hash = ?
		ORDER BY id ASC`,
		documentID, promptHash)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var mentions []*domainCorpus.EntityMention
	for rows.Next() {
		var m domainCorpus.EntityMention
		var typ string
		if err := rows.Scan(&m.DocumentID, &typ, &m.Value, &m.SourceFragmentID); err != nil {
			return nil, false, err
		}
		m.Type = domainCorpus.ParseEntityType(typ)
		mentions = append(mentions, &m)
	}
	return mentions, true, rows.Err()
}

// FindDocumentsByValues 查找实体值命中的文档 ID 集合
// 大小写不敏感，多个值之间 OR 语义
func (r *EntityRepositoryImpl) FindDocumentsByValues(values []string) (map[string]struct{}, error) {
	docs := make(map[string]struct{})
	if len(values) == 0 {
		return docs, nil
	}

	placeholders := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}
	if len(args) == 0 {
		return docs, nil
	}

	query := fmt.Sprintf(
		`SELECT DISTINCT document_id FROM entity_mentions WHERE value_lower IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		docs[id] = struct{}{}
	}
	return docs, rows.Err()
}

// DeleteByDocument 删除文档的全部缓存实体
func (r *EntityRepositoryImpl) DeleteByDocument(documentID string) error {
	if _, err := r.db.Exec(`DELETE FROM entity_mentions WHERE document_id = ?`, documentID); err != nil {
		return err
	}
	_, err := r.db.Exec(`DELETE FROM entity_extractions WHERE document_id = ?`, documentID)
	return err
}
