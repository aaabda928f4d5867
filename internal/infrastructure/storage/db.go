package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragpro/backend/internal/infrastructure/config"
	_ "modernc.org/sqlite"
)

// OpenDB 打开数据库连接并初始化表结构
func OpenDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := cfg.DBPath()

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys 是连接级 PRAGMA，必须写进 DSN 才能覆盖连接池的每个连接
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 启用 WAL 模式（数据库级，持久化）
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// initSchema 初始化表结构
func initSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fragments (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			text TEXT NOT NULL,
			position INTEGER NOT NULL,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fragments_document ON fragments(document_id);`,
		`CREATE TABLE IF NOT EXISTS entity_extractions (
			document_id TEXT NOT NULL,
			prompt_hash TEXT NOT NULL,
			extracted_at INTEGER NOT NULL,
			PRIMARY KEY (document_id, prompt_hash),
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS entity_mentions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL,
			prompt_hash TEXT NOT NULL,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			value_lower TEXT NOT NULL,
			source_fragment_id TEXT,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entity_mentions_key ON entity_mentions(document_id, prompt_hash);`,
		`CREATE INDEX IF NOT EXISTS idx_entity_mentions_value ON entity_mentions(value_lower);`,
		`CREATE TABLE IF NOT EXISTS traces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_traces_created ON traces(created_at);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}
