package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// AuditRecord is one tool invocation made through the bridge.
type AuditRecord struct {
	ID         string
	Server     string
	Tool       string
	Arguments  json.RawMessage
	IsError    bool
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}

// AuditLog persists tool invocations in sqlite.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (or creates) the sqlite audit database at path. An
// empty path opens a private in-memory database.
func OpenAuditLog(path string) (*AuditLog, error) {
	dsn := "file:" + path
	if path == "" {
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; an in-memory database also dies with its last connection.
	db.SetMaxOpenConns(1)

	a, err := NewAuditLog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewAuditLog wraps an existing database, creating the schema if needed.
func NewAuditLog(db *sql.DB) (*AuditLog, error) {
	if err := initAuditSchema(db); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	return &AuditLog{db: db}, nil
}

func initAuditSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_calls (
		id TEXT PRIMARY KEY,
		server TEXT NOT NULL,
		tool TEXT NOT NULL,
		arguments TEXT,
		is_error INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		duration_ms INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool);
	`
	_, err := db.Exec(schema)
	return err
}

// Record stores rec, assigning an ID and timestamp when missing.
func (a *AuditLog) Record(ctx context.Context, rec *AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	args := string(rec.Arguments)
	if args == "" {
		args = "{}"
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, server, tool, arguments, is_error, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Server, rec.Tool, args, rec.IsError, rec.Error, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tool call: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, server, tool, arguments, is_error, error, duration_ms, created_at
		FROM tool_calls
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool calls: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var args string
		if err := rows.Scan(&rec.ID, &rec.Server, &rec.Tool, &args, &rec.IsError, &rec.Error, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		rec.Arguments = json.RawMessage(args)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tool calls: %w", err)
	}

	return records, nil
}

func (a *AuditLog) Close() error {
	return a.db.Close()
}
