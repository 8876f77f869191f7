package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps conversation windows in a SQLite database so they survive
// restarts of a single-process deployment.
type SQLiteStore struct {
	db     *sql.DB
	window int
}

func NewSQLiteStore(dataSourceName string, window int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, window: normalizeWindow(window)}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS turns (
        id TEXT PRIMARY KEY, -- UUID
        address TEXT NOT NULL,
        seq INTEGER NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        text TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (address, seq)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) WindowSize() int { return s.window }

// Append inserts turns and trims the address's history in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, addr string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	var last int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM turns WHERE address = ?", addr).Scan(&last); err != nil {
		return fmt.Errorf("failed to read last turn: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO turns (id, address, seq, role, text, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare turn insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, t := range turns {
		last++
		row := turnRow{ID: uuid.NewString(), Address: addr, Seq: last, Role: t.Role, Text: t.Text, CreatedAt: now}
		if _, err := stmt.ExecContext(ctx, row.ID, row.Address, row.Seq, string(row.Role), row.Text, row.CreatedAt); err != nil {
			return fmt.Errorf("failed to execute turn insert: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE address = ? AND seq <= ?", addr, last-int64(s.window)); err != nil {
		return fmt.Errorf("failed to truncate history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Recent(ctx context.Context, addr string, n int) ([]Turn, error) {
	if n <= 0 {
		return []Turn{}, nil
	}
	query := `
        SELECT role, text FROM (
            SELECT seq, role, text FROM turns
            WHERE address = ?
            ORDER BY seq DESC
            LIMIT ?
        ) ORDER BY seq ASC
    `
	rows, err := s.db.QueryContext(ctx, query, addr, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&role, &t.Text); err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
