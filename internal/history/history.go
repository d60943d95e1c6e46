// Package history records every successful probe in a local SQLite
// database so usage can be reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/tnunamak/usagemeter/internal/usage"
)

// Sample is one recorded probe result.
type Sample struct {
	ID        string       `json:"id"`
	Provider  string       `json:"provider"`
	FetchedAt time.Time    `json:"fetched_at"`
	Result    usage.Result `json:"result"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging history db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating history db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS samples (
	id         TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	result     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_samples_provider ON samples(provider, fetched_at);`
	_, err := db.Exec(ddl)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores res for provider and returns the new sample id. Ids are
// ULIDs, so they sort by fetch time.
func (s *Store) Append(ctx context.Context, provider string, res usage.Result, fetchedAt time.Time) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	id := ulid.MustNew(ulid.Timestamp(fetchedAt), ulid.DefaultEntropy()).String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO samples (id, provider, fetched_at, result) VALUES (?, ?, ?, ?)`,
		id, provider, fetchedAt.UnixMilli(), string(data))
	if err != nil {
		return "", fmt.Errorf("insert sample: %w", err)
	}
	return id, nil
}

// List returns the newest samples first. An empty provider lists all of
// them; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, provider string, limit int) ([]Sample, error) {
	query := `SELECT id, provider, fetched_at, result FROM samples`
	var args []any
	if provider != "" {
		query += ` WHERE provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY fetched_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			sm   Sample
			ms   int64
			blob string
		)
		if err := rows.Scan(&sm.ID, &sm.Provider, &ms, &blob); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &sm.Result); err != nil {
			return nil, fmt.Errorf("decode sample %s: %w", sm.ID, err)
		}
		sm.FetchedAt = time.UnixMilli(ms).UTC()
		out = append(out, sm)
	}
	return out, rows.Err()
}
