// Package sqlitestore implements the durable-small tier on an embedded
// sqlite database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	_ "modernc.org/sqlite"
)

// Store keeps one msgpack record per key. Category and expiry are mirrored
// into columns so scoped clears and sweeps don't decode every blob.
type Store struct {
	db *sql.DB
}

var _ backend.Backend = (*Store)(nil)

func New(cfg *config.SQLiteTierCfg) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite tier: %w", err)
	}

	// every pooled connection gets its own :memory: database, so the
	// in-memory mode must stay on a single connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL keeps concurrent readers off the writer's back.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable sqlite wal: %w", err)
	}

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		record BLOB NOT NULL,
		size_bytes INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create expires index: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (*model.Entry, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM cache WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %q: %w", key, err)
	}

	e, err := model.DecodeRecord(blob)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errs.ErrCorruptEntry, err)
	}
	return e, true, nil
}

func (s *Store) Set(ctx context.Context, e *model.Entry) error {
	blob, err := e.EncodeRecord()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache (key, category, record, size_bytes, expires_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			category = excluded.category,
			record = excluded.record,
			size_bytes = excluded.size_bytes,
			expires_at = excluded.expires_at`,
		e.Key(), e.Category(), blob, e.SizeBytes(), e.ExpiresAt(),
	)
	if err != nil {
		return fmt.Errorf("sqlite set %q: %w", e.Key(), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *Store) Clear(ctx context.Context, category string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if category == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cache`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cache WHERE category = ?`, category)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite clear: %w", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

func (s *Store) Walk(ctx context.Context, fn backend.WalkFunc) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, record FROM cache`)
	if err != nil {
		return fmt.Errorf("sqlite walk: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key  string
			blob []byte
		)
		if err = rows.Scan(&key, &blob); err != nil {
			return fmt.Errorf("sqlite walk scan: %w", err)
		}
		e, decErr := model.DecodeRecord(blob)
		if decErr != nil {
			decErr = fmt.Errorf("%w: %v", errs.ErrCorruptEntry, decErr)
		}
		if !fn(key, e, decErr) {
			return nil
		}
	}
	return rows.Err()
}

func (s *Store) Usage(ctx context.Context) (bytes, items int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size_bytes), 0), COUNT(*) FROM cache`,
	).Scan(&bytes, &items)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite usage: %w", err)
	}
	return bytes, items, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
