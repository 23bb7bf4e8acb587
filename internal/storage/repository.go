// Package storage holds the repositories that back the listings.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vetrina/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Repository is the create/update/delete contract shared by every store.
// Create rejects an id that already exists; Update and Delete require it.
// List returns records in insertion order.
type Repository[T core.Record] interface {
	Create(ctx context.Context, rec T) error
	Update(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]T, error)
}

// Pinger is implemented by stores backed by a connection that can go away.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DB is a SQLite database shared by the per-kind stores.
type DB struct {
	db *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// SQLiteStore keeps records of one kind as JSON payloads in the records
// table. The autoincrement sequence preserves insertion order.
type SQLiteStore[T core.Record] struct {
	db   *DB
	kind core.Kind
}

func NewSQLiteStore[T core.Record](db *DB, kind core.Kind) *SQLiteStore[T] {
	return &SQLiteStore[T]{db: db, kind: kind}
}

func (s *SQLiteStore[T]) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *SQLiteStore[T]) Create(ctx context.Context, rec T) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind, err)
	}

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE kind = ? AND id = ?`, string(s.kind), rec.Key()).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s/%s", ErrConflict, s.kind, rec.Key())
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check existing %s: %w", s.kind, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (kind, id, payload) VALUES (?, ?, ?)`,
		string(s.kind), rec.Key(), string(payload)); err != nil {
		return fmt.Errorf("insert %s: %w", s.kind, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite", "kind", s.kind, "id", rec.Key())
	return nil
}

func (s *SQLiteStore[T]) Update(ctx context.Context, rec T) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind, err)
	}
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE records SET payload = ?, updated_at = CURRENT_TIMESTAMP WHERE kind = ? AND id = ?`,
		string(payload), string(s.kind), rec.Key())
	if err != nil {
		return fmt.Errorf("update %s: %w", s.kind, err)
	}
	return s.expectOne(res, rec.Key())
}

func (s *SQLiteStore[T]) Delete(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx,
		`DELETE FROM records WHERE kind = ? AND id = ?`, string(s.kind), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	return s.expectOne(res, id)
}

func (s *SQLiteStore[T]) Get(ctx context.Context, id string) (T, error) {
	var (
		zero    T
		payload string
	)
	err := s.db.db.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE kind = ? AND id = ?`, string(s.kind), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%w: %s/%s", ErrNotFound, s.kind, id)
	}
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", s.kind, err)
	}
	return s.decode(payload)
}

func (s *SQLiteStore[T]) List(ctx context.Context) ([]T, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE kind = ? ORDER BY seq`, string(s.kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.kind, err)
		}
		rec, err := s.decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.kind, err)
	}
	return out, nil
}

func (s *SQLiteStore[T]) decode(payload string) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return rec, fmt.Errorf("decode %s: %w", s.kind, err)
	}
	return rec, nil
}

func (s *SQLiteStore[T]) expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, s.kind, id)
	}
	return nil
}
