package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/log"

	_ "modernc.org/sqlite"
)

// Store is the local durable cache: one SQLite database with one collection
// per domain table. Every row carries the clean domain payload plus cache
// metadata. The *sql.DB handle is the single shared physical connection pool;
// each operation runs in its own transaction scope.
//
// There is no fallback persistence layer: if the database cannot be opened,
// Open fails and callers must propagate that failure.
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Row is a persisted cached record as the store sees it. CachedAt is epoch
// milliseconds of the last local write.
type Row struct {
	ID          string
	UserID      string
	Payload     []byte
	CachedAt    int64
	PendingSync bool
}

// Open opens (creating on first run) the local database at dbPath and brings
// the schema up to date. Safe to call from multiple call sites; the returned
// handle is shared.
func Open(dbPath string) (*Store, error) {
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

	return &Store{db: db, log: log.Default(log.ComponentStore)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// tableName validates the table against the closed set before it is ever
// interpolated into SQL.
func tableName(t core.Table) (string, error) {
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownTable, t)
	}
	return string(t), nil
}

// Upsert inserts or fully replaces the row with the same id. No field-level
// merge happens: the incoming payload wins.
func (s *Store) Upsert(ctx context.Context, table core.Table, row Row) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, payload, cached_at, pending_sync)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			pending_sync = excluded.pending_sync`, name)

	if _, err := s.db.ExecContext(ctx, query, row.ID, row.UserID, row.Payload, row.CachedAt, boolToInt(row.PendingSync)); err != nil {
		return fmt.Errorf("upsert row %s/%s: %w", name, row.ID, err)
	}
	return nil
}

// UpsertBatch writes all rows inside a single transaction: either the whole
// batch lands or none of it does.
func (s *Store) UpsertBatch(ctx context.Context, table core.Table, rows []Row) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch upsert: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, payload, cached_at, pending_sync)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			pending_sync = excluded.pending_sync`, name)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.UserID, row.Payload, row.CachedAt, boolToInt(row.PendingSync)); err != nil {
			return fmt.Errorf("upsert row %s/%s: %w", name, row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch upsert: %w", err)
	}
	return nil
}

// Get returns the row with the given id regardless of its pending status, or
// core.ErrNotFound.
func (s *Store) Get(ctx context.Context, table core.Table, id string) (Row, error) {
	name, err := tableName(table)
	if err != nil {
		return Row{}, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, payload, cached_at, pending_sync FROM %s WHERE id = ?`, name)

	var row Row
	var pending int
	err = s.db.QueryRowContext(ctx, query, id).Scan(&row.ID, &row.UserID, &row.Payload, &row.CachedAt, &pending)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, core.ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("get row %s/%s: %w", name, id, err)
	}
	row.PendingSync = pending != 0
	return row, nil
}

// ListByUser returns all confirmed rows owned by userID. Rows still pending
// sync are excluded by construction.
func (s *Store) ListByUser(ctx context.Context, table core.Table, userID string) ([]Row, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, payload, cached_at, pending_sync
		FROM %s
		WHERE user_id = ? AND pending_sync = 0
		ORDER BY id`, name)

	return s.queryRows(ctx, name, query, userID)
}

// ListPending returns every row flagged pending, ordered by local capture
// time so replay order is deterministic.
func (s *Store) ListPending(ctx context.Context, table core.Table) ([]Row, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, payload, cached_at, pending_sync
		FROM %s
		WHERE pending_sync = 1
		ORDER BY cached_at, id`, name)

	return s.queryRows(ctx, name, query)
}

// ClearPending flips pending_sync off for the given id, leaving every other
// field untouched. A missing row is a no-op, not an error: the record may
// have been deleted locally in the interim.
func (s *Store) ClearPending(ctx context.Context, table core.Table, id string) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET pending_sync = 0 WHERE id = ?`, name)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("clear pending flag %s/%s: %w", name, id, err)
	}
	return nil
}

// Delete removes the row entirely. No tombstone is kept.
func (s *Store) Delete(ctx context.Context, table core.Table, id string) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, name)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete row %s/%s: %w", name, id, err)
	}
	return nil
}

// ClearTable empties a single collection.
func (s *Store) ClearTable(ctx context.Context, table core.Table) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, name)); err != nil {
		return fmt.Errorf("clear table %s: %w", name, err)
	}
	return nil
}

// Clear empties every known table inside one transaction. Used for the full
// logout/reset path.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range core.Tables() {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("clear table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}

	s.log.InfoContext(ctx, "Local cache cleared")
	return nil
}

// CountPending returns the number of rows still flagged pending in table.
func (s *Store) CountPending(ctx context.Context, table core.Table) (int64, error) {
	name, err := tableName(table)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE pending_sync = 1`, name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending %s: %w", name, err)
	}
	return count, nil
}

func (s *Store) queryRows(ctx context.Context, name, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var pending int
		if err := rows.Scan(&row.ID, &row.UserID, &row.Payload, &row.CachedAt, &pending); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", name, err)
		}
		row.PendingSync = pending != 0
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", name, err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
