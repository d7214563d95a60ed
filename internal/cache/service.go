// Package cache is the sole read/write gateway to the local durable store.
// It stamps every write with cache metadata (capture time, pending-sync flag)
// so callers never manipulate those fields directly, and it filters
// not-yet-confirmed records out of the confirmed read path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/log"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/store"
)

// Service wraps the local store. It holds no state of its own; the store
// exclusively owns the persisted bytes.
type Service struct {
	store *store.Store
	log   *log.Logger

	// now is swappable for tests
	now func() time.Time
}

func NewService(s *store.Store) *Service {
	return &Service{store: s, log: log.Default(log.ComponentCache), now: time.Now}
}

// CacheOne stamps the record as confirmed (pending_sync=false) and upserts it
// by id, fully replacing any existing record. Use this when the remote
// service is the source of truth for the record: a successful fetch or a
// successful online write.
func (s *Service) CacheOne(ctx context.Context, table core.Table, rec core.Record) error {
	row, err := s.toRow(rec, false)
	if err != nil {
		return err
	}
	return s.store.Upsert(ctx, table, row)
}

// CacheMany is CacheOne applied to a batch inside one local transaction,
// for priming the cache from a bulk remote fetch.
func (s *Service) CacheMany(ctx context.Context, table core.Table, recs []core.Record) error {
	rows := make([]store.Row, 0, len(recs))
	for _, rec := range recs {
		row, err := s.toRow(rec, false)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return s.store.UpsertBatch(ctx, table, rows)
}

// WritePending stamps the record as pending (pending_sync=true) and upserts
// it by id. This is the offline mutation path: a record written here is
// guaranteed to be picked up by the next sync pass.
func (s *Service) WritePending(ctx context.Context, table core.Table, rec core.Record) error {
	row, err := s.toRow(rec, true)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, table, row); err != nil {
		return err
	}

	s.log.DebugContext(ctx, "Record queued for sync",
		"table", table,
		"id", rec.RecordID())
	return nil
}

// ReadAllForUser returns every confirmed record in table owned by userID.
// Records still pending sync are excluded by construction, so callers never
// see an unconfirmed write as if it were confirmed.
func (s *Service) ReadAllForUser(ctx context.Context, table core.Table, userID string) ([]core.CachedRecord, error) {
	rows, err := s.store.ListByUser(ctx, table, userID)
	if err != nil {
		return nil, err
	}
	return toRecords(table, rows), nil
}

// ReadOne returns the record by primary key regardless of pending status:
// detail views must show a user their own not-yet-synced edit. Returns
// core.ErrNotFound when the record does not exist.
func (s *Service) ReadOne(ctx context.Context, table core.Table, id string) (core.CachedRecord, error) {
	row, err := s.store.Get(ctx, table, id)
	if err != nil {
		return core.CachedRecord{}, err
	}
	return toRecord(table, row), nil
}

// ListPending returns every record in table still flagged pending, in local
// capture order. Used exclusively by the sync manager.
func (s *Service) ListPending(ctx context.Context, table core.Table) ([]core.CachedRecord, error) {
	rows, err := s.store.ListPending(ctx, table)
	if err != nil {
		return nil, err
	}
	return toRecords(table, rows), nil
}

// ClearPendingFlag marks the record as confirmed without altering any other
// field. A record deleted locally in the interim is a no-op, not an error.
func (s *Service) ClearPendingFlag(ctx context.Context, table core.Table, id string) error {
	return s.store.ClearPending(ctx, table, id)
}

// DeleteOne removes the record entirely. No tombstone is kept; see the
// offline-delete gap in DESIGN.md.
func (s *Service) DeleteOne(ctx context.Context, table core.Table, id string) error {
	return s.store.Delete(ctx, table, id)
}

// ClearTable empties a single collection.
func (s *Service) ClearTable(ctx context.Context, table core.Table) error {
	return s.store.ClearTable(ctx, table)
}

func (s *Service) toRow(rec core.Record, pending bool) (store.Row, error) {
	id := rec.RecordID()
	if id == "" {
		return store.Row{}, core.ErrMissingID
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return store.Row{}, fmt.Errorf("marshal record %s: %w", id, err)
	}

	return store.Row{
		ID:          id,
		UserID:      rec.OwnerID(),
		Payload:     payload,
		CachedAt:    s.now().UnixMilli(),
		PendingSync: pending,
	}, nil
}

func toRecord(table core.Table, row store.Row) core.CachedRecord {
	return core.CachedRecord{
		Table:       table,
		ID:          row.ID,
		UserID:      row.UserID,
		Payload:     json.RawMessage(row.Payload),
		CachedAt:    time.UnixMilli(row.CachedAt),
		PendingSync: row.PendingSync,
	}
}

func toRecords(table core.Table, rows []store.Row) []core.CachedRecord {
	records := make([]core.CachedRecord, len(rows))
	for i, row := range rows {
		records[i] = toRecord(table, row)
	}
	return records
}
