// Package syncer drains locally-pending mutations into the remote store,
// one table at a time, with at most one sync pass active at any moment.
package syncer

import (
	"context"
	"sync/atomic"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/cache"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/log"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/remote"
)

// EventPublisher is notified after each confirmed upsert. Optional: a nil
// publisher disables events without disabling sync.
type EventPublisher interface {
	PublishRecordSynced(ctx context.Context, table core.Table, id string) error
}

// Manager replays pending records as remote upserts and clears their pending
// flags as each one confirms. It holds no durable state of its own; the only
// mutable state is the in-flight guard.
type Manager struct {
	cache  *cache.Service
	remote remote.Upserter
	events EventPublisher
	log    *log.Logger

	// syncing is the single in-flight guard. Check-then-set is one atomic
	// step: two concurrent callers can never both observe idle.
	syncing atomic.Bool
}

func NewManager(cache *cache.Service, remote remote.Upserter, events EventPublisher) *Manager {
	return &Manager{
		cache:  cache,
		remote: remote,
		events: events,
		log:    log.Default(log.ComponentSyncer),
	}
}

// IsSyncing reports whether a sync pass is currently in flight.
func (m *Manager) IsSyncing() bool {
	return m.syncing.Load()
}

// SyncTable replays every pending record in table and returns the number of
// records confirmed. A call arriving while another sync pass is in flight is
// dropped: it returns (0, nil) immediately without queueing or blocking; the
// next externally-triggered sync picks up whatever is still pending.
//
// A single record's remote rejection does not abort the batch; the record
// stays pending and is retried on the next pass. A failure to even list
// pending records aborts the table and is returned.
func (m *Manager) SyncTable(ctx context.Context, table core.Table) (int, error) {
	if !m.syncing.CompareAndSwap(false, true) {
		m.log.DebugContext(ctx, "Sync already in progress, skipping", "table", table)
		return 0, nil
	}
	defer m.syncing.Store(false)

	return m.syncTable(ctx, table)
}

// SyncAll replays pending records for the fixed set of tables in order,
// summing confirmed counts. The guard is held for the entire pass, so the
// per-table drains are naturally serialized under a single acquisition.
func (m *Manager) SyncAll(ctx context.Context) (int, error) {
	if !m.syncing.CompareAndSwap(false, true) {
		m.log.DebugContext(ctx, "Sync already in progress, skipping full pass")
		return 0, nil
	}
	defer m.syncing.Store(false)

	total := 0
	for _, table := range core.Tables() {
		count, err := m.syncTable(ctx, table)
		total += count
		if err != nil {
			return total, err
		}
	}

	if total > 0 {
		m.log.InfoContext(ctx, "Full sync pass completed", "synced", total)
	}
	return total, nil
}

// syncTable assumes the caller holds the guard.
func (m *Manager) syncTable(ctx context.Context, table core.Table) (int, error) {
	pending, err := m.cache.ListPending(ctx, table)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	m.log.InfoContext(ctx, "Syncing pending records",
		"table", table,
		"count", len(pending))

	// Sequential replay bounds remote load and keeps ordering deterministic.
	synced := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		// The envelope's payload is already the clean domain record: no
		// cache metadata ever reaches the wire.
		if err := m.remote.Upsert(ctx, table, rec.Payload); err != nil {
			m.log.ErrorContext(ctx, "Failed to sync record, will retry on next pass",
				"table", table,
				"id", rec.ID,
				"error", err)
			continue
		}

		if err := m.cache.ClearPendingFlag(ctx, table, rec.ID); err != nil {
			// The upsert landed; replaying it next pass is harmless because
			// the remote upsert is keyed by id.
			m.log.ErrorContext(ctx, "Failed to clear pending flag after sync",
				"table", table,
				"id", rec.ID,
				"error", err)
			continue
		}
		synced++

		if m.events != nil {
			if err := m.events.PublishRecordSynced(ctx, table, rec.ID); err != nil {
				m.log.WarnContext(ctx, "Failed to publish record-synced event",
					"table", table,
					"id", rec.ID,
					"error", err)
			}
		}
	}

	m.log.InfoContext(ctx, "Table sync completed",
		"table", table,
		"synced", synced,
		"failed", len(pending)-synced)

	return synced, nil
}
