package remote

import (
	"context"
	"encoding/json"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
)

// Ports for the remote data store. The sync core only ever replays upserts;
// select/delete belong to the surrounding application code.
type (
	// Upserter performs an insert-or-replace keyed by the record's id into
	// the named remote collection. Replaying the same payload twice must be
	// harmless; that idempotency is what makes at-least-once delivery safe.
	Upserter interface {
		Upsert(ctx context.Context, table core.Table, payload json.RawMessage) error
	}

	// HealthChecker reports whether the remote service is reachable. Used by
	// the connectivity watcher.
	HealthChecker interface {
		Healthy(ctx context.Context) bool
	}
)
