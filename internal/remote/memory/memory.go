// Package memory is an in-memory remote store used by tests and broker-less
// local runs. Upserts are keyed by the payload's id, mirroring the real
// remote's insert-or-replace semantics.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
)

var ErrInjected = errors.New("injected remote failure")

type Store struct {
	mu      sync.Mutex
	tables  map[core.Table]map[string]json.RawMessage
	upserts int

	// failIDs makes Upsert fail for specific record ids, simulating remote
	// rejection of individual records.
	failIDs map[string]bool

	// gate, when set, blocks every Upsert until the channel is closed or
	// receives. Lets tests hold a sync pass open.
	gate chan struct{}
}

func New() *Store {
	return &Store{
		tables:  make(map[core.Table]map[string]json.RawMessage),
		failIDs: make(map[string]bool),
	}
}

// FailID makes upserts of the given record id fail until UnfailID.
func (s *Store) FailID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failIDs[id] = true
}

func (s *Store) UnfailID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failIDs, id)
}

// Gate installs a blocking gate on Upsert and returns it. Send or close to
// release one or all blocked calls.
func (s *Store) Gate() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	return s.gate
}

func (s *Store) Upsert(ctx context.Context, table core.Table, payload json.RawMessage) error {
	if !table.IsValid() {
		return fmt.Errorf("%w: %s", core.ErrUnknownTable, table)
	}

	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if probe.ID == "" {
		return core.ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failIDs[probe.ID] {
		return fmt.Errorf("%w: %s", ErrInjected, probe.ID)
	}

	if s.tables[table] == nil {
		s.tables[table] = make(map[string]json.RawMessage)
	}
	s.tables[table][probe.ID] = append(json.RawMessage(nil), payload...)
	s.upserts++
	return nil
}

func (s *Store) Healthy(context.Context) bool { return true }

// Get returns the stored payload for a record, if present.
func (s *Store) Get(table core.Table, id string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.tables[table][id]
	return payload, ok
}

// Count returns the number of distinct records in table.
func (s *Store) Count(table core.Table) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

// Upserts returns the total number of successful upsert calls.
func (s *Store) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}
