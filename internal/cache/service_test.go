package cache

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s)
}

// Round-trip: a confirmed write comes back equal in every domain field, with
// the pending flag off.
func TestService_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := core.Transaction{
		ID:          "t1",
		UserID:      "u1",
		BudgetID:    "b1",
		Description: "groceries",
		AmountCents: 10000,
		Type:        "expense",
		Date:        "2025-03-14",
	}
	if err := svc.CacheOne(ctx, core.TableTransactions, in); err != nil {
		t.Fatalf("cache one: %v", err)
	}

	rec, err := svc.ReadOne(ctx, core.TableTransactions, "t1")
	if err != nil {
		t.Fatalf("read one: %v", err)
	}
	if rec.PendingSync {
		t.Error("confirmed write must not be pending")
	}
	if rec.CachedAt.IsZero() {
		t.Error("cachedAt must be stamped")
	}

	var out core.Transaction
	if err := rec.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Errorf("round-trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

// Pending exclusion: an offline write is invisible to the confirmed read
// path but visible by primary key.
func TestService_PendingExclusion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	confirmed := core.Transaction{ID: "t1", UserID: "u1", AmountCents: 100, Type: "expense", Date: "2025-01-01", Description: "lunch"}
	pending := core.Transaction{ID: "t2", UserID: "u1", AmountCents: 50, Type: "expense", Date: "2025-01-02", Description: "coffee"}

	if err := svc.CacheOne(ctx, core.TableTransactions, confirmed); err != nil {
		t.Fatalf("cache one: %v", err)
	}
	if err := svc.WritePending(ctx, core.TableTransactions, pending); err != nil {
		t.Fatalf("write pending: %v", err)
	}

	all, err := svc.ReadAllForUser(ctx, core.TableTransactions, "u1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 1 || all[0].ID != "t1" {
		t.Fatalf("expected only t1 in confirmed reads, got %+v", all)
	}

	rec, err := svc.ReadOne(ctx, core.TableTransactions, "t2")
	if err != nil {
		t.Fatalf("read one pending: %v", err)
	}
	if !rec.PendingSync {
		t.Error("primary-key read must surface the pending record with its flag set")
	}
}

func TestService_CacheMany(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	recs := []core.Record{
		core.Budget{ID: "b1", UserID: "u1", Name: "march", AmountCents: 200000, Month: 3, Year: 2025},
		core.Budget{ID: "b2", UserID: "u1", Name: "april", AmountCents: 180000, Month: 4, Year: 2025},
		core.Budget{ID: "b3", UserID: "u2", Name: "march", AmountCents: 90000, Month: 3, Year: 2025},
	}
	if err := svc.CacheMany(ctx, core.TableBudgets, recs); err != nil {
		t.Fatalf("cache many: %v", err)
	}

	all, err := svc.ReadAllForUser(ctx, core.TableBudgets, "u1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 budgets for u1, got %d", len(all))
	}
}

func TestService_MissingID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.CacheOne(ctx, core.TableGoals, core.Goal{UserID: "u1", Name: "no id"})
	if !errors.Is(err, core.ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}

	err = svc.CacheMany(ctx, core.TableGoals, []core.Record{core.Goal{ID: "g1", UserID: "u1"}, core.Goal{}})
	if !errors.Is(err, core.ErrMissingID) {
		t.Errorf("batch with a bad record must fail whole, got %v", err)
	}
	// The batch is transactional: nothing from it may have landed.
	if _, err := svc.ReadOne(ctx, core.TableGoals, "g1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected no partial batch write, got %v", err)
	}
}

func TestService_ClearPendingFlagKeepsFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	goal := core.Goal{ID: "g1", UserID: "u1", Name: "vacation", TargetCents: 500000}
	if err := svc.WritePending(ctx, core.TableGoals, goal); err != nil {
		t.Fatalf("write pending: %v", err)
	}

	if err := svc.ClearPendingFlag(ctx, core.TableGoals, "g1"); err != nil {
		t.Fatalf("clear pending flag: %v", err)
	}

	rec, err := svc.ReadOne(ctx, core.TableGoals, "g1")
	if err != nil {
		t.Fatalf("read one: %v", err)
	}
	if rec.PendingSync {
		t.Error("flag should be cleared")
	}
	var out core.Goal
	if err := rec.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != goal {
		t.Errorf("domain fields changed by flag clear: %+v", out)
	}

	// Record deleted in the interim: no-op.
	if err := svc.ClearPendingFlag(ctx, core.TableGoals, "gone"); err != nil {
		t.Errorf("expected no-op for missing record, got %v", err)
	}
}

// Clear-table: both read paths go empty regardless of prior contents.
func TestService_ClearTable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.CacheOne(ctx, core.TableCategories, core.Category{ID: "c1", UserID: "u1", Name: "food", Type: "expense"}); err != nil {
		t.Fatalf("cache one: %v", err)
	}
	if err := svc.WritePending(ctx, core.TableCategories, core.Category{ID: "c2", UserID: "u1", Name: "rent", Type: "expense"}); err != nil {
		t.Fatalf("write pending: %v", err)
	}

	if err := svc.ClearTable(ctx, core.TableCategories); err != nil {
		t.Fatalf("clear table: %v", err)
	}

	all, err := svc.ReadAllForUser(ctx, core.TableCategories, "u1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty confirmed reads, got %d", len(all))
	}

	pending, err := svc.ListPending(ctx, core.TableCategories)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty pending list, got %d", len(pending))
	}
}

// Scenario: cached transaction shows up once for its user, with the clean
// domain payload intact and pendingSync=false on the envelope.
func TestService_ReadAllScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tx := core.Transaction{ID: "t1", UserID: "u1", AmountCents: 100, Type: "expense", Date: "2025-02-02", Description: "metro"}
	if err := svc.CacheOne(ctx, core.TableTransactions, tx); err != nil {
		t.Fatalf("cache one: %v", err)
	}

	all, err := svc.ReadAllForUser(ctx, core.TableTransactions, "u1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
	if all[0].PendingSync {
		t.Error("confirmed record must report pendingSync=false")
	}

	// No cache metadata leaks into the domain payload.
	var raw map[string]any
	if err := json.Unmarshal(all[0].Payload, &raw); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, field := range []string{"cachedAt", "pendingSync"} {
		if _, ok := raw[field]; ok {
			t.Errorf("cache metadata %q leaked into domain payload", field)
		}
	}
	if raw["amountCents"] != float64(100) {
		t.Errorf("expected amountCents 100, got %v", raw["amountCents"])
	}
}
