package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTable_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  bool
	}{
		{"budgets", TableBudgets, true},
		{"categories", TableCategories, true},
		{"transactions", TableTransactions, true},
		{"goals", TableGoals, true},
		{"category allocations", TableCategoryAllocations, true},
		{"empty", Table(""), false},
		{"unknown", Table("expenses"), false},
		{"case sensitive", Table("Budgets"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.IsValid(); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.table, got, tt.want)
			}
		})
	}
}

func TestTables_FixedOrder(t *testing.T) {
	want := []Table{
		TableBudgets,
		TableCategories,
		TableTransactions,
		TableGoals,
		TableCategoryAllocations,
	}

	got := Tables()
	if len(got) != len(want) {
		t.Fatalf("expected %d tables, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("table %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestParseTable(t *testing.T) {
	if _, err := ParseTable("nonsense"); err != ErrUnknownTable {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}

	table, err := ParseTable("transactions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table != TableTransactions {
		t.Errorf("expected %s, got %s", TableTransactions, table)
	}
}

func TestCachedRecord_Decode(t *testing.T) {
	payload, err := json.Marshal(Transaction{
		ID:          "t1",
		UserID:      "u1",
		Description: "groceries",
		AmountCents: 4250,
		Type:        "expense",
		Date:        "2025-03-14",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := CachedRecord{
		Table:    TableTransactions,
		ID:       "t1",
		UserID:   "u1",
		Payload:  payload,
		CachedAt: time.Now(),
	}

	var tx Transaction
	if err := rec.Decode(&tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.Description != "groceries" || tx.AmountCents != 4250 {
		t.Errorf("unexpected decoded transaction: %+v", tx)
	}
}

func TestRecord_OwnerID(t *testing.T) {
	var r Record = CategoryAllocation{ID: "a1", BudgetID: "b1", CategoryID: "c1"}
	if r.OwnerID() != "" {
		t.Errorf("allocations are budget-scoped, expected empty owner, got %q", r.OwnerID())
	}

	r = Budget{ID: "b1", UserID: "u1"}
	if r.OwnerID() != "u1" {
		t.Errorf("expected owner u1, got %q", r.OwnerID())
	}
}
