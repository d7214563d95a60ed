package core

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrMissingID = errors.New("record id is required")
	ErrNotFound  = errors.New("record not found")
)

// Record is the minimal contract every cacheable domain entity satisfies.
// The cache core is agnostic to record shape beyond these two accessors.
type Record interface {
	// RecordID returns the primary key, unique within its table.
	RecordID() string
	// OwnerID returns the owning user's id, or "" for records that are
	// scoped through their parent instead (category allocations).
	OwnerID() string
}

// CachedRecord is the envelope the local store persists: the clean domain
// payload plus cache-only metadata. Keeping the metadata outside the payload
// means a sync replay ships exactly what the application wrote, with no
// stripping step to get wrong.
type CachedRecord struct {
	Table       Table
	ID          string
	UserID      string
	Payload     json.RawMessage
	CachedAt    time.Time
	PendingSync bool
}

// Decode unmarshals the domain payload into v.
func (r CachedRecord) Decode(v any) error {
	return json.Unmarshal(r.Payload, v)
}

type (
	// Budget is a per-user monthly spending envelope.
	Budget struct {
		ID          string `json:"id"`
		UserID      string `json:"userId"`
		Name        string `json:"name"`
		AmountCents int64  `json:"amountCents"`
		Month       int    `json:"month"`
		Year        int    `json:"year"`
	}

	// Category classifies transactions as income or expense buckets.
	Category struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Type   string `json:"type"` // "income" or "expense"
		Icon   string `json:"icon,omitempty"`
		Color  string `json:"color,omitempty"`
	}

	// Transaction is a single money movement against a budget.
	Transaction struct {
		ID          string `json:"id"`
		UserID      string `json:"userId"`
		BudgetID    string `json:"budgetId,omitempty"`
		CategoryID  string `json:"categoryId,omitempty"`
		Description string `json:"description"`
		AmountCents int64  `json:"amountCents"`
		Type        string `json:"type"` // "income" or "expense"
		Date        string `json:"date"` // ISO date, YYYY-MM-DD
	}

	// Goal is a savings target.
	Goal struct {
		ID           string `json:"id"`
		UserID       string `json:"userId"`
		Name         string `json:"name"`
		TargetCents  int64  `json:"targetCents"`
		CurrentCents int64  `json:"currentCents"`
		Deadline     string `json:"deadline,omitempty"` // ISO date, YYYY-MM-DD
	}

	// CategoryAllocation splits a budget's amount across categories. It is
	// scoped through its budget, not through a user of its own.
	CategoryAllocation struct {
		ID             string `json:"id"`
		BudgetID       string `json:"budgetId"`
		CategoryID     string `json:"categoryId"`
		AllocatedCents int64  `json:"allocatedCents"`
	}
)

func (b Budget) RecordID() string { return b.ID }
func (b Budget) OwnerID() string  { return b.UserID }

func (c Category) RecordID() string { return c.ID }
func (c Category) OwnerID() string  { return c.UserID }

func (t Transaction) RecordID() string { return t.ID }
func (t Transaction) OwnerID() string  { return t.UserID }

func (g Goal) RecordID() string { return g.ID }
func (g Goal) OwnerID() string  { return g.UserID }

func (a CategoryAllocation) RecordID() string { return a.ID }
func (a CategoryAllocation) OwnerID() string  { return "" }
