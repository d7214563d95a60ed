package core

import "errors"

// Table identifies one of the fixed local collections. The set is closed:
// every operation that takes a Table validates it against this list, so no
// dynamic table-name dispatch ever reaches the storage layer.
type Table string

const (
	TableBudgets             Table = "budgets"
	TableCategories          Table = "categories"
	TableTransactions        Table = "transactions"
	TableGoals               Table = "goals"
	TableCategoryAllocations Table = "category_allocations"
)

var ErrUnknownTable = errors.New("unknown table")

// Tables returns all known tables in the fixed order used by a full sync
// pass. The order is a simplification, not a correctness property: tables
// are independent collections.
func Tables() []Table {
	return []Table{
		TableBudgets,
		TableCategories,
		TableTransactions,
		TableGoals,
		TableCategoryAllocations,
	}
}

// IsValid returns true if the table is one of the known collections.
func (t Table) IsValid() bool {
	switch t {
	case TableBudgets, TableCategories, TableTransactions, TableGoals, TableCategoryAllocations:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (t Table) String() string {
	return string(t)
}

// ParseTable converts a string into a Table, or returns ErrUnknownTable.
func ParseTable(s string) (Table, error) {
	t := Table(s)
	if !t.IsValid() {
		return "", ErrUnknownTable
	}
	return t, nil
}
