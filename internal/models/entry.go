package models

import "github.com/splitledger/splitledger/internal/money"

// SplitStrategy determines how an entry's total is divided.
type SplitStrategy string

const (
	SplitEqual      SplitStrategy = "EQUAL"
	SplitUnequal    SplitStrategy = "UNEQUAL"
	SplitPercentage SplitStrategy = "PERCENTAGE"
	// SplitSettlement marks a payment that only moves an existing balance
	// toward zero; always exactly one payer and one debtor.
	SplitSettlement SplitStrategy = "SETTLEMENT"
)

// Valid reports whether s is a known strategy.
func (s SplitStrategy) Valid() bool {
	switch s {
	case SplitEqual, SplitUnequal, SplitPercentage, SplitSettlement:
		return true
	}
	return false
}

// Entry is a two-party ledger entry: an expense or settlement that
// contributes a signed delta to its relationship's balance.
type Entry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// RelationshipID is the relationship this entry belongs to.
	RelationshipID string

	// Description is the human-readable name, e.g. "Dinner".
	Description string

	// TotalAmount is the full amount of the expense (or the payment
	// amount for settlements).
	TotalAmount money.Cents

	// Strategy is how the total was split.
	Strategy SplitStrategy

	// PayerID and DebtorID are the relationship's two parties; they must
	// differ.
	PayerID  string
	DebtorID string

	// DebtorAmount is the derived portion the debtor owes from this
	// entry. This is the value reversed when the entry is edited or
	// deleted, so it is persisted rather than recomputed.
	DebtorAmount money.Cents

	// Note is an optional free-form annotation.
	Note string

	// CreatedAt is the Unix timestamp when the entry was recorded.
	CreatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, 0 if live.
	DeletedAt int64
}

// Deleted reports whether the entry has been soft-deleted.
func (e *Entry) Deleted() bool { return e.DeletedAt != 0 }
