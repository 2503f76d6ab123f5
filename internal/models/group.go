package models

import "github.com/splitledger/splitledger/internal/money"

// Group is a named collection of memberships that share a balance graph.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name, e.g. "Roommates".
	Name string

	// CreatorID is the opaque user id of the creator.
	CreatorID string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, 0 if live.
	DeletedAt int64
}

// GroupMember is one user's membership in one group.
//
// The membership ID, not the user id, is the unit of ledger identity:
// balances in independent groups stay independent, and a revoked then
// rejoined membership gets a fresh id so old edges keep their meaning.
type GroupMember struct {
	// ID is the membership identifier (UUID format).
	ID string

	// GroupID is the owning group.
	GroupID string

	// UserID is the opaque user id from the identity provider.
	UserID string

	// Active is false once the membership is revoked. Revoked memberships
	// cannot appear on new entries but remain valid in history.
	Active bool

	// JoinedAt is the Unix timestamp when the membership was created.
	JoinedAt int64
}

// GroupBalanceEdge is the signed balance between one unordered pair of
// memberships. Exactly one edge exists per pair, keyed by the canonical
// ordering (LesserID < GreaterID lexicographically). Positive balance
// means Greater owes Lesser, the same convention as Relationship.
//
// Edges are sparse: one is created lazily on first transaction between
// two memberships.
type GroupBalanceEdge struct {
	GroupID   string
	LesserID  string
	GreaterID string

	// Balance: positive = GreaterID owes LesserID. Written exclusively
	// by the ledger engine.
	Balance money.Cents
}

// EdgeKey orders two membership ids canonically.
// Returns (lesser, greater) under lexicographic comparison.
func EdgeKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// GroupEntryDebtor is one debtor's share of a group entry.
type GroupEntryDebtor struct {
	MemberID string
	Amount   money.Cents
}

// GroupEntry is a group expense: one payer, n debtor shares, each applied
// as a delta to the edge between payer and debtor.
type GroupEntry struct {
	ID          string
	GroupID     string
	Description string
	TotalAmount money.Cents
	Strategy    SplitStrategy

	// PayerID is a membership id.
	PayerID string

	// Debtors holds the derived per-debtor amounts, persisted so edits
	// and deletes can reverse the exact applied deltas.
	Debtors []GroupEntryDebtor

	Note      string
	CreatedAt int64
	DeletedAt int64
}

// Deleted reports whether the entry has been soft-deleted.
func (e *GroupEntry) Deleted() bool { return e.DeletedAt != 0 }

// GroupSettlement is a single payer->recipient payment inside a group,
// mutating exactly one edge. The payer is the membership currently in
// debt on that edge.
type GroupSettlement struct {
	ID      string
	GroupID string

	// PayerID is the membership paying off its debt.
	PayerID string

	// RecipientID is the membership being paid.
	RecipientID string

	Amount    money.Cents
	Note      string
	CreatedAt int64
	DeletedAt int64
}
