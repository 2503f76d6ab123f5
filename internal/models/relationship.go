package models

import "github.com/splitledger/splitledger/internal/money"

// RelationshipStatus is the lifecycle state of a two-party relationship.
type RelationshipStatus string

const (
	// StatusPending means the request was sent but not yet accepted.
	StatusPending RelationshipStatus = "PENDING"
	// StatusAccepted means both parties share a ledger.
	StatusAccepted RelationshipStatus = "ACCEPTED"
	// StatusRejected is terminal for new entries; history stays queryable.
	StatusRejected RelationshipStatus = "REJECTED"
)

// Relationship is the two-party pairing that anchors a running balance.
//
// The balance sign convention is canonical throughout the ledger:
// positive means PartyB owes PartyA. PartyA plays the "canonical lesser"
// role that the group edge model uses for its ordered pairs.
type Relationship struct {
	// ID is the unique identifier for the relationship (UUID format).
	ID string

	// PartyA and PartyB are opaque party identifiers supplied by the
	// identity provider. PartyA is the requester.
	PartyA string
	PartyB string

	// Status is the lifecycle state. Only ACCEPTED relationships accept
	// new ledger entries.
	Status RelationshipStatus

	// Balance is the running signed balance: positive = PartyB owes PartyA.
	// Written exclusively by the ledger engine.
	Balance money.Cents

	// Per-side archive and block flags. Any set flag disallows new
	// entries; existing entries remain valid history.
	ArchivedByA bool
	ArchivedByB bool
	BlockedByA  bool
	BlockedByB  bool

	// CreatedAt is the Unix timestamp when the request was sent.
	CreatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, 0 if live.
	DeletedAt int64
}

// Restricted reports whether either side has archived or blocked the other.
func (r *Relationship) Restricted() bool {
	return r.ArchivedByA || r.ArchivedByB || r.BlockedByA || r.BlockedByB
}

// Party reports whether id is one of the relationship's two parties.
func (r *Relationship) Party(id string) bool {
	return id == r.PartyA || id == r.PartyB
}
