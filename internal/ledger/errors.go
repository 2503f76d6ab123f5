package ledger

import "errors"

// Failure taxonomy for ledger operations. Callers receive exactly one of
// these (possibly wrapped with context); nothing is logged-and-swallowed
// inside the engine, and any failure after a transaction opens rolls the
// whole operation back.
var (
	// Not found.
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrMemberNotFound       = errors.New("group member not found")
	ErrSettlementNotFound   = errors.New("settlement not found")

	// Validation.
	ErrNotParticipant = errors.New("party is not part of the relationship")

	// Policy: the relationship or membership state disallows the action.
	// Existing entries remain valid history.
	ErrActionNotAllowed = errors.New("action not allowed in current state")
	ErrInactiveMember   = errors.New("membership is revoked")

	// Settlement.
	ErrAlreadySettled           = errors.New("balance is already settled")
	ErrSettlementExceedsBalance = errors.New("settlement exceeds outstanding balance")
	ErrWrongDirection           = errors.New("settlement payer is not the party in debt")
)
