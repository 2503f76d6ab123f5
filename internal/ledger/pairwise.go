// Package ledger is the balance ledger engine: it maintains the running
// signed balance per two-party relationship and per group edge, under the
// split strategies, soft deletion, and the reverse-then-reapply discipline
// for edits.
//
// Every mutating operation here runs inside exactly one storage
// transaction; the entry write and the balance write commit together or
// not at all. This package is the only code that opens transactions and
// the only code that writes balance fields.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/events"
	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/split"
	"github.com/splitledger/splitledger/internal/storage"
)

// Pairwise maintains the one scalar signed balance of each two-party
// relationship.
type Pairwise struct {
	store  storage.Store
	events events.Publisher
	now    func() int64
}

// NewPairwise creates a pairwise ledger over the given store. pub may be
// nil if no one listens for domain events.
func NewPairwise(store storage.Store, pub events.Publisher) *Pairwise {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Pairwise{store: store, events: pub, now: func() int64 { return time.Now().Unix() }}
}

// EntryInput carries the caller-supplied fields for a two-party entry.
// Only the share fields matching the strategy are read.
type EntryInput struct {
	Description string
	Total       money.Cents
	Strategy    models.SplitStrategy
	PayerID     string
	DebtorID    string

	PayerShare  money.Cents
	DebtorShare money.Cents

	PayerPercent  decimal.Decimal
	DebtorPercent decimal.Decimal

	Note string
}

// AddResult is the outcome of AddEntry.
type AddResult struct {
	// Entry is nil when AlreadySettled is set.
	Entry *models.Entry

	// Balance is the relationship balance after the operation.
	Balance money.Cents

	// AlreadySettled marks the no-op case: a SETTLEMENT entry against a
	// zero balance. Nothing was written.
	AlreadySettled bool
}

// entryDelta is the signed contribution of an entry to its relationship's
// balance: +DebtorAmount when the payer is PartyA, -DebtorAmount when the
// payer is PartyB. The rule holds for settlements too, which is what makes
// the reconciliation invariant uniform across strategies.
func entryDelta(partyA string, e *models.Entry) money.Cents {
	if e.PayerID == partyA {
		return e.DebtorAmount
	}
	return -e.DebtorAmount
}

// checkParties validates payer and debtor against the relationship.
func checkParties(rel *models.Relationship, payerID, debtorID string) error {
	if payerID == debtorID {
		return split.ErrSelfTransaction
	}
	if !rel.Party(payerID) || !rel.Party(debtorID) {
		return fmt.Errorf("%w: payer %s, debtor %s", ErrNotParticipant, payerID, debtorID)
	}
	return nil
}

// AddEntry records a new expense or settlement on a relationship and
// adjusts the balance, atomically.
//
// Only ACCEPTED relationships with no archive/block flag on either side
// accept entries. A SETTLEMENT entry against a zero balance is a no-op
// result, not an error.
func (l *Pairwise) AddEntry(ctx context.Context, relationshipID string, in EntryInput) (res *AddResult, err error) {
	start := time.Now()
	defer func() { metrics.Observe("pairwise_add", time.Since(start).Seconds(), err) }()

	if !in.Strategy.Valid() {
		return nil, fmt.Errorf("%w: strategy %q", split.ErrBadShape, in.Strategy)
	}

	// Share computation is pure; fail before opening the transaction.
	debtorAmount, err := split.DebtorAmount(split.PairwiseInput{
		Strategy:      in.Strategy,
		Total:         in.Total,
		PayerShare:    in.PayerShare,
		DebtorShare:   in.DebtorShare,
		PayerPercent:  in.PayerPercent,
		DebtorPercent: in.DebtorPercent,
	})
	if err != nil {
		return nil, err
	}

	res = &AddResult{}
	err = l.store.InTx(ctx, func(tx storage.Tx) error {
		rel, err := tx.RelationshipForUpdate(ctx, relationshipID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRelationshipNotFound
		}
		if err != nil {
			return err
		}

		if err := checkParties(rel, in.PayerID, in.DebtorID); err != nil {
			return err
		}
		if rel.Status != models.StatusAccepted {
			return fmt.Errorf("%w: relationship is %s", ErrActionNotAllowed, rel.Status)
		}
		if rel.Restricted() {
			return fmt.Errorf("%w: relationship is archived or blocked", ErrActionNotAllowed)
		}

		var newBalance money.Cents
		if in.Strategy == models.SplitSettlement {
			if rel.Balance == 0 {
				res.AlreadySettled = true
				return nil
			}
			newBalance, err = Settle(rel.Balance, in.Total, in.PayerID == rel.PartyA)
			if err != nil {
				return err
			}
		} else {
			e := &models.Entry{PayerID: in.PayerID, DebtorAmount: debtorAmount}
			newBalance = rel.Balance + entryDelta(rel.PartyA, e)
		}

		entry := &models.Entry{
			ID:             uuid.New().String(),
			RelationshipID: rel.ID,
			Description:    in.Description,
			TotalAmount:    in.Total,
			Strategy:       in.Strategy,
			PayerID:        in.PayerID,
			DebtorID:       in.DebtorID,
			DebtorAmount:   debtorAmount,
			Note:           in.Note,
			CreatedAt:      l.now(),
		}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.SetRelationshipBalance(ctx, rel.ID, newBalance); err != nil {
			return err
		}

		res.Entry = entry
		res.Balance = newBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Entry != nil {
		typ := events.EntryAdded
		if res.Entry.Strategy == models.SplitSettlement {
			typ = events.SettlementApplied
		}
		l.events.Publish(events.Event{
			Type:     typ,
			Room:     relationshipID,
			EntryID:  res.Entry.ID,
			Balances: map[string]money.Cents{relationshipID: res.Balance},
		})
	}
	return res, nil
}

// UpdateEntry edits an existing entry. Changes limited to description and
// note persist directly. Any change to amount, payer, debtor, strategy, or
// shares first reverses the old entry's effect on the balance, then
// applies the new one, in one transaction, handling payer/debtor swaps.
func (l *Pairwise) UpdateEntry(ctx context.Context, entryID string, in EntryInput) (entry *models.Entry, balance money.Cents, err error) {
	start := time.Now()
	defer func() { metrics.Observe("pairwise_update", time.Since(start).Seconds(), err) }()

	if !in.Strategy.Valid() {
		return nil, 0, fmt.Errorf("%w: strategy %q", split.ErrBadShape, in.Strategy)
	}
	newAmount, err := split.DebtorAmount(split.PairwiseInput{
		Strategy:      in.Strategy,
		Total:         in.Total,
		PayerShare:    in.PayerShare,
		DebtorShare:   in.DebtorShare,
		PayerPercent:  in.PayerPercent,
		DebtorPercent: in.DebtorPercent,
	})
	if err != nil {
		return nil, 0, err
	}

	err = l.store.InTx(ctx, func(tx storage.Tx) error {
		e, err := tx.EntryForUpdate(ctx, entryID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if e.Deleted() {
			return ErrEntryNotFound
		}

		rel, err := tx.RelationshipForUpdate(ctx, e.RelationshipID)
		if err != nil {
			return err
		}
		if err := checkParties(rel, in.PayerID, in.DebtorID); err != nil {
			return err
		}

		affectsBalance := e.TotalAmount != in.Total ||
			e.Strategy != in.Strategy ||
			e.PayerID != in.PayerID ||
			e.DebtorID != in.DebtorID ||
			e.DebtorAmount != newAmount

		if !affectsBalance {
			e.Description = in.Description
			e.Note = in.Note
			if err := tx.UpdateEntry(ctx, e); err != nil {
				return err
			}
			entry, balance = e, rel.Balance
			return nil
		}

		// Fully reverse the old contribution before applying the new one.
		reversed := rel.Balance - entryDelta(rel.PartyA, e)

		var newBalance money.Cents
		if in.Strategy == models.SplitSettlement {
			newBalance, err = Settle(reversed, in.Total, in.PayerID == rel.PartyA)
			if err != nil {
				return err
			}
		} else {
			probe := &models.Entry{PayerID: in.PayerID, DebtorAmount: newAmount}
			newBalance = reversed + entryDelta(rel.PartyA, probe)
		}

		e.Description = in.Description
		e.TotalAmount = in.Total
		e.Strategy = in.Strategy
		e.PayerID = in.PayerID
		e.DebtorID = in.DebtorID
		e.DebtorAmount = newAmount
		e.Note = in.Note

		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
		if err := tx.SetRelationshipBalance(ctx, rel.ID, newBalance); err != nil {
			return err
		}
		entry, balance = e, newBalance
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	l.events.Publish(events.Event{
		Type:     events.EntryUpdated,
		Room:     entry.RelationshipID,
		EntryID:  entry.ID,
		Balances: map[string]money.Cents{entry.RelationshipID: balance},
	})
	return entry, balance, nil
}

// DeleteEntry reverses an entry's balance contribution and marks it
// soft-deleted, atomically. The record remains as history.
func (l *Pairwise) DeleteEntry(ctx context.Context, entryID string) (balance money.Cents, err error) {
	start := time.Now()
	defer func() { metrics.Observe("pairwise_delete", time.Since(start).Seconds(), err) }()

	var relationshipID string
	err = l.store.InTx(ctx, func(tx storage.Tx) error {
		e, err := tx.EntryForUpdate(ctx, entryID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if e.Deleted() {
			return ErrEntryNotFound
		}

		rel, err := tx.RelationshipForUpdate(ctx, e.RelationshipID)
		if err != nil {
			return err
		}

		newBalance := rel.Balance - entryDelta(rel.PartyA, e)
		if err := tx.SoftDeleteEntry(ctx, e.ID, l.now()); err != nil {
			return err
		}
		if err := tx.SetRelationshipBalance(ctx, rel.ID, newBalance); err != nil {
			return err
		}
		relationshipID, balance = rel.ID, newBalance
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.events.Publish(events.Event{
		Type:     events.EntryDeleted,
		Room:     relationshipID,
		EntryID:  entryID,
		Balances: map[string]money.Cents{relationshipID: balance},
	})
	return balance, nil
}

// Balance returns the current balance of a relationship, from PartyA's
// viewpoint when viewer is empty or PartyA, negated for PartyB.
func (l *Pairwise) Balance(ctx context.Context, relationshipID, viewer string) (money.Cents, error) {
	rel, err := l.store.GetRelationship(ctx, relationshipID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrRelationshipNotFound
	}
	if err != nil {
		return 0, err
	}
	if viewer == rel.PartyB {
		return -rel.Balance, nil
	}
	return rel.Balance, nil
}

// SendRequest creates a PENDING relationship between two parties.
func (l *Pairwise) SendRequest(ctx context.Context, requester, recipient string) (*models.Relationship, error) {
	if requester == recipient {
		return nil, split.ErrSelfTransaction
	}
	rel := &models.Relationship{
		ID:        uuid.New().String(),
		PartyA:    requester,
		PartyB:    recipient,
		Status:    models.StatusPending,
		CreatedAt: l.now(),
	}
	if err := l.store.CreateRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// Accept moves a PENDING relationship to ACCEPTED. Only the recipient may
// accept.
func (l *Pairwise) Accept(ctx context.Context, relationshipID, actor string) error {
	return l.transition(ctx, relationshipID, actor, models.StatusAccepted)
}

// Reject moves a PENDING relationship to REJECTED, terminal for new
// entries. Existing entries remain queryable history.
func (l *Pairwise) Reject(ctx context.Context, relationshipID, actor string) error {
	return l.transition(ctx, relationshipID, actor, models.StatusRejected)
}

func (l *Pairwise) transition(ctx context.Context, relationshipID, actor string, to models.RelationshipStatus) error {
	rel, err := l.store.GetRelationship(ctx, relationshipID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrRelationshipNotFound
	}
	if err != nil {
		return err
	}
	if actor != rel.PartyB {
		return fmt.Errorf("%w: only the recipient may respond", ErrActionNotAllowed)
	}
	if rel.Status != models.StatusPending {
		return fmt.Errorf("%w: relationship is %s", ErrActionNotAllowed, rel.Status)
	}
	return l.store.SetRelationshipStatus(ctx, relationshipID, to)
}

// SetFlags sets one party's archive and block flags on a relationship.
// Any set flag disallows new entries until cleared.
func (l *Pairwise) SetFlags(ctx context.Context, relationshipID, party string, archived, blocked bool) error {
	rel, err := l.store.GetRelationship(ctx, relationshipID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrRelationshipNotFound
	}
	if err != nil {
		return err
	}
	if !rel.Party(party) {
		return fmt.Errorf("%w: %s", ErrNotParticipant, party)
	}
	return l.store.SetRelationshipFlags(ctx, relationshipID, party, archived, blocked)
}
