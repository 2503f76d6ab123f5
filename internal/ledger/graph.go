package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

// Graph maintains the sparse per-group balance graph: one signed balance
// per unordered pair of memberships, keyed canonically so (A,B) and (B,A)
// can never diverge.
type Graph struct {
	store  storage.Store
	events events.Publisher
	now    func() int64
}

// NewGraph creates a group balance graph over the given store. pub may be
// nil if no one listens for domain events.
func NewGraph(store storage.Store, pub events.Publisher) *Graph {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Graph{store: store, events: pub, now: func() int64 { return time.Now().Unix() }}
}

// ExpenseInput carries the caller-supplied fields for a group expense.
type ExpenseInput struct {
	Description string
	Total       money.Cents
	Strategy    models.SplitStrategy
	PayerID     string

	PayerShare   money.Cents
	PayerPercent decimal.Decimal

	Debtors []split.DebtorInput
	Note    string
}

// SettlementInput carries the fields for a group settlement: the payer is
// the membership currently in debt, paying the recipient.
type SettlementInput struct {
	PayerID     string
	RecipientID string
	Amount      money.Cents
	Note        string
}

type edgeKey struct{ lesser, greater string }

// edgeDelta is the signed contribution of one debtor fact to the edge
// between payer and debtor: positive when the payer is the canonical
// lesser member. The same rule applies to settlements, whose payer is the
// side in debt, so the delta always moves that balance toward zero.
func edgeDelta(payer, counterparty string, amount money.Cents) (edgeKey, money.Cents) {
	lesser, greater := models.EdgeKey(payer, counterparty)
	if payer == lesser {
		return edgeKey{lesser, greater}, amount
	}
	return edgeKey{lesser, greater}, -amount
}

// applyDeltas locks and updates every touched edge in canonical key order,
// so two expenses sharing two or more participants cannot deadlock.
// It returns the post-update balance per edge.
func applyDeltas(ctx context.Context, tx storage.Tx, groupID string, deltas map[edgeKey]money.Cents) (map[string]money.Cents, error) {
	keys := make([]edgeKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lesser != keys[j].lesser {
			return keys[i].lesser < keys[j].lesser
		}
		return keys[i].greater < keys[j].greater
	})

	balances := make(map[string]money.Cents, len(keys))
	for _, k := range keys {
		edge, err := tx.EdgeForUpdate(ctx, groupID, k.lesser, k.greater)
		if err != nil {
			return nil, err
		}
		newBalance := edge.Balance + deltas[k]
		if err := tx.SetEdgeBalance(ctx, groupID, k.lesser, k.greater, newBalance); err != nil {
			return nil, err
		}
		balances[k.lesser+":"+k.greater] = newBalance
	}
	return balances, nil
}

// checkMembers verifies the group is live and every named membership
// belongs to it and is active. It runs inside the same transaction as
// the ledger writes it gates, so a membership revoked concurrently can
// never receive a new expense or settlement.
func checkMembers(ctx context.Context, tx storage.Tx, groupID string, memberIDs ...string) error {
	if _, err := tx.GroupForUpdate(ctx, groupID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	for _, id := range memberIDs {
		m, err := tx.GroupMemberForUpdate(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		if err != nil {
			return err
		}
		if m.GroupID != groupID {
			return fmt.Errorf("%w: %s belongs to another group", ErrMemberNotFound, id)
		}
		if !m.Active {
			return fmt.Errorf("%w: %s", ErrInactiveMember, id)
		}
	}
	return nil
}

// AddExpense records a group expense and adjusts every payer-debtor edge,
// all in one transaction. A multi-debtor expense never partially applies.
func (g *Graph) AddExpense(ctx context.Context, groupID string, in ExpenseInput) (entry *models.GroupEntry, err error) {
	start := time.Now()
	defer func() { metrics.Observe("group_add_expense", time.Since(start).Seconds(), err) }()

	debtors, err := split.GroupDebtorAmounts(split.GroupInput{
		Strategy:     in.Strategy,
		Total:        in.Total,
		PayerID:      in.PayerID,
		PayerShare:   in.PayerShare,
		PayerPercent: in.PayerPercent,
		Debtors:      in.Debtors,
	})
	if err != nil {
		return nil, err
	}

	memberIDs := make([]string, 0, len(debtors)+1)
	memberIDs = append(memberIDs, in.PayerID)
	for _, d := range debtors {
		memberIDs = append(memberIDs, d.MemberID)
	}

	var balances map[string]money.Cents
	err = g.store.InTx(ctx, func(tx storage.Tx) error {
		if err := checkMembers(ctx, tx, groupID, memberIDs...); err != nil {
			return err
		}

		deltas := make(map[edgeKey]money.Cents, len(debtors))
		for _, d := range debtors {
			k, delta := edgeDelta(in.PayerID, d.MemberID, d.Amount)
			deltas[k] += delta
		}

		var err error
		balances, err = applyDeltas(ctx, tx, groupID, deltas)
		if err != nil {
			return err
		}

		entry = &models.GroupEntry{
			ID:          uuid.New().String(),
			GroupID:     groupID,
			Description: in.Description,
			TotalAmount: in.Total,
			Strategy:    in.Strategy,
			PayerID:     in.PayerID,
			Debtors:     debtors,
			Note:        in.Note,
			CreatedAt:   g.now(),
		}
		return tx.InsertGroupEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	g.events.Publish(events.Event{
		Type:     events.EntryAdded,
		Room:     groupID,
		EntryID:  entry.ID,
		Balances: balances,
	})
	return entry, nil
}

// UpdateExpense edits a group expense. Description-only changes persist
// directly. Otherwise the old per-debtor contributions are fully reversed
// and the new ones applied, across however many edges that touches, in one
// transaction.
func (g *Graph) UpdateExpense(ctx context.Context, entryID string, in ExpenseInput) (entry *models.GroupEntry, err error) {
	start := time.Now()
	defer func() { metrics.Observe("group_update_expense", time.Since(start).Seconds(), err) }()

	newDebtors, err := split.GroupDebtorAmounts(split.GroupInput{
		Strategy:     in.Strategy,
		Total:        in.Total,
		PayerID:      in.PayerID,
		PayerShare:   in.PayerShare,
		PayerPercent: in.PayerPercent,
		Debtors:      in.Debtors,
	})
	if err != nil {
		return nil, err
	}

	var (
		groupID  string
		balances map[string]money.Cents
	)
	err = g.store.InTx(ctx, func(tx storage.Tx) error {
		e, err := tx.GroupEntryForUpdate(ctx, entryID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if e.Deleted() {
			return ErrEntryNotFound
		}
		groupID = e.GroupID

		if !expenseAffectsBalance(e, in.PayerID, in.Total, in.Strategy, newDebtors) {
			e.Description = in.Description
			e.Note = in.Note
			if err := tx.UpdateGroupEntry(ctx, e); err != nil {
				return err
			}
			entry = e
			return nil
		}

		// The new payer and debtors must hold active memberships in the
		// entry's group, exactly as AddExpense requires; otherwise an
		// edit could mint edges to memberships that never existed.
		memberIDs := make([]string, 0, len(newDebtors)+1)
		memberIDs = append(memberIDs, in.PayerID)
		for _, d := range newDebtors {
			memberIDs = append(memberIDs, d.MemberID)
		}
		if err := checkMembers(ctx, tx, e.GroupID, memberIDs...); err != nil {
			return err
		}

		// Reverse every old debtor fact, then apply every new one; deltas
		// on the same edge merge so each edge is locked once.
		deltas := make(map[edgeKey]money.Cents)
		for _, d := range e.Debtors {
			k, delta := edgeDelta(e.PayerID, d.MemberID, d.Amount)
			deltas[k] -= delta
		}
		for _, d := range newDebtors {
			k, delta := edgeDelta(in.PayerID, d.MemberID, d.Amount)
			deltas[k] += delta
		}

		balances, err = applyDeltas(ctx, tx, e.GroupID, deltas)
		if err != nil {
			return err
		}

		e.Description = in.Description
		e.TotalAmount = in.Total
		e.Strategy = in.Strategy
		e.PayerID = in.PayerID
		e.Debtors = newDebtors
		e.Note = in.Note
		if err := tx.UpdateGroupEntry(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.events.Publish(events.Event{
		Type:     events.EntryUpdated,
		Room:     groupID,
		EntryID:  entry.ID,
		Balances: balances,
	})
	return entry, nil
}

func expenseAffectsBalance(e *models.GroupEntry, payerID string, total money.Cents, strategy models.SplitStrategy, debtors []models.GroupEntryDebtor) bool {
	if e.PayerID != payerID || e.TotalAmount != total || e.Strategy != strategy {
		return true
	}
	if len(e.Debtors) != len(debtors) {
		return true
	}
	old := make(map[string]money.Cents, len(e.Debtors))
	for _, d := range e.Debtors {
		old[d.MemberID] = d.Amount
	}
	for _, d := range debtors {
		amt, ok := old[d.MemberID]
		if !ok || amt != d.Amount {
			return true
		}
	}
	return false
}

// DeleteExpense reverses every edge contribution of a group expense and
// marks it soft-deleted, atomically.
func (g *Graph) DeleteExpense(ctx context.Context, entryID string) (err error) {
	start := time.Now()
	defer func() { metrics.Observe("group_delete_expense", time.Since(start).Seconds(), err) }()

	var (
		groupID  string
		balances map[string]money.Cents
	)
	err = g.store.InTx(ctx, func(tx storage.Tx) error {
		e, err := tx.GroupEntryForUpdate(ctx, entryID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if e.Deleted() {
			return ErrEntryNotFound
		}
		groupID = e.GroupID

		deltas := make(map[edgeKey]money.Cents, len(e.Debtors))
		for _, d := range e.Debtors {
			k, delta := edgeDelta(e.PayerID, d.MemberID, d.Amount)
			deltas[k] -= delta
		}
		balances, err = applyDeltas(ctx, tx, e.GroupID, deltas)
		if err != nil {
			return err
		}
		return tx.SoftDeleteGroupEntry(ctx, e.ID, g.now())
	})
	if err != nil {
		return err
	}

	g.events.Publish(events.Event{
		Type:     events.EntryDeleted,
		Room:     groupID,
		EntryID:  entryID,
		Balances: balances,
	})
	return nil
}

// Settle records a payment from the membership in debt to the membership
// it owes, moving their edge balance toward zero. Settling a pair with no
// outstanding balance fails with ErrAlreadySettled; overpayment fails with
// ErrSettlementExceedsBalance.
func (g *Graph) Settle(ctx context.Context, groupID string, in SettlementInput) (settlement *models.GroupSettlement, err error) {
	start := time.Now()
	defer func() { metrics.Observe("group_settle", time.Since(start).Seconds(), err) }()

	if in.PayerID == in.RecipientID {
		return nil, split.ErrSelfTransaction
	}

	var newBalance money.Cents
	lesser, greater := models.EdgeKey(in.PayerID, in.RecipientID)
	err = g.store.InTx(ctx, func(tx storage.Tx) error {
		if err := checkMembers(ctx, tx, groupID, in.PayerID, in.RecipientID); err != nil {
			return err
		}

		edge, err := tx.EdgeForUpdate(ctx, groupID, lesser, greater)
		if err != nil {
			return err
		}

		newBalance, err = Settle(edge.Balance, in.Amount, in.PayerID == lesser)
		if err != nil {
			return err
		}
		if err := tx.SetEdgeBalance(ctx, groupID, lesser, greater, newBalance); err != nil {
			return err
		}

		settlement = &models.GroupSettlement{
			ID:          uuid.New().String(),
			GroupID:     groupID,
			PayerID:     in.PayerID,
			RecipientID: in.RecipientID,
			Amount:      in.Amount,
			Note:        in.Note,
			CreatedAt:   g.now(),
		}
		return tx.InsertGroupSettlement(ctx, settlement)
	})
	if err != nil {
		return nil, err
	}

	g.events.Publish(events.Event{
		Type:     events.SettlementApplied,
		Room:     groupID,
		EntryID:  settlement.ID,
		Balances: map[string]money.Cents{lesser + ":" + greater: newBalance},
	})
	return settlement, nil
}

// DeleteSettlement reverses a settlement's edge contribution and marks it
// soft-deleted, restoring the debt it had cleared.
func (g *Graph) DeleteSettlement(ctx context.Context, settlementID string) (err error) {
	start := time.Now()
	defer func() { metrics.Observe("group_delete_settlement", time.Since(start).Seconds(), err) }()

	var (
		groupID  string
		balances map[string]money.Cents
	)
	err = g.store.InTx(ctx, func(tx storage.Tx) error {
		s, err := tx.GroupSettlementForUpdate(ctx, settlementID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSettlementNotFound
		}
		if err != nil {
			return err
		}
		if s.DeletedAt != 0 {
			return ErrSettlementNotFound
		}
		groupID = s.GroupID

		k, delta := edgeDelta(s.PayerID, s.RecipientID, s.Amount)
		balances, err = applyDeltas(ctx, tx, s.GroupID, map[edgeKey]money.Cents{k: -delta})
		if err != nil {
			return err
		}
		return tx.SoftDeleteGroupSettlement(ctx, s.ID, g.now())
	})
	if err != nil {
		return err
	}

	g.events.Publish(events.Event{
		Type:     events.EntryDeleted,
		Room:     groupID,
		EntryID:  settlementID,
		Balances: balances,
	})
	return nil
}

// BalanceWith returns the balance between two memberships from memberID's
// viewpoint: positive means the other member owes memberID. A pair that
// never transacted has balance zero.
func (g *Graph) BalanceWith(ctx context.Context, groupID, memberID, otherID string) (money.Cents, error) {
	edge, err := g.store.GetEdge(ctx, groupID, memberID, otherID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return viewpoint(edge, memberID), nil
}

// TotalBalance returns a membership's net position across the whole group:
// the sign-adjusted sum over every edge touching it.
func (g *Graph) TotalBalance(ctx context.Context, groupID, memberID string) (money.Cents, error) {
	edges, err := g.store.ListEdgesFor(ctx, groupID, memberID)
	if err != nil {
		return 0, err
	}
	var total money.Cents
	for _, e := range edges {
		total += viewpoint(e, memberID)
	}
	return total, nil
}

// viewpoint sign-adjusts an edge balance to one member's perspective:
// positive = the counterparty owes member.
func viewpoint(e *models.GroupBalanceEdge, member string) money.Cents {
	if member == e.LesserID {
		return e.Balance
	}
	return -e.Balance
}
