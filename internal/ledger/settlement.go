package ledger

import (
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/split"
)

// Settle validates a settlement against the current balance and returns
// the new balance, which is strictly closer to zero (or exactly zero).
//
// payerIsLesser says whether the paying party is the canonical-lesser side
// of the pair: PartyA for a relationship, LesserID for a group edge. Under
// the shared sign convention (positive = greater owes lesser) the party in
// debt is the greater side when the balance is positive and the lesser
// side when it is negative; only that party may pay.
func Settle(balance, amount money.Cents, payerIsLesser bool) (money.Cents, error) {
	if balance == 0 {
		return 0, ErrAlreadySettled
	}
	if amount <= 0 {
		return 0, split.ErrNonPositiveAmount
	}
	if amount > balance.Abs() {
		return 0, ErrSettlementExceedsBalance
	}
	if balance > 0 && payerIsLesser {
		return 0, ErrWrongDirection
	}
	if balance < 0 && !payerIsLesser {
		return 0, ErrWrongDirection
	}
	if payerIsLesser {
		return balance + amount, nil
	}
	return balance - amount, nil
}
