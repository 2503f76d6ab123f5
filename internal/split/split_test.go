package split

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

func pct(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDebtorAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      PairwiseInput
		want    money.Cents
		wantErr error
	}{
		{
			name: "equal split even total",
			in:   PairwiseInput{Strategy: models.SplitEqual, Total: 10000},
			want: 5000,
		},
		{
			name: "equal split odd total - payer absorbs the cent",
			in:   PairwiseInput{Strategy: models.SplitEqual, Total: 101},
			want: 50,
		},
		{
			name: "unequal split exact",
			in: PairwiseInput{
				Strategy: models.SplitUnequal, Total: 10000,
				PayerShare: 3000, DebtorShare: 7000,
			},
			want: 7000,
		},
		{
			name: "unequal split mismatch rejected",
			in: PairwiseInput{
				Strategy: models.SplitUnequal, Total: 10000,
				PayerShare: 3000, DebtorShare: 6000,
			},
			wantErr: ErrMismatch,
		},
		{
			name: "unequal negative share rejected",
			in: PairwiseInput{
				Strategy: models.SplitUnequal, Total: 1000,
				PayerShare: -500, DebtorShare: 1500,
			},
			wantErr: ErrBadShape,
		},
		{
			name: "percentage split",
			in: PairwiseInput{
				Strategy: models.SplitPercentage, Total: 10000,
				PayerPercent: pct("30"), DebtorPercent: pct("70"),
			},
			want: 7000,
		},
		{
			name: "fractional percentage",
			in: PairwiseInput{
				Strategy: models.SplitPercentage, Total: 10000,
				PayerPercent: pct("66.5"), DebtorPercent: pct("33.5"),
			},
			want: 3350,
		},
		{
			name: "percentage not summing to 100 rejected",
			in: PairwiseInput{
				Strategy: models.SplitPercentage, Total: 10000,
				PayerPercent: pct("30"), DebtorPercent: pct("60"),
			},
			wantErr: ErrMismatch,
		},
		{
			name: "settlement transfers the full amount",
			in:   PairwiseInput{Strategy: models.SplitSettlement, Total: 2000},
			want: 2000,
		},
		{
			name:    "zero total rejected",
			in:      PairwiseInput{Strategy: models.SplitEqual, Total: 0},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "negative total rejected",
			in:      PairwiseInput{Strategy: models.SplitSettlement, Total: -100},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "unknown strategy rejected",
			in:      PairwiseInput{Strategy: "HALVSIES", Total: 100},
			wantErr: ErrBadShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DebtorAmount(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DebtorAmount() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DebtorAmount() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DebtorAmount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGroupDebtorAmounts(t *testing.T) {
	tests := []struct {
		name    string
		in      GroupInput
		want    map[string]money.Cents
		wantErr error
	}{
		{
			name: "equal split three participants",
			in: GroupInput{
				Strategy: models.SplitEqual, Total: 9000, PayerID: "p",
				Debtors: []DebtorInput{{MemberID: "d1"}, {MemberID: "d2"}},
			},
			want: map[string]money.Cents{"d1": 3000, "d2": 3000},
		},
		{
			name: "equal split with remainder to payer",
			in: GroupInput{
				Strategy: models.SplitEqual, Total: 10000, PayerID: "p",
				Debtors: []DebtorInput{{MemberID: "d1"}, {MemberID: "d2"}},
			},
			// 10000/3 = 3333 each debtor, payer covers 3334
			want: map[string]money.Cents{"d1": 3333, "d2": 3333},
		},
		{
			name: "unequal split exact",
			in: GroupInput{
				Strategy: models.SplitUnequal, Total: 10000, PayerID: "p",
				PayerShare: 0,
				Debtors: []DebtorInput{
					{MemberID: "d1", Share: 3000},
					{MemberID: "d2", Share: 7000},
				},
			},
			want: map[string]money.Cents{"d1": 3000, "d2": 7000},
		},
		{
			name: "unequal split mismatch rejected",
			in: GroupInput{
				Strategy: models.SplitUnequal, Total: 10000, PayerID: "p",
				PayerShare: 500,
				Debtors: []DebtorInput{
					{MemberID: "d1", Share: 3000},
					{MemberID: "d2", Share: 7000},
				},
			},
			wantErr: ErrMismatch,
		},
		{
			name: "percentage split",
			in: GroupInput{
				Strategy: models.SplitPercentage, Total: 10000, PayerID: "p",
				PayerPercent: pct("0"),
				Debtors: []DebtorInput{
					{MemberID: "d1", Percent: pct("30")},
					{MemberID: "d2", Percent: pct("70")},
				},
			},
			want: map[string]money.Cents{"d1": 3000, "d2": 7000},
		},
		{
			name: "percentage not summing to 100 rejected",
			in: GroupInput{
				Strategy: models.SplitPercentage, Total: 10000, PayerID: "p",
				PayerPercent: pct("20"),
				Debtors: []DebtorInput{
					{MemberID: "d1", Percent: pct("30")},
					{MemberID: "d2", Percent: pct("30")},
				},
			},
			wantErr: ErrMismatch,
		},
		{
			name: "payer among debtors rejected",
			in: GroupInput{
				Strategy: models.SplitEqual, Total: 1000, PayerID: "p",
				Debtors: []DebtorInput{{MemberID: "p"}},
			},
			wantErr: ErrSelfTransaction,
		},
		{
			name: "duplicate debtor rejected",
			in: GroupInput{
				Strategy: models.SplitEqual, Total: 1000, PayerID: "p",
				Debtors: []DebtorInput{{MemberID: "d1"}, {MemberID: "d1"}},
			},
			wantErr: ErrBadShape,
		},
		{
			name: "settlement strategy rejected for group expenses",
			in: GroupInput{
				Strategy: models.SplitSettlement, Total: 1000, PayerID: "p",
				Debtors: []DebtorInput{{MemberID: "d1"}},
			},
			wantErr: ErrBadShape,
		},
		{
			name: "no debtors rejected",
			in: GroupInput{
				Strategy: models.SplitEqual, Total: 1000, PayerID: "p",
			},
			wantErr: ErrBadShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GroupDebtorAmounts(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GroupDebtorAmounts() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GroupDebtorAmounts() failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d debtors, want %d", len(got), len(tt.want))
			}
			for _, d := range got {
				if d.Amount != tt.want[d.MemberID] {
					t.Errorf("debtor %s amount = %d, want %d", d.MemberID, d.Amount, tt.want[d.MemberID])
				}
			}
		})
	}
}
