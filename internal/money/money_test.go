package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromDecimal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Cents
		wantErr bool
	}{
		{name: "whole dollars", in: "12", want: 1200},
		{name: "two decimal places", in: "12.50", want: 1250},
		{name: "negative", in: "-0.05", want: -5},
		{name: "zero", in: "0", want: 0},
		{name: "sub-cent precision rejected", in: "0.005", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			if err != nil {
				t.Fatalf("bad test input %q: %v", tt.in, err)
			}
			got, err := FromDecimal(d)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FromDecimal(%s) = %d, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromDecimal(%s) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("FromDecimal(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name  string
		total Cents
		pct   string
		want  Cents
	}{
		{name: "exact half", total: 10000, pct: "50", want: 5000},
		{name: "thirty percent", total: 10000, pct: "30", want: 3000},
		{name: "fractional percentage", total: 10000, pct: "33.5", want: 3350},
		{name: "banker's rounding down", total: 101, pct: "50", want: 50},   // 50.5 -> 50
		{name: "banker's rounding up", total: 103, pct: "50", want: 52},     // 51.5 -> 52
		{name: "hundred percent", total: 12345, pct: "100", want: 12345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, err := decimal.NewFromString(tt.pct)
			if err != nil {
				t.Fatalf("bad percentage %q: %v", tt.pct, err)
			}
			if got := Percent(tt.total, pct); got != tt.want {
				t.Errorf("Percent(%d, %s) = %d, want %d", tt.total, tt.pct, got, tt.want)
			}
		})
	}
}

func TestCentsString(t *testing.T) {
	if got := Cents(1250).String(); got != "12.50" {
		t.Errorf("String() = %q, want %q", got, "12.50")
	}
	if got := Cents(-5).String(); got != "-0.05" {
		t.Errorf("String() = %q, want %q", got, "-0.05")
	}
}
