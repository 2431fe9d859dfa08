package domain

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		from, to BillingStatus
		ok       bool
	}{
		{BillingStatusUnpaid, BillingStatusOverdue, true},
		{BillingStatusUnpaid, BillingStatusPaid, true},
		{BillingStatusOverdue, BillingStatusOverdue, true},
		{BillingStatusOverdue, BillingStatusPaid, true},
		{BillingStatusPaid, BillingStatusFinalized, true},
		{BillingStatusPaid, BillingStatusOverdue, false},
		{BillingStatusFinalized, BillingStatusPaid, false},
		{BillingStatusUnpaid, BillingStatusFinalized, false},
		{BillingStatusOverdue, BillingStatusUnpaid, false},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.to)
		if tc.ok {
			if err != nil || got != tc.to {
				t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected invalid transition, got %v", tc.from, tc.to, err)
		}
		if got != tc.from {
			t.Fatalf("%s -> %s: status changed on rejected transition", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if BillingStatusUnpaid.IsTerminal() || BillingStatusOverdue.IsTerminal() {
		t.Fatal("open statuses reported terminal")
	}
	if !BillingStatusPaid.IsTerminal() || !BillingStatusFinalized.IsTerminal() {
		t.Fatal("settled statuses reported open")
	}
}
