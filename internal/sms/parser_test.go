package sms

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePaymentText(t *testing.T) {
	cases := []struct {
		name    string
		message string
		amount  string
		ref     string
		ok      bool
	}{
		{
			name:    "mtn payment received",
			message: "Payment received for GHS 10.00 from JOHN DOE Current Balance: GHS 250.00 . Available Balance: GHS 250.00. Reference: 1. Transaction ID: 47812345678. TRANSACTION FEE: 0.00",
			amount:  "10",
			ref:     "47812345678",
			ok:      true,
		},
		{
			name:    "cedi sign and financial id",
			message: "You have received GH¢1,250.50 from 0244000000. Financial Transaction Id: 99887766.",
			amount:  "1250.5",
			ref:     "99887766",
			ok:      true,
		},
		{
			name:    "lowercase ghc and trans id",
			message: "payment received for ghc 5 from ama. trans id: AB12-CD",
			amount:  "5",
			ref:     "AB12-CD",
			ok:      true,
		},
		{
			name:    "ref only",
			message: "Payment of GHS 20.00 received. Ref: TX900",
			amount:  "20",
			ref:     "TX900",
			ok:      true,
		},
		{
			name:    "no amount",
			message: "Your airtime balance is low. Transaction ID: 123",
		},
		{
			name:    "no reference",
			message: "Payment received for GHS 10.00 from someone",
		},
		{
			name:    "zero amount",
			message: "Payment received for GHS 0.00. Transaction ID: 1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParsePaymentText(tc.message)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v (%+v)", ok, tc.ok, got)
			}
			if !ok {
				return
			}
			if !got.Amount.Equal(decimal.RequireFromString(tc.amount)) {
				t.Fatalf("amount = %s, want %s", got.Amount, tc.amount)
			}
			if got.Reference != tc.ref {
				t.Fatalf("reference = %q, want %q", got.Reference, tc.ref)
			}
		})
	}
}
