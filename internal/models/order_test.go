package models

import (
	"testing"
	"time"
)

func TestMarkPaidMovesAnyStatusToProcessing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, status := range orderStatuses {
		o := Order{Status: status, PaymentStatus: PaymentPending}
		o.MarkPaid(now)
		if o.Status != StatusProcessing {
			t.Fatalf("status %q: expected processing after payment, got %q", status, o.Status)
		}
		if !o.IsPaid || o.PaymentStatus != PaymentPaid {
			t.Fatalf("status %q: expected paid, got isPaid=%v paymentStatus=%q", status, o.IsPaid, o.PaymentStatus)
		}
		if o.PaidAt == nil || !o.PaidAt.Equal(now) {
			t.Fatalf("status %q: expected paidAt %v, got %v", status, now, o.PaidAt)
		}
	}
}

func TestApplyPaymentTokenOnCancelledOrder(t *testing.T) {
	o := Order{Status: StatusCancelled, PaymentStatus: PaymentPending}
	if !o.ApplyPaymentToken("successful", time.Now()) {
		t.Fatal("expected the success token to change the order")
	}
	if o.Status != StatusProcessing || o.PaymentStatus != PaymentPaid {
		t.Fatalf("expected processing/paid, got %s/%s", o.Status, o.PaymentStatus)
	}
}

func TestApplyPaymentTokenRepeatedSuccessKeepsFulfillment(t *testing.T) {
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{Status: StatusShipped, PaymentStatus: PaymentPaid, IsPaid: true, PaidAt: &paidAt}
	if o.ApplyPaymentToken("success", paidAt.Add(time.Hour)) {
		t.Fatal("expected no change for an order that is already paid")
	}
	if o.Status != StatusShipped {
		t.Fatalf("expected shipped to be kept, got %q", o.Status)
	}
	if !o.PaidAt.Equal(paidAt) {
		t.Fatalf("expected paidAt to stay %v, got %v", paidAt, *o.PaidAt)
	}

	if o.ApplyPaymentToken("failed", paidAt) {
		t.Fatal("expected a failed token not to downgrade a paid order")
	}
}
