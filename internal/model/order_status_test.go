package model

import (
	"testing"
	"time"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPendingPayment, OrderStatusPaid, true},
		{OrderStatusPaid, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusShipping, true},
		{OrderStatusShipping, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusShipping, OrderStatusRefunded, true},
		{OrderStatusDelivered, OrderStatusPreparing, false},
		{OrderStatusPendingPayment, OrderStatusPreparing, false},
		{OrderStatusShipping, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusRefunded, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestOrderStatusRankAndTerminal(t *testing.T) {
	if OrderStatusPendingPayment.Rank() >= OrderStatusCompleted.Rank() {
		t.Fatalf("ranks out of order")
	}
	if OrderStatusCancelled.Rank() != -1 || !OrderStatusCancelled.Valid() {
		t.Fatalf("cancelled should be a valid branch state")
	}
	if OrderStatus("lost").Valid() {
		t.Fatalf("unknown status should be invalid")
	}
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		if len(orderTransitions[s]) != 0 {
			t.Errorf("%s should have no outgoing transitions", s)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	if !PaymentStatusPending.CanTransitionTo(PaymentStatusPaid) {
		t.Fatal("pending -> paid")
	}
	if !PaymentStatusFailed.CanTransitionTo(PaymentStatusPaid) {
		t.Fatal("failed -> paid retry")
	}
	if PaymentStatusRefunded.CanTransitionTo(PaymentStatusPaid) {
		t.Fatal("refunded is final")
	}
	if PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded) {
		t.Fatal("cannot refund unpaid")
	}
}

func TestStampStatusWriteOnce(t *testing.T) {
	var o Order
	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !o.StampStatus(OrderStatusPreparing, first) {
		t.Fatal("first stamp should write")
	}
	if o.StampStatus(OrderStatusPreparing, first.Add(time.Hour)) {
		t.Fatal("second stamp should not write")
	}
	if !o.PreparingAt.Equal(first) {
		t.Fatalf("preparing_at overwritten: %v", o.PreparingAt)
	}
	if o.StampStatus(OrderStatusPendingPayment, first) {
		t.Fatal("pending_payment has no timestamp")
	}
}

func TestOrderReconciles(t *testing.T) {
	o := Order{ItemPrice: 500000, ShippingFee: 30000, PlatformFee: 25000, TotalAmount: 555000}
	if !o.Reconciles() {
		t.Fatal("expected reconcile")
	}
	o.TotalAmount = 1
	if o.Reconciles() {
		t.Fatal("expected mismatch")
	}
}
