package model

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusShipping       OrderStatus = "shipping"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// fulfillment order; cancelled and refunded are side branches.
var orderStages = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusPreparing,
	OrderStatusShipping,
	OrderStatusDelivered,
	OrderStatusCompleted,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPaid:           {OrderStatusPreparing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPreparing:      {OrderStatusShipping, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipping:       {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:      {OrderStatusCompleted, OrderStatusRefunded},
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0 || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Rank is the position on the fulfillment path, or -1 for branch states.
func (s OrderStatus) Rank() int {
	for i, st := range orderStages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range orderTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Cancellable() bool {
	return s.CanTransitionTo(OrderStatusCancelled)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// A failed attempt may be retried; refunded is final.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid, PaymentStatusPending},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, st := range paymentTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}
