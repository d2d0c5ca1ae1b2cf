package events

import (
	"context"
	"time"
)

const (
	TypeOrderCreated        = "order.created"
	TypeOrderStatusChanged  = "order.status_changed"
	TypeOrderPaymentChanged = "order.payment_changed"
	TypeSwapProposed        = "swap.proposed"
	TypeSwapStatusChanged   = "swap.status_changed"
	TypeSwapShippingUpdated = "swap.shipping_updated"
)

// Event is the payload published after a lifecycle transition commits.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	EntityID   uint64    `json:"entity_id"`
	Code       string    `json:"code"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	ActorUID   string    `json:"actor_uid,omitempty"`
	ActorRole  string    `json:"actor_role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
