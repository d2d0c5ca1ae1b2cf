package model

import "time"

const (
	EntityOrder        = "order"
	EntityOrderPayment = "order_payment"
	EntitySwap         = "swap"
)

// StatusEvent is the append-only audit trail of lifecycle transitions.
type StatusEvent struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	EntityType string    `gorm:"column:entity_type;size:32;index:idx_status_events_entity;not null"`
	EntityID   uint64    `gorm:"column:entity_id;index:idx_status_events_entity;not null"`
	FromStatus string    `gorm:"column:from_status;size:32"`
	ToStatus   string    `gorm:"column:to_status;size:32;not null"`
	ActorUID   string    `gorm:"column:actor_uid;size:128"`
	ActorRole  string    `gorm:"column:actor_role;size:16"`
	Note       string    `gorm:"column:note;type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (StatusEvent) TableName() string {
	return "status_events"
}
