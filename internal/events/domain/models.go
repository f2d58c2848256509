package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderPaid          EventType = "order.paid"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderCompleted     EventType = "order.completed"
	EventOrderRefunded      EventType = "order.refunded"
	EventEntitlementGranted EventType = "entitlement.granted"
)

// OrderEvent is an outbox row describing one committed order transition.
type OrderEvent struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrderID      snowflake.ID      `gorm:"not null;index" json:"order_id"`
	OrderNo      string            `gorm:"type:varchar(32);not null" json:"order_no"`
	Type         EventType         `gorm:"type:varchar(32);not null" json:"type"`
	FromStatus   string            `gorm:"type:varchar(32)" json:"from_status,omitempty"`
	ToStatus     string            `gorm:"type:varchar(32);not null" json:"to_status"`
	ActorType    string            `gorm:"type:varchar(32);not null" json:"actor_type"`
	ActorID      *string           `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	Payload      datatypes.JSONMap `gorm:"type:json" json:"payload"`
	Attempts     int               `gorm:"not null" json:"attempts"`
	LastError    *string           `gorm:"type:varchar(500)" json:"last_error,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	DispatchedAt *time.Time        `gorm:"index" json:"dispatched_at,omitempty"`
}

// TableName sets the database table name.
func (OrderEvent) TableName() string { return "order_events" }
