package events

import (
	"time"

	"github.com/HydrikMasqued/quartermaster/pkg/enums"
)

// AuditEvent is the unified read model over both event tables. Delta carries
// the contribution quantity, or new-old for an override. Old/NewQuantity,
// Reason and Notes are only present on quantity changes.
type AuditEvent struct {
	Kind          enums.EventKind `gorm:"column:kind" json:"kind"`
	EventID       int64           `gorm:"column:event_id" json:"event_id"`
	Category      string          `gorm:"column:category" json:"category"`
	ItemName      string          `gorm:"column:item_name" json:"item_name"`
	QuantityDelta int64           `gorm:"column:quantity_delta" json:"quantity_delta"`
	OldQuantity   *int64          `gorm:"column:old_quantity" json:"old_quantity,omitempty"`
	NewQuantity   *int64          `gorm:"column:new_quantity" json:"new_quantity,omitempty"`
	Reason        *string         `gorm:"column:reason" json:"reason,omitempty"`
	Notes         *string         `gorm:"column:notes" json:"notes,omitempty"`
	OccurredAt    time.Time       `gorm:"column:occurred_at" json:"occurred_at"`
	ActorID       int64           `gorm:"column:actor_id" json:"actor_id"`
}

// AuditFilter narrows an audit query. Zero values mean no filtering.
type AuditFilter struct {
	ItemName string
	Category string
	Limit    int
}

// ItemTotal is one row of the per-guild stock summary.
type ItemTotal struct {
	ItemName string `gorm:"column:item_name" json:"item_name"`
	Category string `gorm:"column:category" json:"category"`
	Total    int64  `gorm:"column:total" json:"total"`
}
