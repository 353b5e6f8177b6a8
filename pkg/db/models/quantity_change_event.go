package models

import "time"

// QuantityChangeEvent is an absolute administrative override of the stock for
// one item key. OldQuantity is a caller-supplied snapshot kept for the audit
// trail only; replay never reads it.
type QuantityChangeEvent struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GuildID     int64     `gorm:"column:guild_id;not null;index:idx_quantity_changes_item_key,priority:1" json:"guild_id"`
	ItemName    string    `gorm:"column:item_name;not null;index:idx_quantity_changes_item_key,priority:3" json:"item_name"`
	Category    string    `gorm:"column:category;not null;index:idx_quantity_changes_item_key,priority:2" json:"category"`
	OldQuantity int64     `gorm:"column:old_quantity;not null" json:"old_quantity"`
	NewQuantity int64     `gorm:"column:new_quantity;not null" json:"new_quantity"`
	Reason      string    `gorm:"column:reason;not null" json:"reason"`
	Notes       *string   `gorm:"column:notes" json:"notes,omitempty"`
	ActorID     int64     `gorm:"column:actor_id;not null" json:"actor_id"`
	ChangedAt   time.Time `gorm:"column:changed_at;autoCreateTime" json:"changed_at"`
}

func (QuantityChangeEvent) TableName() string {
	return "quantity_change_events"
}
