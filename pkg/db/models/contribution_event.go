package models

import "time"

// ContributionEvent records a single donation of quantity units of an item.
// Rows are append-only in intent, but redistribution rewrites quantity in
// place so that the table stays the materialized view of current stock.
type ContributionEvent struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GuildID   int64     `gorm:"column:guild_id;not null;index:idx_contributions_item_key,priority:1" json:"guild_id"`
	ActorID   int64     `gorm:"column:actor_id;not null" json:"actor_id"`
	Category  string    `gorm:"column:category;not null;index:idx_contributions_item_key,priority:2" json:"category"`
	ItemName  string    `gorm:"column:item_name;not null;index:idx_contributions_item_key,priority:3" json:"item_name"`
	Quantity  int64     `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ContributionEvent) TableName() string {
	return "contribution_events"
}
