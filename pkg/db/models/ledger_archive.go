package models

import (
	"encoding/json"
	"time"
)

// LedgerArchive snapshots a guild's live contribution rows and audit trail
// into a JSON blob when an epoch is closed. The live rows are deleted in the
// same transaction, so the blob is the only surviving copy.
type LedgerArchive struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GuildID      int64           `gorm:"column:guild_id;not null;index" json:"guild_id"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Description  string          `gorm:"column:description" json:"description"`
	Notes        string          `gorm:"column:notes" json:"notes"`
	ArchivedData json.RawMessage `gorm:"column:archived_data;not null" json:"archived_data"`
	CreatedByID  int64           `gorm:"column:created_by_id;not null" json:"created_by_id"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LedgerArchive) TableName() string {
	return "ledger_archives"
}
