package indexer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"refchain/core/types"
)

// EventRecord is one committed event persisted for history queries.
type EventRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence    uint64    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"size:64;index"`
	Program     string    `gorm:"size:96;index"`
	Participant string    `gorm:"size:96;index"`
	Attributes  string    `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName pins the table name independent of the struct name.
func (EventRecord) TableName() string { return "referral_events" }

// Event decodes the stored attributes back into a chain event.
func (r EventRecord) Event() (*types.Event, error) {
	attrs := map[string]string{}
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
			return nil, err
		}
	}
	return &types.Event{Type: r.Type, Attributes: attrs}, nil
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{})
}
