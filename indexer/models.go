package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord is one committed ledger event.
type EventRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Height     uint64    `gorm:"index"`
	TxHash     string    `gorm:"size:64;index"`
	Type       string    `gorm:"size:64;index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// ClaimRecord is the denormalised form of a claim.token.claimed event used by
// exports.
type ClaimRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Height      uint64    `gorm:"index"`
	TxHash      string    `gorm:"size:64;uniqueIndex"`
	Claimant    string    `gorm:"size:128;index"`
	Destination string    `gorm:"size:128"`
	Mint        string    `gorm:"size:32"`
	Amount      uint64
	Scaled      string `gorm:"size:80"`
	RefundTo    string `gorm:"size:128"`
	CreatedAt   time.Time
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{}, &ClaimRecord{})
}
