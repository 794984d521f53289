package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BeatLicense is the purchase grant created when a beat payment completes.
// The unique index on PaymentAttemptID is a storage-level wall against the
// grant ever being written twice for one payment.
type BeatLicense struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	BeatID           uint            `gorm:"not null;index" json:"beat_id"`
	UserID           *uint           `gorm:"index" json:"user_id"`
	Tier             string          `gorm:"size:20;not null" json:"tier"` // BASIC, PREMIUM, EXCLUSIVE
	PricePaid        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_paid"`
	PaymentAttemptID uint            `gorm:"uniqueIndex;not null" json:"payment_attempt_id"`
	CreatedAt        time.Time       `json:"created_at"`

	Beat Beat `gorm:"foreignKey:BeatID" json:"-"`
}

func (BeatLicense) TableName() string {
	return "beat_licenses"
}
