package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Booking struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Room      string          `gorm:"size:64;not null" json:"room"`
	StartAt   time.Time       `gorm:"not null;index" json:"start_at"`
	EndAt     time.Time       `gorm:"not null" json:"end_at"`
	PriceKES  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_kes"`
	Status    string          `gorm:"size:20;not null;index" json:"status"` // PENDING, CONFIRMED, CANCELLED
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Booking) TableName() string {
	return "bookings"
}
