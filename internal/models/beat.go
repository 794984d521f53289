package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Beat struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ProducerID uint            `gorm:"not null;index" json:"producer_id"`
	Title      string          `gorm:"size:255;not null" json:"title"`
	PriceKES   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_kes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Beat) TableName() string {
	return "beats"
}
