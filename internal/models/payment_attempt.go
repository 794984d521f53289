package models

import (
	"time"

	"beathaus/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentAttempt records one STK push sent to a payer's phone. Rows are never
// deleted; the table doubles as the payment audit trail.
type PaymentAttempt struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	PayerID     *uint             `gorm:"index" json:"payer_id"` // nil for guest/system-initiated attempts
	Kind        string            `gorm:"size:30;not null;index" json:"kind"`
	ReferenceID string            `gorm:"size:64;not null;index" json:"reference_id"`
	Amount      decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method      string            `gorm:"size:20;not null;default:'MPESA_STK'" json:"method"`
	PhoneNumber string            `gorm:"size:15;not null" json:"phone_number"`

	// CheckoutRequestID is the Daraja correlation id joining the push request
	// to its callback and to status queries. Assigned once, never changed.
	CheckoutRequestID string `gorm:"size:64;uniqueIndex;not null" json:"checkout_request_id"`
	MerchantRequestID string `gorm:"size:64" json:"merchant_request_id"`

	Status        string           `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	ResultCode    *string          `gorm:"size:10" json:"result_code"`
	ResultDesc    string           `gorm:"size:255" json:"result_desc"`
	ReceiptNumber string           `gorm:"size:30" json:"receipt_number"`
	// PaidAmount is what the callback reported as transacted; kept for
	// reconciliation audit, never overrides Amount.
	PaidAmount *decimal.Decimal `gorm:"type:decimal(12,2)" json:"paid_amount"`

	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

func (p *PaymentAttempt) Terminal() bool {
	return domain.TerminalPaymentStatus(p.Status)
}
