package service

import (
	"context"

	"beathaus/internal/models"
	"beathaus/pkg/daraja"

	"github.com/shopspring/decimal"
)

// AttemptStore is the persistence surface for payment attempts. MarkCompleted
// and MarkFailed are conditional transitions out of PENDING; the bool result
// reports whether this caller won the transition.
type AttemptStore interface {
	Create(a *models.PaymentAttempt) error
	GetByID(id uint) (*models.PaymentAttempt, error)
	GetByCheckoutID(checkoutRequestID string) (*models.PaymentAttempt, error)
	MarkCompleted(checkoutRequestID, resultCode, resultDesc, receipt string, paidAmount *decimal.Decimal) (bool, error)
	MarkFailed(checkoutRequestID, resultCode, resultDesc string) (bool, error)
}

type LicenseStore interface {
	Create(l *models.BeatLicense) error
}

type BeatStore interface {
	GetByID(id uint) (*models.Beat, error)
}

type BookingStore interface {
	GetByID(id uint) (*models.Booking, error)
	Confirm(id uint) (bool, error)
}

type AuditStore interface {
	Create(entry *models.AuditLog) error
}

// StkGateway is the outbound provider surface implemented by daraja.Client.
type StkGateway interface {
	STKPush(ctx context.Context, req daraja.STKPushRequest) (*daraja.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*daraja.QueryResponse, error)
}
