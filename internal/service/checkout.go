package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"beathaus/internal/domain"
	"beathaus/internal/models"
	"beathaus/pkg/daraja"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidKind           = errors.New("unknown payment kind")
	ErrProviderNotConfigured = errors.New("payment provider not configured")
	ErrProviderRejected      = errors.New("payment provider rejected the request")
	ErrProviderUnavailable   = errors.New("payment provider unavailable")
)

// ErrInvalidPhone is re-exported so handlers do not reach into pkg/daraja.
var ErrInvalidPhone = daraja.ErrInvalidPhone

type CheckoutInput struct {
	PayerID     *uint
	PhoneNumber string
	Amount      decimal.Decimal
	Kind        string
	ReferenceID string
	Metadata    map[string]interface{}
}

type CheckoutResult struct {
	PaymentID         uint
	CheckoutRequestID string
	MerchantRequestID string
}

// CheckoutService validates a charge request, fires the STK push and records
// the pending attempt.
type CheckoutService struct {
	attempts AttemptStore
	gateway  StkGateway
}

func NewCheckoutService(attempts AttemptStore, gateway StkGateway) *CheckoutService {
	return &CheckoutService{attempts: attempts, gateway: gateway}
}

// Initiate runs the request side of a payment: validate, normalize, push,
// persist. The attempt record is written only after the provider accepts the
// push, keyed by the provider's checkout request id. If persistence then
// fails the error is logged but the call still succeeds: the payer's phone is
// already prompting and failing the call would strand them.
func (s *CheckoutService) Initiate(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !domain.ValidPaymentKind(in.Kind) {
		return nil, ErrInvalidKind
	}
	phone, err := daraja.NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	accountRef := in.ReferenceID
	if accountRef == "" {
		accountRef = "bh-" + uuid.New().String()[:8]
	}
	resp, err := s.gateway.STKPush(ctx, daraja.STKPushRequest{
		Phone:       phone,
		Amount:      in.Amount,
		AccountRef:  accountRef,
		Description: fmt.Sprintf("beathaus %s", in.Kind),
	})
	if err != nil {
		switch {
		case errors.Is(err, daraja.ErrNotConfigured):
			return nil, ErrProviderNotConfigured
		case errors.Is(err, daraja.ErrRejected):
			return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
		default:
			log.Printf("[CHECKOUT] stk push error: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	attempt := &models.PaymentAttempt{
		PayerID:           in.PayerID,
		Kind:              in.Kind,
		ReferenceID:       in.ReferenceID,
		Amount:            in.Amount,
		Method:            domain.PaymentMethodMpesaSTK,
		PhoneNumber:       phone,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Status:            domain.PaymentStatusPending,
		Metadata:          datatypes.JSONMap(in.Metadata),
	}
	if err := s.attempts.Create(attempt); err != nil {
		// The prompt is already on the payer's phone; a missing row is
		// recoverable via the callback log, a blocked payer is not.
		log.Printf("[CHECKOUT] failed to persist attempt checkout_request_id=%s: %v", resp.CheckoutRequestID, err)
	}
	log.Printf("[CHECKOUT] initiated kind=%s reference_id=%s checkout_request_id=%s", in.Kind, in.ReferenceID, resp.CheckoutRequestID)
	return &CheckoutResult{
		PaymentID:         attempt.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
	}, nil
}
