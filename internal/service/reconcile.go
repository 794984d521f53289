package service

import (
	"context"
	"errors"
	"log"

	"beathaus/internal/models"
	"beathaus/pkg/daraja"

	"github.com/shopspring/decimal"
)

// ErrAttemptNotFound is returned for unknown checkout ids and for attempts
// owned by another payer; the two cases are deliberately indistinguishable.
var ErrAttemptNotFound = errors.New("payment attempt not found")

const successResultCode = "0"

// Outcome is a provider-reported result for one checkout, extracted either
// from the webhook envelope or from a status query response.
type Outcome struct {
	CheckoutRequestID string
	ResultCode        string
	ResultDesc        string
	ReceiptNumber     string
	PaidAmount        *decimal.Decimal
	PhoneNumber       string
}

type StatusResult struct {
	Status        string
	ReceiptNumber string
	ResultDesc    string
}

// ReconcileService owns every transition out of PENDING. The webhook path and
// the status-query path both funnel through Settle, so duplicate deliveries
// and webhook/query races resolve to exactly one terminal transition and at
// most one business-effect application.
type ReconcileService struct {
	attempts AttemptStore
	gateway  StkGateway
	effects  *EffectApplier
	audit    AuditStore
}

func NewReconcileService(attempts AttemptStore, gateway StkGateway, effects *EffectApplier, audit AuditStore) *ReconcileService {
	return &ReconcileService{attempts: attempts, gateway: gateway, effects: effects, audit: audit}
}

// Settle applies a provider outcome to the matching attempt. It never returns
// an error for reconciliation ambiguity: an unknown checkout id is logged and
// dropped, because redelivery cannot fix a genuinely missing record.
func (s *ReconcileService) Settle(o Outcome) {
	attempt, err := s.attempts.GetByCheckoutID(o.CheckoutRequestID)
	if err != nil {
		log.Printf("[RECONCILE] no attempt for checkout_request_id=%s result_code=%s", o.CheckoutRequestID, o.ResultCode)
		return
	}
	if attempt.Terminal() {
		log.Printf("[RECONCILE] duplicate delivery for checkout_request_id=%s status=%s", o.CheckoutRequestID, attempt.Status)
		return
	}
	if o.ResultCode == successResultCode {
		s.settleSuccess(attempt, o)
		return
	}
	won, err := s.attempts.MarkFailed(o.CheckoutRequestID, o.ResultCode, o.ResultDesc)
	if err != nil {
		log.Printf("[RECONCILE] mark failed error checkout_request_id=%s: %v", o.CheckoutRequestID, err)
		return
	}
	if won {
		log.Printf("[RECONCILE] attempt %d FAILED code=%s desc=%q", attempt.ID, o.ResultCode, o.ResultDesc)
	}
}

func (s *ReconcileService) settleSuccess(attempt *models.PaymentAttempt, o Outcome) {
	won, err := s.attempts.MarkCompleted(o.CheckoutRequestID, o.ResultCode, o.ResultDesc, o.ReceiptNumber, o.PaidAmount)
	if err != nil {
		log.Printf("[RECONCILE] mark completed error checkout_request_id=%s: %v", o.CheckoutRequestID, err)
		return
	}
	if !won {
		// the other reconciliation path got here first
		log.Printf("[RECONCILE] lost transition race for checkout_request_id=%s", o.CheckoutRequestID)
		return
	}
	log.Printf("[RECONCILE] attempt %d COMPLETED receipt=%s", attempt.ID, o.ReceiptNumber)
	if s.audit != nil {
		_ = s.audit.Create(&models.AuditLog{
			UserID:     attempt.PayerID,
			Action:     "mpesa_payment_completed",
			Resource:   "payment_attempt",
			ResourceID: o.CheckoutRequestID,
		})
	}
	// Re-read so the applier sees the terminal fields (receipt, result code).
	updated, err := s.attempts.GetByCheckoutID(o.CheckoutRequestID)
	if err != nil {
		updated = attempt
	}
	if err := s.effects.Apply(updated); err != nil {
		// Payment stays COMPLETED; the grant gap is an internal consistency
		// problem fixed out of band, not a payment failure.
		log.Printf("[RECONCILE] effect application failed attempt=%d: %v", updated.ID, err)
	}
}

// QueryStatus returns the current state of an attempt for its payer. While
// the attempt is pending it asks the provider and reconciles the answer the
// same way the webhook would; an unreachable or still-processing provider
// leaves the attempt pending, which is a normal retriable state.
func (s *ReconcileService) QueryStatus(ctx context.Context, checkoutRequestID string, requesterID *uint) (*StatusResult, error) {
	attempt, err := s.attempts.GetByCheckoutID(checkoutRequestID)
	if err != nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.PayerID != nil {
		if requesterID == nil || *requesterID != *attempt.PayerID {
			return nil, ErrAttemptNotFound
		}
	}
	if attempt.Terminal() {
		return statusOf(attempt), nil
	}
	resp, err := s.gateway.QueryStatus(ctx, checkoutRequestID)
	if err != nil {
		if !errors.Is(err, daraja.ErrStillProcessing) {
			log.Printf("[RECONCILE] provider query failed checkout_request_id=%s: %v", checkoutRequestID, err)
		}
		return statusOf(attempt), nil
	}
	s.Settle(Outcome{
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        resp.ResultCode,
		ResultDesc:        resp.ResultDesc,
	})
	updated, err := s.attempts.GetByCheckoutID(checkoutRequestID)
	if err != nil {
		return statusOf(attempt), nil
	}
	return statusOf(updated), nil
}

func statusOf(a *models.PaymentAttempt) *StatusResult {
	return &StatusResult{
		Status:        a.Status,
		ReceiptNumber: a.ReceiptNumber,
		ResultDesc:    a.ResultDesc,
	}
}
