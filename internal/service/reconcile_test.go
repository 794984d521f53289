package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"beathaus/internal/domain"
	"beathaus/internal/models"
	"beathaus/pkg/daraja"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	attempts *fakeAttemptStore
	beats    *fakeBeatStore
	licenses *fakeLicenseStore
	bookings *fakeBookingStore
	audit    *fakeAuditStore
	gateway  *fakeGateway
	svc      *ReconcileService
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		attempts: newFakeAttemptStore(),
		beats:    &fakeBeatStore{beats: map[uint]*models.Beat{42: {ID: 42, Title: "Nairobi Nights", PriceKES: decimal.NewFromInt(1500)}}},
		licenses: &fakeLicenseStore{},
		bookings: &fakeBookingStore{bookings: map[uint]*models.Booking{7: {ID: 7, UserID: 7, Status: domain.BookingStatusPending}}},
		audit:    &fakeAuditStore{},
		gateway:  &fakeGateway{},
	}
	effects := NewEffectApplier(f.beats, f.licenses, f.bookings)
	f.svc = NewReconcileService(f.attempts, f.gateway, effects, f.audit)
	return f
}

func (f *reconcileFixture) seedBeatAttempt() *models.PaymentAttempt {
	payer := uint(7)
	a := &models.PaymentAttempt{
		PayerID:           &payer,
		Kind:              domain.PaymentKindBeatPurchase,
		ReferenceID:       "beat-42",
		Amount:            decimal.NewFromInt(1500),
		Method:            domain.PaymentMethodMpesaSTK,
		PhoneNumber:       "254712345678",
		CheckoutRequestID: "ws_CO_123",
		Status:            domain.PaymentStatusPending,
		Metadata:          map[string]interface{}{"license_tier": domain.LicenseTierBasic},
	}
	f.attempts.seed(a)
	return a
}

func successOutcome() Outcome {
	paid := decimal.NewFromInt(1500)
	return Outcome{
		CheckoutRequestID: "ws_CO_123",
		ResultCode:        "0",
		ResultDesc:        "The service request is processed successfully.",
		ReceiptNumber:     "QAX123",
		PaidAmount:        &paid,
		PhoneNumber:       "254712345678",
	}
}

func TestSettle_SuccessGrantsLicenseExactlyOnce(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()

	f.svc.Settle(successOutcome())

	attempt, err := f.attempts.GetByCheckoutID("ws_CO_123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, attempt.Status)
	assert.Equal(t, "QAX123", attempt.ReceiptNumber)
	require.NotNil(t, attempt.ResultCode)
	assert.Equal(t, "0", *attempt.ResultCode)
	require.Len(t, f.licenses.licenses, 1)
	assert.Equal(t, uint(42), f.licenses.licenses[0].BeatID)
	assert.True(t, f.licenses.licenses[0].PricePaid.Equal(decimal.NewFromInt(1500)))
	assert.Len(t, f.audit.entries, 1)

	// duplicate webhook delivery: nothing changes, no second grant
	f.svc.Settle(successOutcome())
	again, _ := f.attempts.GetByCheckoutID("ws_CO_123")
	assert.Equal(t, domain.PaymentStatusCompleted, again.Status)
	assert.Len(t, f.licenses.licenses, 1)
	assert.Len(t, f.audit.entries, 1)
}

func TestSettle_CallbackAmountDoesNotOverrideAuthorized(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()

	o := successOutcome()
	reported := decimal.NewFromInt(1499)
	o.PaidAmount = &reported
	f.svc.Settle(o)

	attempt, _ := f.attempts.GetByCheckoutID("ws_CO_123")
	assert.True(t, attempt.Amount.Equal(decimal.NewFromInt(1500)), "authorized amount is immutable")
	require.NotNil(t, attempt.PaidAmount)
	assert.True(t, attempt.PaidAmount.Equal(reported), "reported amount kept for audit")
}

func TestSettle_FailureCode(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()

	f.svc.Settle(Outcome{
		CheckoutRequestID: "ws_CO_123",
		ResultCode:        "1032",
		ResultDesc:        "Request cancelled by user",
	})

	attempt, _ := f.attempts.GetByCheckoutID("ws_CO_123")
	assert.Equal(t, domain.PaymentStatusFailed, attempt.Status)
	assert.Equal(t, "Request cancelled by user", attempt.ResultDesc)
	assert.Empty(t, f.licenses.licenses)
	assert.Empty(t, f.audit.entries)

	// status query afterwards reports the stored outcome without a provider call
	payer := uint(7)
	res, err := f.svc.QueryStatus(context.Background(), "ws_CO_123", &payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, res.Status)
	assert.Equal(t, "Request cancelled by user", res.ResultDesc)
	assert.Zero(t, f.gateway.queries)
}

func TestSettle_UnknownCheckoutID(t *testing.T) {
	f := newReconcileFixture()
	// must not panic or create anything
	f.svc.Settle(successOutcome())
	assert.Empty(t, f.licenses.licenses)
}

func TestSettle_TerminalStateIsMonotonic(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()

	f.svc.Settle(successOutcome())
	f.svc.Settle(Outcome{CheckoutRequestID: "ws_CO_123", ResultCode: "1032", ResultDesc: "Request cancelled by user"})

	attempt, _ := f.attempts.GetByCheckoutID("ws_CO_123")
	assert.Equal(t, domain.PaymentStatusCompleted, attempt.Status, "terminal state never flips")
	assert.Equal(t, "QAX123", attempt.ReceiptNumber)
}

func TestSettle_EffectFailureKeepsPaymentCompleted(t *testing.T) {
	f := newReconcileFixture()
	a := f.seedBeatAttempt()
	a.ReferenceID = "beat-999" // no such beat

	f.svc.Settle(successOutcome())

	attempt, _ := f.attempts.GetByCheckoutID("ws_CO_123")
	assert.Equal(t, domain.PaymentStatusCompleted, attempt.Status, "money moved; grant gap is remediated out of band")
	assert.Empty(t, f.licenses.licenses)
}

func TestSettle_ConcurrentDeliveries(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Settle(successOutcome())
		}()
	}
	wg.Wait()

	attempt, _ := f.attempts.GetByCheckoutID("ws_CO_123")
	assert.Equal(t, domain.PaymentStatusCompleted, attempt.Status)
	assert.Len(t, f.licenses.licenses, 1, "exactly one grant regardless of delivery interleaving")
	assert.Len(t, f.audit.entries, 1)
}

func TestQueryStatus_OwnershipHidden(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt() // owned by payer 7

	stranger := uint(8)
	_, err := f.svc.QueryStatus(context.Background(), "ws_CO_123", &stranger)
	assert.ErrorIs(t, err, ErrAttemptNotFound, "not-yours must be indistinguishable from not-found")

	_, err = f.svc.QueryStatus(context.Background(), "ws_CO_missing", &stranger)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestQueryStatus_GuestAttemptReadable(t *testing.T) {
	f := newReconcileFixture()
	a := f.seedBeatAttempt()
	a.PayerID = nil

	payer := uint(8)
	f.gateway.queryErr = daraja.ErrStillProcessing
	res, err := f.svc.QueryStatus(context.Background(), "ws_CO_123", &payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, res.Status)
}

func TestQueryStatus_PendingWhileProviderProcessing(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()
	f.gateway.queryErr = daraja.ErrStillProcessing

	payer := uint(7)
	res, err := f.svc.QueryStatus(context.Background(), "ws_CO_123", &payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, res.Status, "still-processing is a normal retriable state")
	assert.Equal(t, 1, f.gateway.queries)
}

func TestQueryStatus_PendingWhileProviderUnreachable(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()
	f.gateway.queryErr = fmt.Errorf("daraja: connection refused")

	payer := uint(7)
	res, err := f.svc.QueryStatus(context.Background(), "ws_CO_123", &payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, res.Status)
}

func TestQueryStatus_ReconcilesProviderResult(t *testing.T) {
	f := newReconcileFixture()
	f.seedBeatAttempt()
	f.gateway.queryResp = &daraja.QueryResponse{
		ResponseCode: "0",
		ResultCode:   "0",
		ResultDesc:   "The service request is processed successfully.",
	}

	payer := uint(7)
	res, err := f.svc.QueryStatus(context.Background(), "ws_CO_123", &payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, res.Status)
	assert.Len(t, f.licenses.licenses, 1, "query path applies effects under the same once-only guard")

	// a webhook for the same checkout arriving later is a duplicate
	f.svc.Settle(successOutcome())
	assert.Len(t, f.licenses.licenses, 1)
}

func TestQueryStatus_BookingConfirmed(t *testing.T) {
	f := newReconcileFixture()
	payer := uint(7)
	f.attempts.seed(&models.PaymentAttempt{
		PayerID:           &payer,
		Kind:              domain.PaymentKindBooking,
		ReferenceID:       "booking-7",
		Amount:            decimal.NewFromInt(5000),
		CheckoutRequestID: "ws_CO_456",
		Status:            domain.PaymentStatusPending,
	})
	f.gateway.queryResp = &daraja.QueryResponse{ResultCode: "0", ResultDesc: "Success"}

	res, err := f.svc.QueryStatus(context.Background(), "ws_CO_456", &payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, res.Status)
	booking, _ := f.bookings.GetByID(7)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
}
