package service

import (
	"context"
	"errors"
	"sync"

	"beathaus/internal/domain"
	"beathaus/internal/models"
	"beathaus/pkg/daraja"

	"github.com/shopspring/decimal"
)

// In-memory stores mirroring the repository semantics, including the
// compare-and-set terminal transition and the unique license-per-attempt
// constraint.

type fakeAttemptStore struct {
	mu        sync.Mutex
	byCheckout map[string]*models.PaymentAttempt
	nextID    uint
	createErr error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{byCheckout: make(map[string]*models.PaymentAttempt)}
}

func (s *fakeAttemptStore) Create(a *models.PaymentAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byCheckout[a.CheckoutRequestID]; ok {
		return errors.New("duplicate checkout_request_id")
	}
	s.nextID++
	a.ID = s.nextID
	cp := *a
	s.byCheckout[a.CheckoutRequestID] = &cp
	return nil
}

func (s *fakeAttemptStore) GetByID(id uint) (*models.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byCheckout {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, errors.New("record not found")
}

func (s *fakeAttemptStore) GetByCheckoutID(checkoutRequestID string) (*models.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byCheckout[checkoutRequestID]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAttemptStore) MarkCompleted(checkoutRequestID, resultCode, resultDesc, receipt string, paidAmount *decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byCheckout[checkoutRequestID]
	if !ok || a.Status != domain.PaymentStatusPending {
		return false, nil
	}
	a.Status = domain.PaymentStatusCompleted
	a.ResultCode = &resultCode
	a.ResultDesc = resultDesc
	a.ReceiptNumber = receipt
	a.PaidAmount = paidAmount
	return true, nil
}

func (s *fakeAttemptStore) MarkFailed(checkoutRequestID, resultCode, resultDesc string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byCheckout[checkoutRequestID]
	if !ok || a.Status != domain.PaymentStatusPending {
		return false, nil
	}
	a.Status = domain.PaymentStatusFailed
	a.ResultCode = &resultCode
	a.ResultDesc = resultDesc
	return true, nil
}

func (s *fakeAttemptStore) seed(a *models.PaymentAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.byCheckout[a.CheckoutRequestID] = a
}

type fakeBeatStore struct {
	beats map[uint]*models.Beat
}

func (s *fakeBeatStore) GetByID(id uint) (*models.Beat, error) {
	b, ok := s.beats[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return b, nil
}

type fakeLicenseStore struct {
	mu       sync.Mutex
	licenses []*models.BeatLicense
}

func (s *fakeLicenseStore) Create(l *models.BeatLicense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.licenses {
		if existing.PaymentAttemptID == l.PaymentAttemptID {
			return errors.New("duplicate payment_attempt_id")
		}
	}
	l.ID = uint(len(s.licenses) + 1)
	s.licenses = append(s.licenses, l)
	return nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[uint]*models.Booking
}

func (s *fakeBookingStore) GetByID(id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return b, nil
}

func (s *fakeBookingStore) Confirm(id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != domain.BookingStatusPending {
		return false, nil
	}
	b.Status = domain.BookingStatusConfirmed
	return true, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (s *fakeAuditStore) Create(entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

type fakeGateway struct {
	pushResp  *daraja.STKPushResponse
	pushErr   error
	pushes    []daraja.STKPushRequest
	queryResp *daraja.QueryResponse
	queryErr  error
	queries   int
}

func (g *fakeGateway) STKPush(_ context.Context, req daraja.STKPushRequest) (*daraja.STKPushResponse, error) {
	g.pushes = append(g.pushes, req)
	if g.pushErr != nil {
		return nil, g.pushErr
	}
	return g.pushResp, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, _ string) (*daraja.QueryResponse, error) {
	g.queries++
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	return g.queryResp, nil
}
