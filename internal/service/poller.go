package service

import (
	"context"
	"time"

	"beathaus/internal/models"
)

// Poller watches an attempt until it leaves PENDING or a bounded wait
// expires. It only reads; a wait that runs out is a UX decision for the
// caller, never a state transition — the attempt may still resolve later via
// the webhook.
type Poller struct {
	attempts AttemptStore
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(attempts AttemptStore, interval, timeout time.Duration) *Poller {
	return &Poller{attempts: attempts, interval: interval, timeout: timeout}
}

// WaitForOutcome polls until the attempt is terminal, the deadline passes, or
// ctx is cancelled. Returns the last observed attempt (nil if never readable)
// and whether the wait timed out while still pending.
func (p *Poller) WaitForOutcome(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, bool) {
	deadline := time.Now().Add(p.timeout)
	var last *models.PaymentAttempt
	for {
		a, err := p.attempts.GetByCheckoutID(checkoutRequestID)
		if err == nil {
			last = a
			if a.Terminal() {
				return a, false
			}
		}
		if time.Now().After(deadline) {
			return last, true
		}
		select {
		case <-ctx.Done():
			return last, true
		case <-time.After(p.interval):
		}
	}
}
