package service

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"beathaus/internal/domain"
	"beathaus/internal/models"
)

var ErrEffectFailed = errors.New("business effect application failed")

// EffectApplier creates the downstream record a completed payment pays for.
// It is invoked only by the reconciliation paths and only on the transition
// into COMPLETED, so each handler runs at most once per attempt. A failure
// here never rolls back the payment: the money has moved, the gap is logged
// for manual remediation.
type EffectApplier struct {
	beats    BeatStore
	licenses LicenseStore
	bookings BookingStore
}

func NewEffectApplier(beats BeatStore, licenses LicenseStore, bookings BookingStore) *EffectApplier {
	return &EffectApplier{beats: beats, licenses: licenses, bookings: bookings}
}

func (a *EffectApplier) Apply(attempt *models.PaymentAttempt) error {
	switch attempt.Kind {
	case domain.PaymentKindBeatPurchase:
		return a.grantLicense(attempt)
	case domain.PaymentKindBooking:
		return a.confirmBooking(attempt)
	case domain.PaymentKindProject:
		// reserved kind, nothing to apply yet
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrEffectFailed, attempt.Kind)
	}
}

func (a *EffectApplier) grantLicense(attempt *models.PaymentAttempt) error {
	beatID, err := parseReferenceID(attempt.ReferenceID)
	if err != nil {
		return err
	}
	if _, err := a.beats.GetByID(beatID); err != nil {
		return fmt.Errorf("%w: beat %d: %v", ErrEffectFailed, beatID, err)
	}
	tier := domain.LicenseTierBasic
	if v, ok := attempt.Metadata["license_tier"].(string); ok && v != "" {
		tier = v
	}
	license := &models.BeatLicense{
		BeatID:           beatID,
		UserID:           attempt.PayerID,
		Tier:             tier,
		PricePaid:        attempt.Amount,
		PaymentAttemptID: attempt.ID,
	}
	if err := a.licenses.Create(license); err != nil {
		return fmt.Errorf("%w: create license: %v", ErrEffectFailed, err)
	}
	log.Printf("[EFFECT] license granted beat=%d attempt=%d tier=%s", beatID, attempt.ID, tier)
	return nil
}

func (a *EffectApplier) confirmBooking(attempt *models.PaymentAttempt) error {
	bookingID, err := parseReferenceID(attempt.ReferenceID)
	if err != nil {
		return err
	}
	confirmed, err := a.bookings.Confirm(bookingID)
	if err != nil {
		return fmt.Errorf("%w: confirm booking %d: %v", ErrEffectFailed, bookingID, err)
	}
	if !confirmed {
		// already confirmed or not pending; verify the booking exists at all
		if _, err := a.bookings.GetByID(bookingID); err != nil {
			return fmt.Errorf("%w: booking %d: %v", ErrEffectFailed, bookingID, err)
		}
		log.Printf("[EFFECT] booking %d already past PENDING, attempt=%d", bookingID, attempt.ID)
		return nil
	}
	log.Printf("[EFFECT] booking confirmed booking=%d attempt=%d", bookingID, attempt.ID)
	return nil
}

// parseReferenceID extracts the numeric record id from an opaque reference
// like "beat-42", "booking-7" or plain "42".
func parseReferenceID(ref string) (uint, error) {
	digits := ref
	if i := strings.LastIndexByte(ref, '-'); i >= 0 {
		digits = ref[i+1:]
	}
	id, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad reference_id %q", ErrEffectFailed, ref)
	}
	return uint(id), nil
}
