package domain

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

const (
	PaymentKindBeatPurchase = "BEAT_PURCHASE"
	PaymentKindBooking      = "BOOKING"
	PaymentKindProject      = "PROJECT"
)

const PaymentMethodMpesaSTK = "MPESA_STK"

const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

const (
	LicenseTierBasic     = "BASIC"
	LicenseTierPremium   = "PREMIUM"
	LicenseTierExclusive = "EXCLUSIVE"
)

// ValidPaymentKind reports whether k is a known payment kind.
func ValidPaymentKind(k string) bool {
	switch k {
	case PaymentKindBeatPurchase, PaymentKindBooking, PaymentKindProject:
		return true
	}
	return false
}

// TerminalPaymentStatus reports whether s admits no further transitions.
func TerminalPaymentStatus(s string) bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}
