package repository

import (
	"beathaus/internal/domain"
	"beathaus/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentAttemptRepository struct {
	db *gorm.DB
}

func NewPaymentAttemptRepository(db *gorm.DB) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{db: db}
}

func (r *PaymentAttemptRepository) Create(a *models.PaymentAttempt) error {
	return r.db.Create(a).Error
}

func (r *PaymentAttemptRepository) GetByID(id uint) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PaymentAttemptRepository) GetByCheckoutID(checkoutRequestID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkCompleted moves a pending attempt to COMPLETED. The WHERE clause on the
// current status makes the transition a compare-and-set: when the webhook and
// a status query race, exactly one caller sees reported=true and owns the
// follow-up business effects.
func (r *PaymentAttemptRepository) MarkCompleted(checkoutRequestID, resultCode, resultDesc, receipt string, paidAmount *decimal.Decimal) (bool, error) {
	updates := map[string]interface{}{
		"status":         domain.PaymentStatusCompleted,
		"result_code":    resultCode,
		"result_desc":    resultDesc,
		"receipt_number": receipt,
	}
	if paidAmount != nil {
		updates["paid_amount"] = *paidAmount
	}
	res := r.db.Model(&models.PaymentAttempt{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, domain.PaymentStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// MarkFailed moves a pending attempt to FAILED under the same compare-and-set
// discipline as MarkCompleted.
func (r *PaymentAttemptRepository) MarkFailed(checkoutRequestID, resultCode, resultDesc string) (bool, error) {
	res := r.db.Model(&models.PaymentAttempt{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, domain.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":      domain.PaymentStatusFailed,
			"result_code": resultCode,
			"result_desc": resultDesc,
		})
	return res.RowsAffected > 0, res.Error
}
