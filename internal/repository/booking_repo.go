package repository

import (
	"beathaus/internal/domain"
	"beathaus/internal/models"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(id uint) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Confirm transitions a pending booking to CONFIRMED. Conditional on the
// current status so a replayed effect application is a no-op.
func (r *BookingRepository) Confirm(id uint) (bool, error) {
	res := r.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, domain.BookingStatusPending).
		Update("status", domain.BookingStatusConfirmed)
	return res.RowsAffected > 0, res.Error
}
