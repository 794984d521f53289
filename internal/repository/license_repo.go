package repository

import (
	"beathaus/internal/models"

	"gorm.io/gorm"
)

type LicenseRepository struct {
	db *gorm.DB
}

func NewLicenseRepository(db *gorm.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

func (r *LicenseRepository) Create(l *models.BeatLicense) error {
	return r.db.Create(l).Error
}

func (r *LicenseRepository) GetByPaymentAttemptID(paymentAttemptID uint) (*models.BeatLicense, error) {
	var l models.BeatLicense
	err := r.db.Where("payment_attempt_id = ?", paymentAttemptID).First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}
