package repository

import (
	"beathaus/internal/models"

	"gorm.io/gorm"
)

type BeatRepository struct {
	db *gorm.DB
}

func NewBeatRepository(db *gorm.DB) *BeatRepository {
	return &BeatRepository{db: db}
}

func (r *BeatRepository) GetByID(id uint) (*models.Beat, error) {
	var b models.Beat
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
