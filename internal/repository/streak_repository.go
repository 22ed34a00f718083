package repository

import (
	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StreakRepository struct {
	DB *gorm.DB
}

func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: db}
}

func (r *StreakRepository) WithTx(tx *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: tx}
}

func (r *StreakRepository) FindByUserID(userID uint) (*model.Streak, error) {
	var streak model.Streak
	if err := r.DB.Where("user_id = ?", userID).First(&streak).Error; err != nil {
		return nil, err
	}
	return &streak, nil
}

func (r *StreakRepository) FindForUpdate(userID uint) (*model.Streak, error) {
	var streak model.Streak
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&streak).Error
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// Save inserts the streak on first activity and updates it afterwards.
func (r *StreakRepository) Save(streak *model.Streak) error {
	return r.DB.Save(streak).Error
}
