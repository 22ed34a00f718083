package repository

import (
	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// Create appends to the attempt log. Attempts are never updated.
func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

// HasPassedBefore reports whether the user passed the exercise in any attempt other than excludeID.
func (r *AttemptRepository) HasPassedBefore(userID, exerciseID uint, excludeID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND exercise_id = ? AND passed = ?", userID, exerciseID, true).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *AttemptRepository) CountDistinctPassed(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND passed = ?", userID, true).
		Distinct("exercise_id").
		Count(&count).Error
	return count, err
}

// FindLatestPassed returns gorm.ErrRecordNotFound when the user never passed anything.
// Attempts with the same created_at are ordered by their time-ordered id.
func (r *AttemptRepository) FindLatestPassed(userID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.Where("user_id = ? AND passed = ?", userID, true).
		Order("created_at DESC").
		Order("id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindByUser(userID uint, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *AttemptRepository) CountByUserAndExercise(userID, exerciseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
		Count(&count).Error
	return count, err
}

// ExerciseTotals counts every attempt on an exercise and how many passed, all users included.
func (r *AttemptRepository) ExerciseTotals(exerciseID uint) (total, passed int64, err error) {
	var row struct {
		Total  int64
		Passed int64
	}
	err = r.DB.Model(&model.Attempt{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0) AS passed").
		Where("exercise_id = ?", exerciseID).
		Scan(&row).Error
	return row.Total, row.Passed, err
}
