package repository

import (
	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
)

type ExerciseRepository struct {
	DB *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: db}
}

func (r *ExerciseRepository) WithTx(tx *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: tx}
}

func (r *ExerciseRepository) Create(exercise *model.Exercise) error {
	return r.DB.Create(exercise).Error
}

func (r *ExerciseRepository) FindByID(id uint) (*model.Exercise, error) {
	var exercise model.Exercise
	if err := r.DB.First(&exercise, id).Error; err != nil {
		return nil, err
	}
	return &exercise, nil
}
