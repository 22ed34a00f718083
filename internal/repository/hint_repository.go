package repository

import (
	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HintRepository struct {
	DB *gorm.DB
}

func NewHintRepository(db *gorm.DB) *HintRepository {
	return &HintRepository{DB: db}
}

func (r *HintRepository) WithTx(tx *gorm.DB) *HintRepository {
	return &HintRepository{DB: tx}
}

func (r *HintRepository) Create(hint *model.Hint) error {
	return r.DB.Create(hint).Error
}

func (r *HintRepository) FindByID(id uint) (*model.Hint, error) {
	var hint model.Hint
	if err := r.DB.First(&hint, id).Error; err != nil {
		return nil, err
	}
	return &hint, nil
}

func (r *HintRepository) FindUsage(userID, hintID uint) (*model.HintUsage, error) {
	var usage model.HintUsage
	if err := r.DB.Where("user_id = ? AND hint_id = ?", userID, hintID).First(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// CreateUsage returns false when the (user, hint) usage already exists.
func (r *HintRepository) CreateUsage(usage *model.HintUsage) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(usage)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
