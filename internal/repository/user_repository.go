package repository

import (
	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

// Create inserts the user and its zero progress account together.
func (r *UserRepository) Create(user *model.User) error {
	if user.Role == "" {
		user.Role = model.Student
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Progress", "Streak").Create(user).Error; err != nil {
			return err
		}
		account := model.NewProgressAccount(user.ID)
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		user.Progress = account
		return nil
	})
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
