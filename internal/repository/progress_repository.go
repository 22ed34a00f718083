package repository

import (
	"errors"

	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) FindByUserID(userID uint) (*model.ProgressAccount, error) {
	var account model.ProgressAccount
	if err := r.DB.Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// GetOrCreateForUpdate locks the user's account row (SELECT ... FOR UPDATE),
// creating it first for users that predate progress accounts.
// Must be called inside a transaction.
func (r *ProgressRepository) GetOrCreateForUpdate(userID uint) (*model.ProgressAccount, error) {
	var account model.ProgressAccount
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(model.NewProgressAccount(userID)).Error; err != nil {
		return nil, err
	}
	err = r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *ProgressRepository) Save(account *model.ProgressAccount) error {
	return r.DB.Save(account).Error
}

const leaderboardScope = "users.deleted_at IS NULL AND users.role = ? AND users.is_active = ?"

// CountAhead counts active students with strictly more XP than xp.
func (r *ProgressRepository) CountAhead(xp int) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ProgressAccount{}).
		Joins("JOIN users ON users.id = progress_accounts.user_id").
		Where(leaderboardScope, model.Student, true).
		Where("progress_accounts.xp > ?", xp).
		Count(&count).Error
	return count, err
}

// TopByXP returns active students ordered by XP then level, with their badge counts.
// Rank is left to the caller.
func (r *ProgressRepository) TopByXP(limit int) ([]model.LeaderboardEntry, error) {
	var rows []model.LeaderboardEntry
	err := r.DB.Table("progress_accounts").
		Select("progress_accounts.user_id, users.name, progress_accounts.xp, progress_accounts.level, COUNT(user_badges.id) AS badge_count").
		Joins("JOIN users ON users.id = progress_accounts.user_id").
		Joins("LEFT JOIN user_badges ON user_badges.user_id = progress_accounts.user_id").
		Where(leaderboardScope, model.Student, true).
		Group("progress_accounts.user_id, users.name, progress_accounts.xp, progress_accounts.level").
		Order("progress_accounts.xp DESC, progress_accounts.level DESC, progress_accounts.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
