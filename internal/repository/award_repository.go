package repository

import (
	"errors"

	"nsi_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AwardRepository covers the badge/achievement catalog tables and the grant records.
type AwardRepository struct {
	DB *gorm.DB
}

func NewAwardRepository(db *gorm.DB) *AwardRepository {
	return &AwardRepository{DB: db}
}

func (r *AwardRepository) WithTx(tx *gorm.DB) *AwardRepository {
	return &AwardRepository{DB: tx}
}

func (r *AwardRepository) ListBadges(activeOnly bool) ([]model.Badge, error) {
	var badges []model.Badge
	q := r.DB.Order("sort_order ASC, xp_requirement ASC, code ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *AwardRepository) ListAchievements() ([]model.Achievement, error) {
	var achievements []model.Achievement
	if err := r.DB.Order("code ASC").Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

// EnsureBadge inserts the badge unless its code already exists. Existing rows are left untouched.
func (r *AwardRepository) EnsureBadge(badge *model.Badge) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(badge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AwardRepository) EnsureAchievement(achievement *model.Achievement) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(achievement)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AwardRepository) FindAchievementByCode(code string) (*model.Achievement, error) {
	var achievement model.Achievement
	if err := r.DB.Where("code = ?", code).First(&achievement).Error; err != nil {
		return nil, err
	}
	return &achievement, nil
}

func (r *AwardRepository) HasUserBadge(userID uint, code string) (bool, error) {
	var grant model.UserBadge
	err := r.DB.Select("id").Where("user_id = ? AND badge_code = ?", userID, code).Take(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateUserBadge returns false when the grant already exists.
func (r *AwardRepository) CreateUserBadge(userID uint, code string) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserBadge{UserID: userID, BadgeCode: code})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AwardRepository) HasUserAchievement(userID uint, code string) (bool, error) {
	var grant model.UserAchievement
	err := r.DB.Select("id").Where("user_id = ? AND achievement_code = ?", userID, code).Take(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateUserAchievement returns false when the grant already exists.
func (r *AwardRepository) CreateUserAchievement(userID uint, code string) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserAchievement{UserID: userID, AchievementCode: code})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AwardRepository) CountUserBadges(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserBadge{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *AwardRepository) CountUserAchievements(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserAchievement{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// EarnedBadges lists the user's badges, most recent first.
func (r *AwardRepository) EarnedBadges(userID uint) ([]model.EarnedBadge, error) {
	var badges []model.EarnedBadge
	err := r.DB.Table("user_badges").
		Select("badges.code, badges.name, badges.description, badges.icon, badges.xp_requirement, user_badges.earned_at").
		Joins("JOIN badges ON badges.code = user_badges.badge_code").
		Where("user_badges.user_id = ?", userID).
		Order("user_badges.earned_at DESC, badges.xp_requirement DESC").
		Scan(&badges).Error
	if err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *AwardRepository) EarnedAchievements(userID uint) ([]model.EarnedAchievement, error) {
	var achievements []model.EarnedAchievement
	err := r.DB.Table("user_achievements").
		Select("achievements.code, achievements.name, achievements.description, achievements.icon, achievements.xp_reward, user_achievements.earned_at").
		Joins("JOIN achievements ON achievements.code = user_achievements.achievement_code").
		Where("user_achievements.user_id = ?", userID).
		Order("user_achievements.earned_at DESC, achievements.code ASC").
		Scan(&achievements).Error
	if err != nil {
		return nil, err
	}
	return achievements, nil
}
