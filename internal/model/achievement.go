package model

import "time"

// Badge is unlocked purely by reaching an XP threshold.
// swagger:model Badge
type Badge struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Icon          string    `gorm:"size:50" json:"icon"`
	XPRequirement int       `gorm:"not null" json:"xpRequirement"`
	SortOrder     int       `gorm:"not null" json:"sortOrder"`
	IsActive      bool      `gorm:"not null" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Badge) TableName() string {
	return "badges"
}

const (
	AchievementFirstExercise = "FIRST_EXERCISE"
	AchievementTenExercises  = "TEN_EXERCISES"
	AchievementPerfectScore  = "PERFECT_SCORE"
	AchievementWeekStreak    = "WEEK_STREAK"
)

// Achievement is unlocked by a behavioural predicate and pays XPReward once.
// swagger:model Achievement
type Achievement struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	XPReward    int       `gorm:"not null" json:"xpReward"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserBadge and UserAchievement are grant records keyed by award code.
// The unique index is the storage backstop for at-most-once grants.
type UserBadge struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"userId"`
	BadgeCode string    `gorm:"size:50;not null;uniqueIndex:idx_user_badge,priority:2" json:"badgeCode"`
	EarnedAt  time.Time `gorm:"autoCreateTime" json:"earnedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}

type UserAchievement struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_user_achievement,priority:1" json:"userId"`
	AchievementCode string    `gorm:"size:50;not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievementCode"`
	EarnedAt        time.Time `gorm:"autoCreateTime" json:"earnedAt"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
