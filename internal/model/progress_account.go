package model

import (
	"time"

	"gorm.io/gorm"
)

// XPPerLevel is the size of one level bucket.
const XPPerLevel = 100

// LevelForXP is the only level formula: floor(xp/100) + 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// ProgressAccount holds the cumulative XP of one user. Level is always derived
// from XP, both in memory (AddXP/SpendXP) and on every save (BeforeSave).
type ProgressAccount struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"userId"`
	XP        int       `gorm:"not null" json:"xp"`
	Level     int       `gorm:"not null" json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ProgressAccount) TableName() string {
	return "progress_accounts"
}

func NewProgressAccount(userID uint) *ProgressAccount {
	return &ProgressAccount{UserID: userID, XP: 0, Level: 1}
}

// AddXP credits points. Negative points are ignored; deductions go through SpendXP.
func (a *ProgressAccount) AddXP(points int) {
	if points > 0 {
		a.XP += points
	}
	a.Level = LevelForXP(a.XP)
}

// SpendXP deducts cost without going below zero and returns what was actually deducted.
func (a *ProgressAccount) SpendXP(cost int) int {
	if cost <= 0 {
		return 0
	}
	spent := cost
	if spent > a.XP {
		spent = a.XP
	}
	a.XP -= spent
	a.Level = LevelForXP(a.XP)
	return spent
}

// NextLevelXP is the total XP at which the next level starts.
func (a *ProgressAccount) NextLevelXP() int {
	return LevelForXP(a.XP) * XPPerLevel
}

func (a *ProgressAccount) BeforeSave(tx *gorm.DB) error {
	if a.XP < 0 {
		a.XP = 0
	}
	a.Level = LevelForXP(a.XP)
	return nil
}
