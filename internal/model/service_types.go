package model

import "time"

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank       int    `gorm:"-" json:"rank"`
	UserID     uint   `json:"userId"`
	Name       string `json:"name"`
	XP         int    `json:"xp"`
	Level      int    `json:"level"`
	BadgeCount int    `json:"badgeCount"`
}

type EarnedBadge struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	XPRequirement int       `json:"xpRequirement"`
	EarnedAt      time.Time `json:"earnedAt"`
}

type EarnedAchievement struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	XPReward    int       `json:"xpReward"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// ProgressSummary is the read model behind the progress page.
type ProgressSummary struct {
	UserID        uint                `json:"userId"`
	XP            int                 `json:"xp"`
	Level         int                 `json:"level"`
	NextLevelXP   int                 `json:"nextLevelXp"`
	XPToNextLevel int                 `json:"xpToNextLevel"`
	CurrentStreak int                 `json:"currentStreak"`
	LongestStreak int                 `json:"longestStreak"`
	LastActivity  string              `json:"lastActivity,omitempty"`
	PassedCount   int64               `json:"passedExercises"`
	Badges        []EarnedBadge       `json:"badges"`
	Achievements  []EarnedAchievement `json:"achievements"`
}
