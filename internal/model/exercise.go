package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExerciseType is the closed set of grading mechanisms. The gamification core
// only cares whether an attempt passed, never how it was graded.
type ExerciseType string

const (
	ExercisePython  ExerciseType = "PYTHON"
	ExerciseSQL     ExerciseType = "SQL"
	ExerciseMCQ     ExerciseType = "MCQ"
	ExerciseParsons ExerciseType = "PARSONS"
)

func (t ExerciseType) Valid() bool {
	switch t {
	case ExercisePython, ExerciseSQL, ExerciseMCQ, ExerciseParsons:
		return true
	}
	return false
}

// DefaultExerciseXPReward is paid on the first pass when no reward is configured.
const DefaultExerciseXPReward = 10

// swagger:model Exercise
type Exercise struct {
	BaseModel
	Title       string       `gorm:"size:200;not null" json:"title"`
	Type        ExerciseType `gorm:"size:10;not null" json:"type"`
	XPReward    int          `gorm:"not null" json:"xpReward"`
	IsPublished bool         `gorm:"not null" json:"isPublished"`
}

func (Exercise) TableName() string {
	return "exercises"
}

func (e *Exercise) BeforeSave(tx *gorm.DB) error {
	if !e.Type.Valid() {
		return fmt.Errorf("invalid exercise type %q", e.Type)
	}
	if e.XPReward < 0 {
		return fmt.Errorf("exercise xp reward cannot be negative: %d", e.XPReward)
	}
	return nil
}

// Attempt is one submission outcome. Rows are never updated: the log is the
// source of truth for "first pass" and for every achievement predicate.
// swagger:model Attempt
type Attempt struct {
	UUIDBase
	UserID     uint           `gorm:"not null;index:idx_attempt_user_exercise_passed,priority:1" json:"userId"`
	ExerciseID uint           `gorm:"not null;index:idx_attempt_user_exercise_passed,priority:2" json:"exerciseId"`
	Passed     bool           `gorm:"not null;index:idx_attempt_user_exercise_passed,priority:3" json:"passed"`
	Score      int            `gorm:"not null" json:"score"`
	Payload    datatypes.JSON `json:"attemptData,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Hint belongs to an exercise; reading it may cost XP.
type Hint struct {
	BaseModel
	ExerciseID uint   `gorm:"index;not null" json:"exerciseId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	SortOrder  int    `gorm:"not null" json:"sortOrder"`
	XPCost     int    `gorm:"not null" json:"xpCost"`
}

func (Hint) TableName() string {
	return "hints"
}

// HintUsage records that a user has unlocked a hint; at most one per (user, hint).
type HintUsage struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_hint,priority:1" json:"userId"`
	HintID uint `gorm:"not null;uniqueIndex:idx_user_hint,priority:2" json:"hintId"`
	// XPCharged is what was actually deducted, which can be less than the cost.
	XPCharged int       `gorm:"not null" json:"xpCharged"`
	UsedAt    time.Time `gorm:"autoCreateTime" json:"usedAt"`
}

func (HintUsage) TableName() string {
	return "hint_usages"
}
