package service

import (
	"errors"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"
)

type StreakTracker struct {
	StreakRepo *repository.StreakRepository
}

func NewStreakTracker(streakRepo *repository.StreakRepository) *StreakTracker {
	return &StreakTracker{StreakRepo: streakRepo}
}

// UpdateStreak records activity on day inside tx, creating the streak on
// first activity. It reports whether the streak changed.
func (t *StreakTracker) UpdateStreak(tx *gorm.DB, userID uint, day civil.Date) (*model.Streak, bool, error) {
	repo := t.StreakRepo.WithTx(tx)

	streak, err := repo.FindForUpdate(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		streak = &model.Streak{UserID: userID}
	} else if err != nil {
		return nil, false, err
	}

	if !streak.Update(day) {
		return streak, false, nil
	}
	if err := repo.Save(streak); err != nil {
		return nil, false, err
	}
	return streak, true, nil
}
