package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/util"
	"nsi_edu_backend/pkg/logger"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AwardService runs the engine outside of a submission: after a data import,
// or when activity is reported without an attempt.
type AwardService struct {
	DB           *gorm.DB
	Locker       UserLocker
	LockTimeout  time.Duration
	Engine       *AwardEngine
	Streaks      *StreakTracker
	UserRepo     *repository.UserRepository
	ProgressRepo *repository.ProgressRepository
	Leaderboard  *LeaderboardService
}

type ActivityResult struct {
	UserID              uint     `json:"user_id"`
	Day                 string   `json:"day"`
	CurrentStreak       int      `json:"current_streak"`
	LongestStreak       int      `json:"longest_streak"`
	StreakChanged       bool     `json:"streak_changed"`
	NewTotalXP          int      `json:"new_total_xp"`
	NewLevel            int      `json:"new_level"`
	BadgesAwarded       []string `json:"badges_awarded"`
	AchievementsAwarded []string `json:"achievements_awarded"`
}

// Reevaluate grants whatever the user's current history qualifies for.
func (s *AwardService) Reevaluate(ctx context.Context, userID uint) (*AwardOutcome, *model.ProgressAccount, error) {
	var (
		outcome *AwardOutcome
		account *model.ProgressAccount
	)
	err := lockedTransaction(ctx, s.Locker, s.LockTimeout, s.DB, userID, func(tx *gorm.DB) error {
		if err := ensureUser(s.UserRepo.WithTx(tx), userID); err != nil {
			return err
		}
		var err error
		account, err = s.ProgressRepo.WithTx(tx).GetOrCreateForUpdate(userID)
		if err != nil {
			return err
		}
		outcome, err = s.Engine.Evaluate(tx, account)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterCommit(ctx, userID, outcome)
	return outcome, account, nil
}

// RecordActivity updates the streak for day and evaluates awards, atomically.
func (s *AwardService) RecordActivity(ctx context.Context, userID uint, day civil.Date) (*ActivityResult, error) {
	if !day.IsValid() {
		return nil, fmt.Errorf("%w: invalid day %s", util.ErrInvalidInput, day)
	}

	result := &ActivityResult{UserID: userID, Day: day.String()}
	var outcome *AwardOutcome
	err := lockedTransaction(ctx, s.Locker, s.LockTimeout, s.DB, userID, func(tx *gorm.DB) error {
		if err := ensureUser(s.UserRepo.WithTx(tx), userID); err != nil {
			return err
		}
		account, err := s.ProgressRepo.WithTx(tx).GetOrCreateForUpdate(userID)
		if err != nil {
			return err
		}
		streak, changed, err := s.Streaks.UpdateStreak(tx, userID, day)
		if err != nil {
			return err
		}
		outcome, err = s.Engine.Evaluate(tx, account)
		if err != nil {
			return err
		}

		result.CurrentStreak = streak.CurrentStreak
		result.LongestStreak = streak.LongestStreak
		result.StreakChanged = changed
		result.NewTotalXP = account.XP
		result.NewLevel = account.Level
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.BadgesAwarded = outcome.BadgeCodes()
	result.AchievementsAwarded = outcome.AchievementCodes()
	s.afterCommit(ctx, userID, outcome)
	return result, nil
}

func (s *AwardService) afterCommit(ctx context.Context, userID uint, outcome *AwardOutcome) {
	if len(outcome.Achievements) == 0 && len(outcome.Badges) == 0 {
		return
	}
	outcome.record()
	if s.Leaderboard != nil {
		s.Leaderboard.Invalidate(ctx)
	}
	logger.Log.Info("Awards granted",
		zap.Uint("user_id", userID),
		zap.Strings("achievements", outcome.AchievementCodes()),
		zap.Strings("badges", outcome.BadgeCodes()),
		zap.Int("achievement_xp", outcome.AchievementXP),
	)
}

// ensureUser maps a missing user row to util.ErrUserNotFound.
func ensureUser(users *repository.UserRepository, userID uint) error {
	exists, err := users.Exists(userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", util.ErrUserNotFound, userID)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
