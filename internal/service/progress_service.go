package service

import (
	"context"
	"fmt"
	"time"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/util"
	"nsi_edu_backend/pkg/logger"
	"nsi_edu_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService owns direct XP changes and the progress read model.
type ProgressService struct {
	DB           *gorm.DB
	Locker       UserLocker
	LockTimeout  time.Duration
	Engine       *AwardEngine
	UserRepo     *repository.UserRepository
	ProgressRepo *repository.ProgressRepository
	StreakRepo   *repository.StreakRepository
	AttemptRepo  *repository.AttemptRepository
	AwardRepo    *repository.AwardRepository
	Leaderboard  *LeaderboardService
}

type XPChange struct {
	UserID        uint     `json:"user_id"`
	Delta         int      `json:"delta"`
	NewTotalXP    int      `json:"new_total_xp"`
	NewLevel      int      `json:"new_level"`
	BadgesAwarded []string `json:"badges_awarded,omitempty"`
}

// AddXP credits points and grants any badge the new total unlocks.
func (s *ProgressService) AddXP(ctx context.Context, userID uint, points int) (*XPChange, error) {
	if points < 0 {
		return nil, fmt.Errorf("%w: negative xp %d, use SpendXP", util.ErrInvalidInput, points)
	}

	change := &XPChange{UserID: userID, Delta: points}
	var badges []model.Badge
	err := lockedTransaction(ctx, s.Locker, s.LockTimeout, s.DB, userID, func(tx *gorm.DB) error {
		if err := ensureUser(s.UserRepo.WithTx(tx), userID); err != nil {
			return err
		}
		progress := s.ProgressRepo.WithTx(tx)
		account, err := progress.GetOrCreateForUpdate(userID)
		if err != nil {
			return err
		}
		account.AddXP(points)
		if err := progress.Save(account); err != nil {
			return err
		}
		if s.Engine != nil {
			if badges, err = s.Engine.EvaluateBadges(tx, account); err != nil {
				return err
			}
		}
		change.NewTotalXP = account.XP
		change.NewLevel = account.Level
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &AwardOutcome{Badges: badges}
	change.BadgesAwarded = outcome.BadgeCodes()
	outcome.record()
	monitoring.RecordXP(monitoring.XPSourceManual, points)
	s.invalidate(ctx)
	logger.Log.Info("XP added", zap.Uint("user_id", userID), zap.Int("points", points), zap.Int("total", change.NewTotalXP))
	return change, nil
}

// SpendXP deducts up to cost, never below zero. Delta is the negated amount actually deducted.
// Badges already earned are kept.
func (s *ProgressService) SpendXP(ctx context.Context, userID uint, cost int) (*XPChange, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: negative cost %d", util.ErrInvalidInput, cost)
	}

	change := &XPChange{UserID: userID}
	err := lockedTransaction(ctx, s.Locker, s.LockTimeout, s.DB, userID, func(tx *gorm.DB) error {
		if err := ensureUser(s.UserRepo.WithTx(tx), userID); err != nil {
			return err
		}
		progress := s.ProgressRepo.WithTx(tx)
		account, err := progress.GetOrCreateForUpdate(userID)
		if err != nil {
			return err
		}
		change.Delta = -account.SpendXP(cost)
		if err := progress.Save(account); err != nil {
			return err
		}
		change.NewTotalXP = account.XP
		change.NewLevel = account.Level
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change.Delta != 0 {
		s.invalidate(ctx)
	}
	return change, nil
}

func (s *ProgressService) GetProgress(ctx context.Context, userID uint) (*model.ProgressSummary, error) {
	db := s.DB.WithContext(ctx)
	if err := ensureUser(s.UserRepo.WithTx(db), userID); err != nil {
		return nil, err
	}

	summary := &model.ProgressSummary{UserID: userID, Level: 1, NextLevelXP: model.XPPerLevel}

	account, err := s.ProgressRepo.WithTx(db).FindByUserID(userID)
	switch {
	case err == nil:
		summary.XP = account.XP
		summary.Level = account.Level
		summary.NextLevelXP = account.NextLevelXP()
	case !isNotFound(err):
		return nil, err
	}
	summary.XPToNextLevel = summary.NextLevelXP - summary.XP

	streak, err := s.StreakRepo.WithTx(db).FindByUserID(userID)
	switch {
	case err == nil:
		summary.CurrentStreak = streak.CurrentStreak
		summary.LongestStreak = streak.LongestStreak
		if day, ok := streak.LastActivity(); ok {
			summary.LastActivity = day.String()
		}
	case !isNotFound(err):
		return nil, err
	}

	if summary.PassedCount, err = s.AttemptRepo.WithTx(db).CountDistinctPassed(userID); err != nil {
		return nil, err
	}

	awards := s.AwardRepo.WithTx(db)
	if summary.Badges, err = awards.EarnedBadges(userID); err != nil {
		return nil, err
	}
	if summary.Achievements, err = awards.EarnedAchievements(userID); err != nil {
		return nil, err
	}
	if summary.Badges == nil {
		summary.Badges = []model.EarnedBadge{}
	}
	if summary.Achievements == nil {
		summary.Achievements = []model.EarnedAchievement{}
	}
	return summary, nil
}

func (s *ProgressService) invalidate(ctx context.Context) {
	if s.Leaderboard != nil {
		s.Leaderboard.Invalidate(ctx)
	}
}
