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
	"nsi_edu_backend/pkg/monitoring"
	"nsi_edu_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HintService struct {
	DB           *gorm.DB
	Locker       UserLocker
	LockTimeout  time.Duration
	UserRepo     *repository.UserRepository
	HintRepo     *repository.HintRepository
	ProgressRepo *repository.ProgressRepository
	Leaderboard  *LeaderboardService
}

type HintResult struct {
	HintID  uint   `json:"hint_id"`
	Content string `json:"content"`
	XPCost  int    `json:"xp_cost"`
	// XPCharged is what this call deducted; zero on a repeat use.
	XPCharged int `json:"xp_charged"`
	// UnlockCharge is what the first use deducted.
	UnlockCharge int  `json:"unlock_charge"`
	RemainingXP  int  `json:"remaining_xp"`
	AlreadyUsed  bool `json:"already_used"`
}

var errHintUsageRace = errors.New("hint usage recorded concurrently")

// UseHint reveals a hint, charging its cost on first use only. The charge is
// clamped so XP never goes negative; later calls return the same content for free.
func (s *HintService) UseHint(ctx context.Context, userID, hintID uint) (result *HintResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "HintService.UseHint")
	span.SetAttributes(attribute.Int64("user.id", int64(userID)), attribute.Int64("hint.id", int64(hintID)))
	defer func() { tracing.EndSpan(span, err) }()

	if userID == 0 || hintID == 0 {
		return nil, fmt.Errorf("%w: user and hint ids are required", util.ErrInvalidInput)
	}

	err = lockedTransaction(ctx, s.Locker, s.LockTimeout, s.DB, userID, func(tx *gorm.DB) error {
		if err := ensureUser(s.UserRepo.WithTx(tx), userID); err != nil {
			return err
		}
		hints := s.HintRepo.WithTx(tx)
		hint, err := hints.FindByID(hintID)
		if isNotFound(err) {
			return fmt.Errorf("%w: %d", util.ErrHintNotFound, hintID)
		}
		if err != nil {
			return err
		}

		progress := s.ProgressRepo.WithTx(tx)
		account, err := progress.GetOrCreateForUpdate(userID)
		if err != nil {
			return err
		}

		result = &HintResult{HintID: hint.ID, Content: hint.Content, XPCost: hint.XPCost}

		usage, err := hints.FindUsage(userID, hintID)
		if err == nil {
			result.AlreadyUsed = true
			result.UnlockCharge = usage.XPCharged
			result.RemainingXP = account.XP
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		charged := account.SpendXP(hint.XPCost)
		created, err := hints.CreateUsage(&model.HintUsage{UserID: userID, HintID: hintID, XPCharged: charged})
		if err != nil {
			return err
		}
		if !created {
			return errHintUsageRace
		}
		if charged > 0 {
			if err := progress.Save(account); err != nil {
				return err
			}
		}
		result.XPCharged = charged
		result.UnlockCharge = charged
		result.RemainingXP = account.XP
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyUsed {
		monitoring.RecordHintUsed()
		if result.XPCharged > 0 && s.Leaderboard != nil {
			s.Leaderboard.Invalidate(ctx)
		}
		logger.Log.Info("Hint used",
			zap.Uint("user_id", userID),
			zap.Uint("hint_id", hintID),
			zap.Int("xp_charged", result.XPCharged),
		)
	}
	return result, nil
}
