package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/util"
	"nsi_edu_backend/pkg/logger"
	"nsi_edu_backend/pkg/monitoring"
	"nsi_edu_backend/pkg/tracing"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmitRequest is the grading subsystem's report of one submission.
type SubmitRequest struct {
	UserID     uint            `json:"user_id" validate:"required"`
	ExerciseID uint            `json:"exercise_id" validate:"required"`
	Passed     bool            `json:"passed"`
	Score      int             `json:"score" validate:"min=0,max=100"`
	Payload    json.RawMessage `json:"attempt_data,omitempty"`
}

type SubmitResult struct {
	AttemptID           string   `json:"attempt_id"`
	Passed              bool     `json:"passed"`
	Score               int      `json:"score"`
	FirstPass           bool     `json:"first_pass"`
	XPAwarded           int      `json:"xp_awarded"`
	AchievementXP       int      `json:"achievement_xp"`
	NewTotalXP          int      `json:"new_total_xp"`
	NewLevel            int      `json:"new_level"`
	LevelUp             bool     `json:"level_up"`
	BadgesAwarded       []string `json:"badges_awarded"`
	AchievementsAwarded []string `json:"achievements_awarded"`
	CurrentStreak       int      `json:"current_streak"`
}

// AttemptRecorder handles a submission end to end: attempt log, first-pass
// XP, streak, then achievements and badges, all in one transaction under
// the user's lock.
type AttemptRecorder struct {
	DB           *gorm.DB
	Locker       UserLocker
	LockTimeout  time.Duration
	Calendar     Calendar
	Engine       *AwardEngine
	Streaks      *StreakTracker
	UserRepo     *repository.UserRepository
	ExerciseRepo *repository.ExerciseRepository
	AttemptRepo  *repository.AttemptRepository
	ProgressRepo *repository.ProgressRepository
	Leaderboard  *LeaderboardService

	validate *validator.Validate
	now      func() time.Time
}

func NewAttemptRecorder(
	db *gorm.DB,
	locker UserLocker,
	lockTimeout time.Duration,
	calendar Calendar,
	engine *AwardEngine,
	streaks *StreakTracker,
	userRepo *repository.UserRepository,
	exerciseRepo *repository.ExerciseRepository,
	attemptRepo *repository.AttemptRepository,
	progressRepo *repository.ProgressRepository,
	leaderboard *LeaderboardService,
) *AttemptRecorder {
	return &AttemptRecorder{
		DB:           db,
		Locker:       locker,
		LockTimeout:  lockTimeout,
		Calendar:     calendar,
		Engine:       engine,
		Streaks:      streaks,
		UserRepo:     userRepo,
		ExerciseRepo: exerciseRepo,
		AttemptRepo:  attemptRepo,
		ProgressRepo: progressRepo,
		Leaderboard:  leaderboard,
		validate:     validator.New(),
		now:          time.Now,
	}
}

func (r *AttemptRecorder) Validate(req *SubmitRequest) error {
	if err := r.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return fmt.Errorf("%w: attempt_data is not valid JSON", util.ErrInvalidInput)
	}
	return nil
}

// Submit records one submission. Either everything it reports is committed
// or nothing is, so a failed call can be retried as is.
func (r *AttemptRecorder) Submit(ctx context.Context, req SubmitRequest) (result *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptRecorder.Submit")
	span.SetAttributes(
		attribute.Int64("user.id", int64(req.UserID)),
		attribute.Int64("exercise.id", int64(req.ExerciseID)),
		attribute.Bool("attempt.passed", req.Passed),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if err := r.Validate(&req); err != nil {
		return nil, err
	}

	today := r.Calendar.DateOf(r.now())
	result = &SubmitResult{Passed: req.Passed, Score: req.Score}
	var outcome *AwardOutcome

	err = lockedTransaction(ctx, r.Locker, r.LockTimeout, r.DB, req.UserID, func(tx *gorm.DB) error {
		if err := ensureUser(r.UserRepo.WithTx(tx), req.UserID); err != nil {
			return err
		}
		exercise, err := r.ExerciseRepo.WithTx(tx).FindByID(req.ExerciseID)
		if isNotFound(err) {
			return fmt.Errorf("%w: %d", util.ErrExerciseNotFound, req.ExerciseID)
		}
		if err != nil {
			return err
		}

		progress := r.ProgressRepo.WithTx(tx)
		account, err := progress.GetOrCreateForUpdate(req.UserID)
		if err != nil {
			return err
		}
		levelBefore := account.Level

		attempts := r.AttemptRepo.WithTx(tx)
		attempt := &model.Attempt{
			UserID:     req.UserID,
			ExerciseID: req.ExerciseID,
			Passed:     req.Passed,
			Score:      req.Score,
		}
		if len(req.Payload) > 0 {
			attempt.Payload = datatypes.JSON(req.Payload)
		}
		if err := attempts.Create(attempt); err != nil {
			return err
		}
		result.AttemptID = attempt.ID

		if req.Passed {
			passedBefore, err := attempts.HasPassedBefore(req.UserID, req.ExerciseID, attempt.ID)
			if err != nil {
				return err
			}
			if !passedBefore {
				result.FirstPass = true
				result.XPAwarded = exercise.XPReward
				account.AddXP(exercise.XPReward)
				if err := progress.Save(account); err != nil {
					return err
				}
			}
		}

		streak, _, err := r.Streaks.UpdateStreak(tx, req.UserID, today)
		if err != nil {
			return err
		}
		result.CurrentStreak = streak.CurrentStreak

		outcome, err = r.Engine.Evaluate(tx, account)
		if err != nil {
			return err
		}

		result.AchievementXP = outcome.AchievementXP
		result.NewTotalXP = account.XP
		result.NewLevel = account.Level
		result.LevelUp = account.Level > levelBefore
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.BadgesAwarded = outcome.BadgeCodes()
	result.AchievementsAwarded = outcome.AchievementCodes()
	r.afterCommit(ctx, req, result, outcome)
	return result, nil
}

func (r *AttemptRecorder) afterCommit(ctx context.Context, req SubmitRequest, result *SubmitResult, outcome *AwardOutcome) {
	monitoring.RecordSubmission(req.Passed)
	monitoring.RecordXP(monitoring.XPSourceExercise, result.XPAwarded)
	outcome.record()

	if r.Leaderboard != nil && (result.XPAwarded > 0 || outcome.AchievementXP > 0 || len(outcome.Badges) > 0) {
		r.Leaderboard.Invalidate(ctx)
	}

	logger.Log.Info("Attempt recorded",
		zap.String("attempt_id", result.AttemptID),
		zap.Uint("user_id", req.UserID),
		zap.Uint("exercise_id", req.ExerciseID),
		zap.Bool("passed", req.Passed),
		zap.Int("score", req.Score),
		zap.Int("xp_awarded", result.XPAwarded),
		zap.Int("achievement_xp", result.AchievementXP),
		zap.Strings("badges", result.BadgesAwarded),
		zap.Strings("achievements", result.AchievementsAwarded),
	)
}
