package service

import (
	"context"
	"fmt"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/util"

	"gorm.io/gorm"
)

// AttemptHistory is the read side of the attempt log.
type AttemptHistory struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	ExerciseRepo *repository.ExerciseRepository
	AttemptRepo  *repository.AttemptRepository
}

func NewAttemptHistory(db *gorm.DB, userRepo *repository.UserRepository, exerciseRepo *repository.ExerciseRepository, attemptRepo *repository.AttemptRepository) *AttemptHistory {
	return &AttemptHistory{DB: db, UserRepo: userRepo, ExerciseRepo: exerciseRepo, AttemptRepo: attemptRepo}
}

type ExerciseStatus struct {
	UserID     uint  `json:"user_id"`
	ExerciseID uint  `json:"exercise_id"`
	Attempts   int64 `json:"attempts"`
	Passed     bool  `json:"passed"`
	// SuccessRate is the whole-class pass percentage, truncated.
	SuccessRate int `json:"success_rate"`
}

// List returns the user's most recent attempts first.
func (h *AttemptHistory) List(ctx context.Context, userID uint, limit int) ([]model.Attempt, error) {
	db := h.DB.WithContext(ctx)
	if err := ensureUser(h.UserRepo.WithTx(db), userID); err != nil {
		return nil, err
	}
	attempts, err := h.AttemptRepo.WithTx(db).FindByUser(userID, limit)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

func (h *AttemptHistory) ExerciseStatus(ctx context.Context, userID, exerciseID uint) (*ExerciseStatus, error) {
	db := h.DB.WithContext(ctx)
	if err := ensureUser(h.UserRepo.WithTx(db), userID); err != nil {
		return nil, err
	}
	if _, err := h.ExerciseRepo.WithTx(db).FindByID(exerciseID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %d", util.ErrExerciseNotFound, exerciseID)
		}
		return nil, err
	}

	attempts := h.AttemptRepo.WithTx(db)
	status := &ExerciseStatus{UserID: userID, ExerciseID: exerciseID}
	var err error
	if status.Attempts, err = attempts.CountByUserAndExercise(userID, exerciseID); err != nil {
		return nil, err
	}
	if status.Passed, err = attempts.HasPassedBefore(userID, exerciseID, ""); err != nil {
		return nil, err
	}
	total, passed, err := attempts.ExerciseTotals(exerciseID)
	if err != nil {
		return nil, err
	}
	if total > 0 {
		status.SuccessRate = int(passed * 100 / total)
	}
	return status, nil
}
