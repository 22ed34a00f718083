package service

import (
	"context"
	"testing"

	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/testutil"
	"nsi_edu_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttemptHistory(f *fixture) *AttemptHistory {
	return NewAttemptHistory(f.db, repository.NewUserRepository(f.db), repository.NewExerciseRepository(f.db), f.attemptRepo)
}

func TestAttemptHistory_ListNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	history := newAttemptHistory(f)
	user := testutil.CreateStudent(t, f.db, "Ada")
	ex := testutil.CreateExercise(t, f.db, "Boucles", 10)

	empty, err := history.List(context.Background(), user.ID, 20)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, score := range []int{30, 60, 100} {
		_, err := f.recorder.Submit(context.Background(), SubmitRequest{UserID: user.ID, ExerciseID: ex.ID, Passed: score == 100, Score: score})
		require.NoError(t, err)
	}

	attempts, err := history.List(context.Background(), user.ID, 2)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 100, attempts[0].Score)
	assert.Equal(t, 60, attempts[1].Score)

	_, err = history.List(context.Background(), 999, 20)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestAttemptHistory_ExerciseStatus(t *testing.T) {
	f := newFixture(t, nil)
	history := newAttemptHistory(f)
	ada := testutil.CreateStudent(t, f.db, "Ada")
	alan := testutil.CreateStudent(t, f.db, "Alan")
	ex := testutil.CreateExercise(t, f.db, "Récursivité", 10)

	status, err := history.ExerciseStatus(context.Background(), ada.ID, ex.ID)
	require.NoError(t, err)
	assert.Zero(t, status.Attempts)
	assert.False(t, status.Passed)
	assert.Zero(t, status.SuccessRate)

	submit := func(userID uint, passed bool) {
		_, err := f.recorder.Submit(context.Background(), SubmitRequest{UserID: userID, ExerciseID: ex.ID, Passed: passed, Score: 50})
		require.NoError(t, err)
	}
	submit(ada.ID, false)
	submit(ada.ID, true)
	submit(alan.ID, false)

	status, err = history.ExerciseStatus(context.Background(), ada.ID, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.Attempts)
	assert.True(t, status.Passed)
	assert.Equal(t, 33, status.SuccessRate)

	status, err = history.ExerciseStatus(context.Background(), alan.ID, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Attempts)
	assert.False(t, status.Passed)

	_, err = history.ExerciseStatus(context.Background(), ada.ID, 999)
	assert.ErrorIs(t, err, util.ErrExerciseNotFound)
}
