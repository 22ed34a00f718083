package repository

import (
	"testing"
	"time"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestAttemptRepository_PassedQueries(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAttemptRepository(db)
	user := testutil.CreateStudent(t, db, "Grace Hopper")
	ex1 := testutil.CreateExercise(t, db, "Boucles", 10)
	ex2 := testutil.CreateExercise(t, db, "Listes", 10)

	_, err := repo.FindLatestPassed(user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	failed := &model.Attempt{UserID: user.ID, ExerciseID: ex1.ID, Passed: false, Score: 40}
	require.NoError(t, repo.Create(failed))
	assert.Len(t, failed.ID, 36)

	first := &model.Attempt{UserID: user.ID, ExerciseID: ex1.ID, Passed: true, Score: 80,
		Payload: datatypes.JSON(`{"code":"print(1)"}`)}
	require.NoError(t, repo.Create(first))

	passed, err := repo.HasPassedBefore(user.ID, ex1.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, passed, "the attempt itself is excluded")

	second := &model.Attempt{UserID: user.ID, ExerciseID: ex1.ID, Passed: true, Score: 100}
	require.NoError(t, repo.Create(second))
	passed, err = repo.HasPassedBefore(user.ID, ex1.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, passed)

	require.NoError(t, repo.Create(&model.Attempt{UserID: user.ID, ExerciseID: ex2.ID, Passed: true, Score: 60}))

	distinct, err := repo.CountDistinctPassed(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), distinct)

	latest, err := repo.FindLatestPassed(user.ID)
	require.NoError(t, err)
	assert.Equal(t, ex2.ID, latest.ExerciseID)
	assert.Equal(t, 60, latest.Score)

	count, err := repo.CountByUserAndExercise(user.ID, ex1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	history, err := repo.FindByUser(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAttemptRepository_LatestPassedBreaksTimestampTies(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAttemptRepository(db)
	user := testutil.CreateStudent(t, db, "Ada")
	ex := testutil.CreateExercise(t, db, "Tri", 10)

	at := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	for _, score := range []int{100, 70, 90} {
		a := &model.Attempt{UserID: user.ID, ExerciseID: ex.ID, Passed: true, Score: score}
		a.CreatedAt = at
		require.NoError(t, repo.Create(a))
	}

	for i := 0; i < 3; i++ {
		latest, err := repo.FindLatestPassed(user.ID)
		require.NoError(t, err)
		assert.Equal(t, 90, latest.Score)
	}

	history, err := repo.FindByUser(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int{90, 70, 100}, []int{history[0].Score, history[1].Score, history[2].Score})
}

func TestAttemptRepository_ExerciseTotals(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAttemptRepository(db)
	ada := testutil.CreateStudent(t, db, "Ada")
	alan := testutil.CreateStudent(t, db, "Alan")
	ex := testutil.CreateExercise(t, db, "Dictionnaires", 10)
	other := testutil.CreateExercise(t, db, "Fichiers", 10)

	total, passed, err := repo.ExerciseTotals(ex.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, passed)

	require.NoError(t, repo.Create(&model.Attempt{UserID: ada.ID, ExerciseID: ex.ID, Passed: false, Score: 20}))
	require.NoError(t, repo.Create(&model.Attempt{UserID: ada.ID, ExerciseID: ex.ID, Passed: true, Score: 90}))
	require.NoError(t, repo.Create(&model.Attempt{UserID: alan.ID, ExerciseID: ex.ID, Passed: false, Score: 10}))
	require.NoError(t, repo.Create(&model.Attempt{UserID: alan.ID, ExerciseID: other.ID, Passed: true, Score: 100}))

	total, passed, err = repo.ExerciseTotals(ex.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), passed)
}
