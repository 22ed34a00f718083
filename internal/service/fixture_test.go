package service

import (
	"context"
	"testing"
	"time"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock time.Time

	awardRepo   *repository.AwardRepository
	attemptRepo *repository.AttemptRepository
	streakRepo  *repository.StreakRepository

	engine      *AwardEngine
	recorder    *AttemptRecorder
	awards      *AwardService
	progress    *ProgressService
	hints       *HintService
	leaderboard *LeaderboardService
}

// newFixture wires every service on a fresh database. A nil catalog means
// the default catalog, seeded into the database.
func newFixture(t *testing.T, catalog AwardCatalog) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	awardRepo := repository.NewAwardRepository(db)
	hintRepo := repository.NewHintRepository(db)

	if catalog == nil {
		_, err := NewCatalogService(db, awardRepo).Seed(context.Background())
		require.NoError(t, err)
		catalog = DefaultCatalog()
	}

	locker := NewLocalUserLocker()
	lockTimeout := 5 * time.Second
	leaderboard := NewLeaderboardService(db, progressRepo, nil, 0)
	engine := NewAwardEngine(catalog, awardRepo, attemptRepo, streakRepo, progressRepo)
	streaks := NewStreakTracker(streakRepo)

	f := &fixture{
		db:          db,
		clock:       time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC),
		awardRepo:   awardRepo,
		attemptRepo: attemptRepo,
		streakRepo:  streakRepo,
		engine:      engine,
		leaderboard: leaderboard,
	}

	f.recorder = NewAttemptRecorder(db, locker, lockTimeout, NewCalendar(time.UTC), engine, streaks,
		userRepo, exerciseRepo, attemptRepo, progressRepo, leaderboard)
	f.recorder.now = func() time.Time { return f.clock }

	f.awards = &AwardService{
		DB: db, Locker: locker, LockTimeout: lockTimeout, Engine: engine, Streaks: streaks,
		UserRepo: userRepo, ProgressRepo: progressRepo, Leaderboard: leaderboard,
	}
	f.progress = &ProgressService{
		DB: db, Locker: locker, LockTimeout: lockTimeout, Engine: engine,
		UserRepo: userRepo, ProgressRepo: progressRepo, StreakRepo: streakRepo,
		AttemptRepo: attemptRepo, AwardRepo: awardRepo, Leaderboard: leaderboard,
	}
	f.hints = &HintService{
		DB: db, Locker: locker, LockTimeout: lockTimeout,
		UserRepo: userRepo, HintRepo: hintRepo, ProgressRepo: progressRepo, Leaderboard: leaderboard,
	}
	return f
}

func (f *fixture) nextDay() {
	f.clock = f.clock.AddDate(0, 0, 1)
}

func (f *fixture) countAttempts(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Attempt{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (f *fixture) countGrants(t *testing.T, userID uint) (badges, achievements int64) {
	t.Helper()
	var err error
	badges, err = f.awardRepo.CountUserBadges(userID)
	require.NoError(t, err)
	achievements, err = f.awardRepo.CountUserAchievements(userID)
	require.NoError(t, err)
	return badges, achievements
}

// passExercises inserts passed attempts directly, bypassing the recorder.
func (f *fixture) passExercises(t *testing.T, userID uint, n int, score int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ex := testutil.CreateExercise(t, f.db, "Exercice", 10)
		require.NoError(t, f.attemptRepo.Create(&model.Attempt{
			UserID: userID, ExerciseID: ex.ID, Passed: true, Score: score,
		}))
	}
}
