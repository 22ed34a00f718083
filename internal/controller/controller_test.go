package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/service"
	"nsi_edu_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)

	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	awardRepo := repository.NewAwardRepository(db)
	hintRepo := repository.NewHintRepository(db)

	catalogService := service.NewCatalogService(db, awardRepo)
	_, err := catalogService.Seed(context.Background())
	require.NoError(t, err)
	catalog, err := catalogService.Load(context.Background())
	require.NoError(t, err)

	locker := service.NewLocalUserLocker()
	timeout := 5 * time.Second
	calendar := service.NewCalendar(time.UTC)
	leaderboard := service.NewLeaderboardService(db, progressRepo, nil, 0)
	engine := service.NewAwardEngine(catalog, awardRepo, attemptRepo, streakRepo, progressRepo)
	streaks := service.NewStreakTracker(streakRepo)

	recorder := service.NewAttemptRecorder(db, locker, timeout, calendar, engine, streaks,
		userRepo, exerciseRepo, attemptRepo, progressRepo, leaderboard)
	hints := &service.HintService{
		DB: db, Locker: locker, LockTimeout: timeout,
		UserRepo: userRepo, HintRepo: hintRepo, ProgressRepo: progressRepo, Leaderboard: leaderboard,
	}
	awards := &service.AwardService{
		DB: db, Locker: locker, LockTimeout: timeout, Engine: engine, Streaks: streaks,
		UserRepo: userRepo, ProgressRepo: progressRepo, Leaderboard: leaderboard,
	}
	progress := &service.ProgressService{
		DB: db, Locker: locker, LockTimeout: timeout, Engine: engine,
		UserRepo: userRepo, ProgressRepo: progressRepo, StreakRepo: streakRepo,
		AttemptRepo: attemptRepo, AwardRepo: awardRepo, Leaderboard: leaderboard,
	}

	history := service.NewAttemptHistory(db, userRepo, exerciseRepo, attemptRepo)
	attempts := NewAttemptController(recorder, history, hints)
	progressCtrl := NewProgressController(progress, awards, leaderboard, catalogService, calendar)
	health := NewHealthController(db, nil)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/health", health.HealthCheck)
	api.POST("/attempts", attempts.Submit)
	api.POST("/hints/:id/use", attempts.UseHint)
	api.GET("/users/:id/progress", progressCtrl.GetProgress)
	api.POST("/users/:id/activity", progressCtrl.RecordActivity)
	api.POST("/users/:id/reevaluate", progressCtrl.Reevaluate)
	api.POST("/users/:id/xp", progressCtrl.AdjustXP)
	api.GET("/users/:id/attempts", attempts.ListAttempts)
	api.GET("/users/:id/exercises/:exercise_id", attempts.ExerciseStatus)
	api.GET("/leaderboard", progressCtrl.GetLeaderboard)
	api.GET("/leaderboard/rank/:id", progressCtrl.GetRank)
	api.GET("/badges", progressCtrl.ListAwards)

	return &testServer{db: db, router: r}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestSubmitAttempt(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "alice")
	ex := testutil.CreateExercise(t, s.db, "Boucles", 20)

	code, env := s.do(t, http.MethodPost, "/api/attempts", gin.H{
		"user_id": user.ID, "exercise_id": ex.ID, "passed": true, "score": 100,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var result service.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.FirstPass)
	assert.Equal(t, 20, result.XPAwarded)
	assert.Contains(t, result.AchievementsAwarded, model.AchievementFirstExercise)
	assert.Contains(t, result.BadgesAwarded, "BEGINNER")
}

func TestSubmitAttemptErrors(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "bob")

	code, _ := s.do(t, http.MethodPost, "/api/attempts", gin.H{
		"user_id": user.ID, "exercise_id": 1, "passed": true, "score": 150,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/attempts", gin.H{
		"user_id": user.ID, "exercise_id": 999, "passed": true, "score": 50,
	})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/attempts", gin.H{
		"user_id": 999, "exercise_id": 1, "passed": true, "score": 50,
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUseHint(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "carol")
	ex := testutil.CreateExercise(t, s.db, "Listes", 10)
	hint := testutil.CreateHint(t, s.db, ex.ID, "Pensez à range()", 5)
	testutil.SetXP(t, s.db, user.ID, 12)

	path := fmt.Sprintf("/api/hints/%d/use", hint.ID)
	code, env := s.do(t, http.MethodPost, path, gin.H{"user_id": user.ID})
	require.Equal(t, http.StatusOK, code, env.Message)

	var result service.HintResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 5, result.XPCharged)
	assert.Equal(t, 7, result.RemainingXP)

	code, env = s.do(t, http.MethodPost, path, gin.H{"user_id": user.ID})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.AlreadyUsed)
	assert.Equal(t, 0, result.XPCharged)
	assert.Equal(t, 5, result.UnlockCharge)
	assert.Equal(t, 7, result.RemainingXP)

	code, _ = s.do(t, http.MethodPost, "/api/hints/abc/use", gin.H{"user_id": user.ID})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/hints/999/use", gin.H{"user_id": user.ID})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProgressAndLeaderboard(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateStudent(t, s.db, "alice")
	bob := testutil.CreateStudent(t, s.db, "bob")
	testutil.SetXP(t, s.db, alice.ID, 250)
	testutil.SetXP(t, s.db, bob.ID, 80)

	code, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/progress", alice.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var summary model.ProgressSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 250, summary.XP)
	assert.Equal(t, 3, summary.Level)

	code, env = s.do(t, http.MethodGet, "/api/leaderboard?limit=1", nil)
	require.Equal(t, http.StatusOK, code)
	var entries []model.LeaderboardEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, alice.ID, entries[0].UserID)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/leaderboard/rank/%d", bob.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var rank service.RankResult
	require.NoError(t, json.Unmarshal(env.Data, &rank))
	assert.Equal(t, 2, rank.Rank)

	code, _ = s.do(t, http.MethodGet, "/api/users/999/progress", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRecordActivity(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "dave")
	path := fmt.Sprintf("/api/users/%d/activity", user.ID)

	code, env := s.do(t, http.MethodPost, path, gin.H{"date": "2024-03-04"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var result service.ActivityResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "2024-03-04", result.Day)
	assert.Equal(t, 1, result.CurrentStreak)

	code, _ = s.do(t, http.MethodPost, path, gin.H{"date": "04/03/2024"})
	assert.Equal(t, http.StatusBadRequest, code)

	nowFunc = func() time.Time { return time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = time.Now })
	code, env = s.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "2024-03-05", result.Day)
	assert.Equal(t, 2, result.CurrentStreak)
}

func TestReevaluateAndCatalog(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "erin")
	testutil.SetXP(t, s.db, user.ID, 120)

	code, env := s.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/reevaluate", user.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var body struct {
		BadgesAwarded []string `json:"badges_awarded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Contains(t, body.BadgesAwarded, "BEGINNER")

	code, env = s.do(t, http.MethodGet, "/api/badges", nil)
	require.Equal(t, http.StatusOK, code)
	var view service.CatalogView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Len(t, view.Badges, len(service.DefaultBadges()))
	assert.Len(t, view.Achievements, len(service.DefaultAchievements()))
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"database":"up"`)
}

func TestAdjustXP(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "frank")
	path := fmt.Sprintf("/api/users/%d/xp", user.ID)

	code, env := s.do(t, http.MethodPost, path, gin.H{"delta": 150})
	require.Equal(t, http.StatusOK, code, env.Message)
	var change service.XPChange
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.Equal(t, 150, change.Delta)
	assert.Equal(t, 150, change.NewTotalXP)
	assert.Equal(t, 2, change.NewLevel)
	assert.Equal(t, []string{"BEGINNER", "EXPLORER"}, change.BadgesAwarded)

	code, env = s.do(t, http.MethodPost, path, gin.H{"delta": -200})
	require.Equal(t, http.StatusOK, code, env.Message)
	change = service.XPChange{}
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.Equal(t, -150, change.Delta)
	assert.Equal(t, 0, change.NewTotalXP)
	assert.Equal(t, 1, change.NewLevel)

	code, _ = s.do(t, http.MethodPost, path, gin.H{"delta": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, path, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, "/api/users/999/xp", gin.H{"delta": 10})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAttemptHistoryRoutes(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateStudent(t, s.db, "grace")
	ex := testutil.CreateExercise(t, s.db, "Piles", 10)

	for _, passed := range []bool{false, true} {
		code, env := s.do(t, http.MethodPost, "/api/attempts", gin.H{
			"user_id": user.ID, "exercise_id": ex.ID, "passed": passed, "score": 50,
		})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}

	code, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/attempts?limit=1", user.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var attempts []model.Attempt
	require.NoError(t, json.Unmarshal(env.Data, &attempts))
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Passed)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/exercises/%d", user.ID, ex.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var status service.ExerciseStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, int64(2), status.Attempts)
	assert.True(t, status.Passed)
	assert.Equal(t, 50, status.SuccessRate)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/exercises/999", user.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodGet, "/api/users/999/attempts", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
