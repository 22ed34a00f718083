package service

import (
	"context"
	"testing"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCatalog(t *testing.T) {
	c := NewStaticCatalog([]model.Badge{
		{Code: "B", XPRequirement: 500, IsActive: true},
		{Code: "A", XPRequirement: 100, IsActive: true},
		{Code: "X", XPRequirement: 0, IsActive: false},
	}, []model.Achievement{{Code: "FIRST_EXERCISE", XPReward: 5}})

	badges := c.ActiveBadges()
	require.Len(t, badges, 2)
	assert.Equal(t, "A", badges[0].Code)

	badges[0].Code = "mutated"
	assert.Equal(t, "A", c.ActiveBadges()[0].Code, "callers get a copy")

	a, ok := c.Achievement("FIRST_EXERCISE")
	assert.True(t, ok)
	assert.Equal(t, 5, a.XPReward)
	_, ok = c.Achievement("WEEK_STREAK")
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	c := DefaultCatalog()
	assert.Len(t, c.ActiveBadges(), 6)

	rewards := map[string]int{
		model.AchievementFirstExercise: 50,
		model.AchievementTenExercises:  100,
		model.AchievementPerfectScore:  75,
		model.AchievementWeekStreak:    150,
	}
	for code, reward := range rewards {
		a, ok := DefaultAchievement(code)
		require.True(t, ok, code)
		assert.Equal(t, reward, a.XPReward, code)
	}
	_, ok := DefaultAchievement("UNKNOWN")
	assert.False(t, ok)

	// Every default rule has a default definition.
	for _, rule := range DefaultAchievementRules() {
		_, ok := DefaultAchievement(rule.Code)
		assert.True(t, ok, rule.Code)
	}
}

func TestCatalogService_SeedIsIdempotentAndKeepsEdits(t *testing.T) {
	db := testutil.NewTestDB(t)
	awardRepo := repository.NewAwardRepository(db)
	svc := NewCatalogService(db, awardRepo)
	ctx := context.Background()

	report, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{BadgesCreated: 6, AchievementsCreated: 4}, report)

	require.NoError(t, db.Model(&model.Achievement{}).Where("code = ?", model.AchievementWeekStreak).Update("xp_reward", 200).Error)
	require.NoError(t, db.Model(&model.Badge{}).Where("code = ?", "LEGEND").Update("is_active", false).Error)

	report, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{}, report)

	catalog, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog.ActiveBadges(), 5)
	week, ok := catalog.Achievement(model.AchievementWeekStreak)
	require.True(t, ok)
	assert.Equal(t, 200, week.XPReward)
}
