package service

import (
	"errors"
	"fmt"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/util"
	"nsi_edu_backend/pkg/logger"
	"nsi_edu_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AchievementStats is everything the achievement predicates look at,
// gathered once per evaluation.
type AchievementStats struct {
	DistinctPassed    int64
	HasPassed         bool
	LatestPassedScore int
	CurrentStreak     int
}

type AchievementRule struct {
	Code string
	Met  func(AchievementStats) bool
}

// DefaultAchievementRules are threshold predicates: combined with the grant
// guard they fire once, even when history already exceeds the threshold.
func DefaultAchievementRules() []AchievementRule {
	return []AchievementRule{
		{Code: model.AchievementFirstExercise, Met: func(s AchievementStats) bool { return s.DistinctPassed >= 1 }},
		{Code: model.AchievementTenExercises, Met: func(s AchievementStats) bool { return s.DistinctPassed >= 10 }},
		{Code: model.AchievementPerfectScore, Met: func(s AchievementStats) bool { return s.HasPassed && s.LatestPassedScore == 100 }},
		{Code: model.AchievementWeekStreak, Met: func(s AchievementStats) bool { return s.CurrentStreak >= 7 }},
	}
}

// AwardOutcome is what one evaluation granted.
type AwardOutcome struct {
	Achievements  []model.Achievement
	Badges        []model.Badge
	AchievementXP int
}

func (o *AwardOutcome) AchievementCodes() []string {
	codes := make([]string, 0, len(o.Achievements))
	for _, a := range o.Achievements {
		codes = append(codes, a.Code)
	}
	return codes
}

func (o *AwardOutcome) BadgeCodes() []string {
	codes := make([]string, 0, len(o.Badges))
	for _, b := range o.Badges {
		codes = append(codes, b.Code)
	}
	return codes
}

// record publishes metrics; call it only once the grants are committed.
func (o *AwardOutcome) record() {
	for _, a := range o.Achievements {
		monitoring.RecordAward(monitoring.AwardKindAchievement, a.Code)
	}
	for _, b := range o.Badges {
		monitoring.RecordAward(monitoring.AwardKindBadge, b.Code)
	}
	monitoring.RecordXP(monitoring.XPSourceAchievement, o.AchievementXP)
}

// AwardEngine grants badges and achievements at most once per user.
// Every method works on the caller's transaction; callers hold the user lock.
type AwardEngine struct {
	Catalog      AwardCatalog
	Rules        []AchievementRule
	AwardRepo    *repository.AwardRepository
	AttemptRepo  *repository.AttemptRepository
	StreakRepo   *repository.StreakRepository
	ProgressRepo *repository.ProgressRepository
}

func NewAwardEngine(
	catalog AwardCatalog,
	awardRepo *repository.AwardRepository,
	attemptRepo *repository.AttemptRepository,
	streakRepo *repository.StreakRepository,
	progressRepo *repository.ProgressRepository,
) *AwardEngine {
	return &AwardEngine{
		Catalog:      catalog,
		Rules:        DefaultAchievementRules(),
		AwardRepo:    awardRepo,
		AttemptRepo:  attemptRepo,
		StreakRepo:   streakRepo,
		ProgressRepo: progressRepo,
	}
}

func (e *AwardEngine) CollectStats(tx *gorm.DB, userID uint) (AchievementStats, error) {
	var stats AchievementStats

	attempts := e.AttemptRepo.WithTx(tx)
	distinct, err := attempts.CountDistinctPassed(userID)
	if err != nil {
		return stats, err
	}
	stats.DistinctPassed = distinct

	latest, err := attempts.FindLatestPassed(userID)
	switch {
	case err == nil:
		stats.HasPassed = true
		stats.LatestPassedScore = latest.Score
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return stats, err
	}

	streak, err := e.StreakRepo.WithTx(tx).FindByUserID(userID)
	switch {
	case err == nil:
		stats.CurrentStreak = streak.CurrentStreak
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return stats, err
	}
	return stats, nil
}

// EvaluateAchievements grants every achievement whose predicate holds and
// which the user does not have yet, crediting its reward to account.
// The account is persisted when it changed.
func (e *AwardEngine) EvaluateAchievements(tx *gorm.DB, account *model.ProgressAccount) ([]model.Achievement, error) {
	stats, err := e.CollectStats(tx, account.UserID)
	if err != nil {
		return nil, fmt.Errorf("collect achievement stats: %w", err)
	}

	awards := e.AwardRepo.WithTx(tx)
	var granted []model.Achievement
	for _, rule := range e.Rules {
		if !rule.Met(stats) {
			continue
		}
		has, err := awards.HasUserAchievement(account.UserID, rule.Code)
		if err != nil {
			return nil, err
		}
		if has {
			continue
		}

		def, ok, err := e.resolveAchievement(awards, rule.Code)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		created, err := awards.CreateUserAchievement(account.UserID, rule.Code)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}
		account.AddXP(def.XPReward)
		granted = append(granted, def)
	}

	if len(granted) > 0 {
		if err := e.ProgressRepo.WithTx(tx).Save(account); err != nil {
			return nil, err
		}
	}
	return granted, nil
}

// resolveAchievement falls back to the built-in definition when the catalog
// lacks code, creating the row if needed so grants always join to a definition.
func (e *AwardEngine) resolveAchievement(awards *repository.AwardRepository, code string) (model.Achievement, bool, error) {
	if def, ok := e.Catalog.Achievement(code); ok {
		return def, true, nil
	}

	def, ok := DefaultAchievement(code)
	if !ok {
		logger.Log.Warn("Skipping achievement without definition",
			zap.String("code", code),
			zap.Error(util.ErrCatalogInconsistent),
		)
		return model.Achievement{}, false, nil
	}

	logger.Log.Warn("Achievement missing from catalog, using default definition",
		zap.String("code", code),
		zap.Int("xp_reward", def.XPReward),
	)
	if _, err := awards.EnsureAchievement(&def); err != nil {
		return model.Achievement{}, false, err
	}
	return def, true, nil
}

// EvaluateBadges grants every active badge whose requirement is met by the
// account's XP. XP is read once, so the whole batch sees the same value.
func (e *AwardEngine) EvaluateBadges(tx *gorm.DB, account *model.ProgressAccount) ([]model.Badge, error) {
	xp := account.XP

	awards := e.AwardRepo.WithTx(tx)
	var granted []model.Badge
	for _, badge := range e.Catalog.ActiveBadges() {
		if xp < badge.XPRequirement {
			continue
		}
		has, err := awards.HasUserBadge(account.UserID, badge.Code)
		if err != nil {
			return nil, err
		}
		if has {
			continue
		}
		created, err := awards.CreateUserBadge(account.UserID, badge.Code)
		if err != nil {
			return nil, err
		}
		if created {
			granted = append(granted, badge)
		}
	}
	return granted, nil
}

// Evaluate runs achievements before badges so that an achievement reward
// can unlock a badge within the same call.
func (e *AwardEngine) Evaluate(tx *gorm.DB, account *model.ProgressAccount) (*AwardOutcome, error) {
	before := account.XP
	achievements, err := e.EvaluateAchievements(tx, account)
	if err != nil {
		return nil, err
	}
	badges, err := e.EvaluateBadges(tx, account)
	if err != nil {
		return nil, err
	}
	return &AwardOutcome{
		Achievements:  achievements,
		Badges:        badges,
		AchievementXP: account.XP - before,
	}, nil
}
