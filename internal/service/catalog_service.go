package service

import (
	"context"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService seeds and loads the award catalog. Seeding is an explicit
// startup step; submissions only ever read the loaded catalog.
type CatalogService struct {
	DB        *gorm.DB
	AwardRepo *repository.AwardRepository
}

func NewCatalogService(db *gorm.DB, awardRepo *repository.AwardRepository) *CatalogService {
	return &CatalogService{DB: db, AwardRepo: awardRepo}
}

type SeedReport struct {
	BadgesCreated       int `json:"badgesCreated"`
	AchievementsCreated int `json:"achievementsCreated"`
}

// Seed get-or-creates the default definitions by code. Existing rows,
// including admin edits, are never overwritten. Safe to run concurrently.
func (s *CatalogService) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.AwardRepo.WithTx(tx)
		for _, badge := range DefaultBadges() {
			b := badge
			created, err := repo.EnsureBadge(&b)
			if err != nil {
				return err
			}
			if created {
				report.BadgesCreated++
				logger.Log.Info("Created badge", zap.String("code", b.Code))
			}
		}
		for _, achievement := range DefaultAchievements() {
			a := achievement
			created, err := repo.EnsureAchievement(&a)
			if err != nil {
				return err
			}
			if created {
				report.AchievementsCreated++
				logger.Log.Info("Created achievement", zap.String("code", a.Code))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Award catalog seeded",
		zap.Int("badges_created", report.BadgesCreated),
		zap.Int("achievements_created", report.AchievementsCreated),
	)
	return report, nil
}

// Load snapshots the catalog tables into an immutable catalog.
func (s *CatalogService) Load(ctx context.Context) (*StaticCatalog, error) {
	repo := s.AwardRepo.WithTx(s.DB.WithContext(ctx))
	badges, err := repo.ListBadges(true)
	if err != nil {
		return nil, err
	}
	achievements, err := repo.ListAchievements()
	if err != nil {
		return nil, err
	}

	for _, def := range DefaultAchievements() {
		found := false
		for _, a := range achievements {
			if a.Code == def.Code {
				found = true
				break
			}
		}
		if !found {
			logger.Log.Warn("Achievement missing from catalog, defaults will be used", zap.String("code", def.Code))
		}
	}

	return NewStaticCatalog(badges, achievements), nil
}

type CatalogView struct {
	Badges       []model.Badge       `json:"badges"`
	Achievements []model.Achievement `json:"achievements"`
}

// Definitions lists every badge, including inactive ones, and every achievement.
func (s *CatalogService) Definitions(ctx context.Context) (*CatalogView, error) {
	repo := s.AwardRepo.WithTx(s.DB.WithContext(ctx))
	badges, err := repo.ListBadges(false)
	if err != nil {
		return nil, err
	}
	achievements, err := repo.ListAchievements()
	if err != nil {
		return nil, err
	}
	return &CatalogView{Badges: badges, Achievements: achievements}, nil
}
