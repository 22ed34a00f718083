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

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const leaderboardCacheKey = "gamification:leaderboard:top"

// LeaderboardService ranks active students by XP. When Redis is configured
// the top of the board is cached for CacheTTL and dropped on every XP change.
type LeaderboardService struct {
	DB           *gorm.DB
	ProgressRepo *repository.ProgressRepository
	Redis        *redis.Client
	CacheTTL     time.Duration
}

func NewLeaderboardService(db *gorm.DB, progressRepo *repository.ProgressRepository, rdb *redis.Client, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{DB: db, ProgressRepo: progressRepo, Redis: rdb, CacheTTL: ttl}
}

type RankResult struct {
	UserID uint `json:"userId"`
	XP     int  `json:"xp"`
	Level  int  `json:"level"`
	Rank   int  `json:"rank"`
}

// Top returns up to limit entries of the board. With Redis the first 100
// entries are served from cache. A read racing a commit may store the board
// as it was before that commit after the commit invalidated the key; such a
// board stays visible for at most CacheTTL, so keep the TTL short.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = util.DefaultLeaderboardLimit
	}
	if limit > util.MaxLeaderboardLimit {
		limit = util.MaxLeaderboardLimit
	}

	if entries, ok := s.cached(ctx); ok {
		return truncate(entries, limit), nil
	}

	entries, err := s.ProgressRepo.WithTx(s.DB.WithContext(ctx)).TopByXP(util.MaxLeaderboardLimit)
	if err != nil {
		return nil, err
	}
	assignRanks(entries)
	s.store(ctx, entries)
	return truncate(entries, limit), nil
}

// Rank is 1 + the number of students with strictly more XP, so ties share a rank.
func (s *LeaderboardService) Rank(ctx context.Context, userID uint) (*RankResult, error) {
	repo := s.ProgressRepo.WithTx(s.DB.WithContext(ctx))
	account, err := repo.FindByUserID(userID)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %d", util.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	ahead, err := repo.CountAhead(account.XP)
	if err != nil {
		return nil, err
	}
	return &RankResult{
		UserID: userID,
		XP:     account.XP,
		Level:  account.Level,
		Rank:   int(ahead) + 1,
	}, nil
}

// Invalidate drops the cached board. Failures only cost freshness.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
	}
}

func (s *LeaderboardService) cached(ctx context.Context) ([]model.LeaderboardEntry, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, leaderboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Failed to read leaderboard cache", zap.Error(err))
		}
		return nil, false
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Log.Warn("Discarding malformed leaderboard cache", zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) store(ctx context.Context, entries []model.LeaderboardEntry) {
	if s.Redis == nil || s.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, leaderboardCacheKey, raw, s.CacheTTL).Err(); err != nil {
		logger.Log.Warn("Failed to write leaderboard cache", zap.Error(err))
	}
}

// assignRanks expects entries sorted by XP descending.
func assignRanks(entries []model.LeaderboardEntry) {
	for i := range entries {
		if i > 0 && entries[i].XP == entries[i-1].XP {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

func truncate(entries []model.LeaderboardEntry, limit int) []model.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
