package controller

import (
	"fmt"
	"time"

	"nsi_edu_backend/internal/service"
	"nsi_edu_backend/internal/util"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

type ProgressController struct {
	Progress    *service.ProgressService
	Awards      *service.AwardService
	Leaderboard *service.LeaderboardService
	Catalog     *service.CatalogService
	Calendar    service.Calendar
}

func NewProgressController(
	progress *service.ProgressService,
	awards *service.AwardService,
	leaderboard *service.LeaderboardService,
	catalog *service.CatalogService,
	calendar service.Calendar,
) *ProgressController {
	return &ProgressController{
		Progress:    progress,
		Awards:      awards,
		Leaderboard: leaderboard,
		Catalog:     catalog,
		Calendar:    calendar,
	}
}

// @Summary User progress
// @Description XP, level, streak and earned awards
// @Tags gamification
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} util.Response{data=model.ProgressSummary}
// @Router /api/users/{id}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	summary, err := c.Progress.GetProgress(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

type ActivityRequest struct {
	// Day in YYYY-MM-DD, today in the reference timezone when empty.
	Date string `json:"date"`
}

// @Summary Record activity
// @Description Counts a day of activity for the streak and evaluates awards
// @Tags gamification
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body ActivityRequest false "Day"
// @Success 200 {object} util.Response{data=service.ActivityResult}
// @Router /api/users/{id}/activity [post]
func (c *ProgressController) RecordActivity(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ActivityRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	day := c.Calendar.DateOf(nowFunc())
	if req.Date != "" {
		parsed, err := civil.ParseDate(req.Date)
		if err != nil {
			util.BadRequest(ctx, fmt.Sprintf("invalid date %q, expected %s", req.Date, util.DateFormat))
			return
		}
		day = parsed
	}

	result, err := c.Awards.RecordActivity(ctx.Request.Context(), userID, day)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type AdjustXPRequest struct {
	// Positive credits, negative deducts (clamped at zero).
	Delta *int `json:"delta" binding:"required"`
}

// @Summary Adjust XP
// @Description Manual correction; credits can unlock badges, deductions never revoke them
// @Tags gamification
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body AdjustXPRequest true "Signed delta"
// @Success 200 {object} util.Response{data=service.XPChange}
// @Router /api/users/{id}/xp [post]
func (c *ProgressController) AdjustXP(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req AdjustXPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	delta := *req.Delta
	if delta == 0 {
		util.BadRequest(ctx, "delta must not be zero")
		return
	}

	var (
		change *service.XPChange
		err    error
	)
	if delta > 0 {
		change, err = c.Progress.AddXP(ctx.Request.Context(), userID, delta)
	} else {
		change, err = c.Progress.SpendXP(ctx.Request.Context(), userID, -delta)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, change)
}

// @Summary Re-evaluate awards
// @Description Grants whatever the user's history qualifies for, e.g. after an import
// @Tags gamification
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} util.Response
// @Router /api/users/{id}/reevaluate [post]
func (c *ProgressController) Reevaluate(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	outcome, account, err := c.Awards.Reevaluate(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"user_id":              userID,
		"new_total_xp":         account.XP,
		"new_level":            account.Level,
		"achievement_xp":       outcome.AchievementXP,
		"badges_awarded":       outcome.BadgeCodes(),
		"achievements_awarded": outcome.AchievementCodes(),
	})
}

// @Summary Leaderboard
// @Tags gamification
// @Produce json
// @Param limit query int false "Entries" default(20)
// @Success 200 {object} util.Response{data=[]model.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *ProgressController) GetLeaderboard(ctx *gin.Context) {
	limit := util.ParseLimit(ctx.Query("limit"), util.DefaultLeaderboardLimit, util.MaxLeaderboardLimit)
	entries, err := c.Leaderboard.Top(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// @Summary Leaderboard rank of a user
// @Tags gamification
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} util.Response{data=service.RankResult}
// @Router /api/leaderboard/rank/{id} [get]
func (c *ProgressController) GetRank(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rank, err := c.Leaderboard.Rank(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rank)
}

// @Summary Award catalog
// @Tags gamification
// @Produce json
// @Success 200 {object} util.Response{data=service.CatalogView}
// @Router /api/badges [get]
func (c *ProgressController) ListAwards(ctx *gin.Context) {
	view, err := c.Catalog.Definitions(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
