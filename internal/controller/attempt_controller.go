package controller

import (
	"nsi_edu_backend/internal/service"
	"nsi_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AttemptController is the entry point for the grading subsystem.
type AttemptController struct {
	Recorder *service.AttemptRecorder
	History  *service.AttemptHistory
	Hints    *service.HintService
}

func NewAttemptController(recorder *service.AttemptRecorder, history *service.AttemptHistory, hints *service.HintService) *AttemptController {
	return &AttemptController{Recorder: recorder, History: history, Hints: hints}
}

// @Summary Record a submission
// @Description Logs the attempt, credits first-pass XP, updates the streak and grants awards
// @Tags gamification
// @Accept json
// @Produce json
// @Param request body service.SubmitRequest true "Graded submission"
// @Success 201 {object} util.Response{data=service.SubmitResult}
// @Router /api/attempts [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Recorder.Submit(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

type UseHintRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// @Summary Use a hint
// @Description Reveals a hint; the XP cost is charged on first use only
// @Tags gamification
// @Accept json
// @Produce json
// @Param id path int true "Hint ID"
// @Param request body UseHintRequest true "User"
// @Success 200 {object} util.Response{data=service.HintResult}
// @Router /api/hints/{id}/use [post]
func (c *AttemptController) UseHint(ctx *gin.Context) {
	hintID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req UseHintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Hints.UseHint(ctx.Request.Context(), req.UserID, hintID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Attempt history
// @Description Most recent attempts of a user first
// @Tags gamification
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Entries" default(20)
// @Success 200 {object} util.Response{data=[]model.Attempt}
// @Router /api/users/{id}/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	limit := util.ParseLimit(ctx.Query("limit"), util.DefaultAttemptLimit, util.MaxAttemptLimit)

	attempts, err := c.History.List(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary Exercise status for a user
// @Description Attempts, whether the user passed, and the class success rate
// @Tags gamification
// @Produce json
// @Param id path int true "User ID"
// @Param exercise_id path int true "Exercise ID"
// @Success 200 {object} util.Response{data=service.ExerciseStatus}
// @Router /api/users/{id}/exercises/{exercise_id} [get]
func (c *AttemptController) ExerciseStatus(ctx *gin.Context) {
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	exerciseID, ok := paramID(ctx, "exercise_id")
	if !ok {
		return
	}

	status, err := c.History.ExerciseStatus(ctx.Request.Context(), userID, exerciseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, status)
}
