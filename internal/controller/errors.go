package controller

import (
	"errors"

	"nsi_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the response envelope.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidInput):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrExerciseNotFound),
		errors.Is(err, util.ErrHintNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrLockTimeout):
		util.ServiceUnavailable(ctx, "user is busy, retry later")
	default:
		util.LogInternalError(ctx, err)
	}
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return 0, false
	}
	return id, true
}
