package util

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrExerciseNotFound    = errors.New("exercise not found")
	ErrHintNotFound        = errors.New("hint not found")
	ErrLockTimeout         = errors.New("timed out waiting for user lock")
	ErrCatalogInconsistent = errors.New("award catalog inconsistent")
)
