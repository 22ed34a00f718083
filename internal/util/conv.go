package util

import (
	"fmt"
	"strconv"
)

// ParseID parses a positive numeric path parameter.
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad id %q", ErrInvalidInput, s)
	}
	return uint(id), nil
}

// ParseLimit parses an optional limit query value, clamped to [1, max].
func ParseLimit(s string, def, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
