package pagination

import (
	"strconv"
	"strings"

	apperrors "bharatconnect/pkg/errors"
)

// Constants
const (
	DefaultLimit = 50
	MaxLimit     = 100
	MinLimit     = 1
)

// CursorParams represents cursor pagination query parameters
type CursorParams struct {
	Limit  int
	Cursor string
}

// ParseCursorParams parses ?limit= and ?cursor= values. Out of range limits are
// clamped; a non-numeric limit is a validation error.
func ParseCursorParams(limitStr, cursor string) (*CursorParams, error) {
	limit := DefaultLimit

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, apperrors.ValidationError("invalid limit parameter")
		}
		limit = ClampLimit(l)
	}

	return &CursorParams{
		Limit:  limit,
		Cursor: strings.TrimSpace(cursor),
	}, nil
}

// ClampLimit bounds limit to [MinLimit, MaxLimit]
func ClampLimit(limit int) int {
	switch {
	case limit < MinLimit:
		return MinLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
