package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/keymanager/internal/errors"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// ParsePagination reads the offset and limit query parameters. Offset defaults to
// 0 and limit to 50; limit may not exceed 100. Errors wrap apperrors.ErrInvalidInput.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || validation.Validate(offset, validation.Min(0)) != nil {
		return 0, 0, fmt.Errorf("%w: offset must be a non-negative integer", apperrors.ErrInvalidInput)
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || validation.Validate(limit, validation.Required, validation.Min(1), validation.Max(maxLimit)) != nil {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", apperrors.ErrInvalidInput, maxLimit)
	}

	return offset, limit, nil
}

// Page returns the window of items selected by offset and limit.
func Page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
