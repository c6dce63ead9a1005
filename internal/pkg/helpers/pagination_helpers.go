package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampLimit normalizes a requested list size into [1, MaxListLimit]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ParseLimitParam extracts the `limit` query parameter, falling back to the default
func ParseLimitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultListLimit)))
	if err != nil {
		return DefaultListLimit
	}
	return ClampLimit(limit)
}
