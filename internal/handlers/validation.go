package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// parseIntQuery reads a positive integer query parameter, returning fallback when absent or malformed.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
