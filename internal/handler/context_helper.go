package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// bearerToken extracts the bearer credential from the Authorization header,
// or "" when absent or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
