package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/cabinet/pkg/errors"
	"github.com/charlesng35/cabinet/pkg/response"
)

const (
	// HeaderUserID carries the caller identity resolved by the upstream gateway.
	HeaderUserID = "X-User-ID"
	CtxUserIDKey = "userID"
)

// Identity requires the gateway-provided user header and propagates it into the request context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" || len(userID) > 64 {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}
