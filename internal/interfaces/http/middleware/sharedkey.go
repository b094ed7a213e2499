package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portal/backend/internal/interfaces/http/dto"
)

// SyncKeyHeader carries the secret for machine-to-machine sync calls
const SyncKeyHeader = "x-sync-key"

// SharedKey admits requests whose header equals secret. An empty secret
// closes the route.
func SharedKey(header, secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(header))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Invalid or missing "+header, GetRequestID(c)))
			return
		}
		c.Next()
	}
}
