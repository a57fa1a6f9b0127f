package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nuggetsync/nuggetauth"
	"go.uber.org/zap"
)

const ginIdentityKey = "nuggetauth.identity"

// GinGuard is [Guard] for gin routers. It reads the peer from
// Request.RemoteAddr, not gin's ClientIP.
func GinGuard(v Validator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id, err := Authorize(c.Request.Context(), v, c.GetHeader("Authorization"), c.Request.RemoteAddr)
		if err != nil {
			logFailure(logger, c.FullPath(), err)
			WriteError(c.Writer, err)
			c.Abort()
			return
		}
		c.Set(ginIdentityKey, id)
		c.Next()
	}
}

// IdentityFromGin returns the identity stored by [GinGuard].
func IdentityFromGin(c *gin.Context) (nuggetauth.Identity, bool) {
	v, ok := c.Get(ginIdentityKey)
	if !ok {
		return nuggetauth.Identity{}, false
	}
	id, ok := v.(nuggetauth.Identity)
	return id, ok
}
