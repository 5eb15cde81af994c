// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package webadmin

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenHeader carries the admin token on requests to /api/admin routes.
const TokenHeader = "X-Admin-Token"

// requireToken guards the admin group. With no token configured the
// endpoints fail closed: a deployment that never set a token must not
// expose pipeline state by accident.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin access is not configured"})
			return
		}

		header := c.GetHeader(TokenHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + TokenHeader + " header"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(header), []byte(s.cfg.Token)) != 1 {
			s.log.Warn("admin token rejected", zap.String("remote_addr", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin token"})
			return
		}

		c.Next()
	}
}
