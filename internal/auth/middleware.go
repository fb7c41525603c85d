package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campattend/internal/model"
)

// SessionLookup resolves a live session by id; expired or revoked sessions
// must come back as an error.
type SessionLookup interface {
	Lookup(ctx context.Context, id string) (*model.Session, error)
}

const sessionKey = "session"

// SessionAuth enforces bearer JWT tokens and a live server-side session of
// the required role. Absence or expiry yields 401 so the client returns to
// the matching login route.
func SessionAuth(signingKey, issuer, role string, sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		sess, err := sessions.Lookup(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, sign in again"})
			return
		}
		if role != "" && sess.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "wrong session kind"})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session attached by SessionAuth.
func CurrentSession(c *gin.Context) *model.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*model.Session)
	return sess
}
