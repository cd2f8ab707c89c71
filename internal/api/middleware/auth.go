package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/apperr"
)

const userIDKey = "userID"

// TokenVerifier resolves a session token to a user id.
type TokenVerifier interface {
	Authenticate(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token. When allowQuery is
// set the token may also come from the "token" query parameter, which is how
// socket clients that cannot set headers authenticate.
func RequireAuth(v TokenVerifier, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && allowQuery {
			token = c.Query("token")
		}
		if token == "" {
			Fail(c, apperr.Unauthorized("auth.token_missing", "missing session token"))
			return
		}

		userID, err := v.Authenticate(token)
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller set by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
