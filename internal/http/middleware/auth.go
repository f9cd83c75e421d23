package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userIDKey is the Gin context key holding the authenticated user id.
const userIDKey = "userID"

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Auth requires "Authorization: Bearer <token>" and stores the resolved user
// id under "userID". The request-scoped logger gains a user_id field.
// Missing or rejected tokens get 401 with a WWW-Authenticate challenge.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="mindmate"`)
			abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		uid, err := a.Authenticate(c.Request.Context(), tok)
		if err != nil || uid == "" {
			c.Header("WWW-Authenticate", `Bearer realm="mindmate", error="invalid_token"`)
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		c.Set(userIDKey, uid)
		attachLogger(c, LoggerFrom(c).With().Str("user_id", uid).Logger())
		c.Next()
	}
}

// UserID returns the id stored by Auth.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

func bearerToken(h string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
