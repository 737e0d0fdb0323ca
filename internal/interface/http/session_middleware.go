package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
)

// SessionTokens issues and verifies the opaque tokens that bind a caller to a session.
type SessionTokens interface {
	Issue(sessionID string, ttl time.Duration) (string, time.Time, error)
	Parse(token string) (string, error)
}

// sessionMiddleware resolves the session id from a bearer token or the session cookie.
func sessionMiddleware(tokens SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		id, parseErr := tokens.Parse(token)
		if parseErr != nil {
			if apperrors.IsCode(parseErr, apperrors.CodeInvalidToken) {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidToken, apperrors.MessageOf(parseErr), parseErr))
				return
			}
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_failed", apperrors.MessageOf(parseErr), parseErr))
			return
		}
		setSessionID(c, id)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, *HTTPError) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidToken, "invalid authorization header", nil)
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if token, ok := readSessionCookie(c); ok {
		return token, nil
	}
	return "", NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidToken, "missing session token", nil)
}
