package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cardledger/internal/service"
	"github.com/cardledger/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
	// ContextKeySessionID is the key for the server-side session id in gin context
	ContextKeySessionID = "session_id"

	// SessionCookie carries the token for browser clients
	SessionCookie = "session"

	MsgUnauthorized   = "인증이 필요합니다."
	MsgSessionExpired = "세션이 만료되었습니다. 다시 로그인해주세요."
)

// AuthMiddleware authenticates the request with a bearer token or the session
// cookie and enforces the session lifecycle policy
func AuthMiddleware(authService *service.AuthService, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			response.Unauthorized(c, MsgUnauthorized)
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionExpired):
				ClearSessionCookie(c, secureCookie)
				response.Unauthorized(c, MsgSessionExpired)
			case errors.Is(err, service.ErrInvalidToken):
				ClearSessionCookie(c, secureCookie)
				response.Unauthorized(c, MsgUnauthorized)
			default:
				LogError("authenticate: %v", err)
				response.InternalError(c, "서버 오류가 발생했습니다.")
			}
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeySessionID, claims.SessionID())

		c.Next()
	}
}

// extractToken prefers the Authorization header over the cookie
func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// SetSessionCookie stores the token in an HttpOnly cookie. maxAge 0 makes a
// browser-session cookie.
func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

// ClearSessionCookie removes the session cookie from the browser
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// GetUserID gets the user ID from the gin context
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	return userID.(uint)
}

// GetUsername gets the username from the gin context
func GetUsername(c *gin.Context) string {
	username, exists := c.Get(ContextKeyUsername)
	if !exists {
		return ""
	}
	return username.(string)
}

// GetSessionID gets the session id from the gin context
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}
