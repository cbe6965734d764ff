package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthbot/pkg"
)

const (
	ctxUserKey      = "current_user"
	ctxRequestIDKey = "request_id"
)

// requestID tags every request, reusing the caller's X-Request-ID when
// present.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"request_id", c.GetString(ctxRequestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// rateLimit keys on the authenticated user when available, otherwise the
// client IP.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if u, ok := currentUser(c); ok {
			key = "user:" + strconv.FormatInt(u.ID, 10)
		}
		if !s.limiter.Allow(c.Request.Context(), key) {
			fail(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}

// authRequired resolves the bearer token to a user row.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			fail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		email, err := s.tokens.ParseToken(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			fail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		user, err := s.store.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			fail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !user.IsActive {
			fail(c, http.StatusBadRequest, "Inactive user")
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*pkg.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*pkg.User)
	return u, ok
}

// mustUser is only called behind authRequired.
func mustUser(c *gin.Context) *pkg.User {
	u, _ := currentUser(c)
	return u
}
