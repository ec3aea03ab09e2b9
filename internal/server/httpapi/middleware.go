package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// authenticate reads an optional bearer token. Requests without one stay
// anonymous; a token that does not verify is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortError(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		if len(s.secret) == 0 {
			abortError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), s.secret)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "token rejected", "error", err.Error())
			abortError(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set(common.UserIDContextKey, userID)
		c.Next()
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID(c) == "" {
			abortError(c, http.StatusUnauthorized, "authorization header required")
			return
		}
		c.Next()
	}
}

// limitBody caps the request body. Reads past the cap fail with
// *http.MaxBytesError, mapped to 413.
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxUpload > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
		}
		c.Next()
	}
}

// observe logs and counts every request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.ObserveRequest(route, strconv.Itoa(code))

		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", code,
			"duration", time.Since(start).String(),
			"client", c.ClientIP(),
		)
	}
}

func userID(c *gin.Context) string {
	return c.GetString(common.UserIDContextKey)
}
