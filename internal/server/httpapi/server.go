// Package httpapi exposes the tools over HTTP with gin. Every route
// accepts CORS pre-flight requests, tool routes take multipart uploads,
// and all errors are JSON objects of the form {"error": "..."}.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/diff"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/dmitrijs2005/pdtools/internal/protection"
	"github.com/dmitrijs2005/pdtools/internal/server/metrics"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
	"github.com/dmitrijs2005/pdtools/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Tools is the application surface used by the handlers.
type Tools interface {
	Protect(ctx context.Context, up services.Upload, password string, perms protection.Permissions) (*services.Output, error)
	Unlock(ctx context.Context, up services.Upload, password string) (*services.Output, error)
	Compare(ctx context.Context, userID string, file1, file2 services.Upload) (*diff.Result, error)
	History(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error)
	DownloadURL(ctx context.Context, userID, id string) (string, error)
	Usage(ctx context.Context, userID string, days int) ([]*models.DailyUsage, error)
}

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins     []string
	MaxUploadSize      int64
	RateLimitPerMinute int
	RateLimitBurst     int
	SecretKey          string
}

var allowedHeaders = []string{
	"Authorization", "Content-Type", "X-Client-Info", "Apikey", "Origin", "Accept",
}

var exposedHeaders = []string{"Content-Disposition", "Content-Length", "Content-Type", HistoryIDHeader}

// HistoryIDHeader carries the id of the history record of a tool run.
const HistoryIDHeader = "X-History-Id"

type Server struct {
	router    *gin.Engine
	tools     Tools
	logger    logging.Logger
	metrics   *metrics.Metrics
	limiter   *RateLimiter
	secret    []byte
	maxUpload int64
}

func NewServer(tools Tools, m *metrics.Metrics, l logging.Logger, o Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:    gin.New(),
		tools:     tools,
		logger:    l,
		metrics:   m,
		limiter:   NewRateLimiter(o.RateLimitPerMinute, o.RateLimitBurst),
		secret:    []byte(o.SecretKey),
		maxUpload: o.MaxUploadSize,
	}
	if s.maxUpload > 0 {
		s.router.MaxMultipartMemory = s.maxUpload
	}

	s.setupRoutes(o.AllowedOrigins)

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Limiter is exposed so the app can sweep idle clients.
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:              allowedHeaders,
		ExposeHeaders:             exposedHeaders,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cfg
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes(origins []string) {
	// CORS must be first to handle preflight
	s.router.Use(cors.New(corsConfig(origins)))
	s.router.Use(gin.Recovery(), s.observe())

	// pre-flight without an Origin header still gets an empty 200
	s.router.OPTIONS("/*path", s.preflight)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.Use(s.limiter.Middleware(), s.authenticate())
	{
		upload := v1.Group("", s.limitBody())
		upload.POST("/protect", s.protect)
		upload.POST("/unlock", s.unlock)
		upload.POST("/compare", s.compare)

		private := v1.Group("", s.requireUser())
		private.GET("/history", s.listHistory)
		private.GET("/history/:id/download", s.downloadHistory)
		private.GET("/usage", s.usage)
	}
}

func (s *Server) preflight(c *gin.Context) {
	h := c.Writer.Header()
	if h.Get("Access-Control-Allow-Origin") == "" {
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	}
	c.Status(http.StatusOK)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
