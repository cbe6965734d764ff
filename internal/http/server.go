// Package http exposes the JSON API.
package http

import (
	"context"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"healthbot/internal/auth"
	"healthbot/internal/cache"
	"healthbot/internal/config"
	"healthbot/internal/core"
	"healthbot/internal/llm"
	"healthbot/internal/logging"
	"healthbot/pkg"
)

// Store is the persistence surface the API needs on top of the core
// services. *db.Repository implements it.
type Store interface {
	core.Store

	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u *pkg.User) (*pkg.User, error)
	GetUserByEmail(ctx context.Context, email string) (*pkg.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

// Server wires config, storage, cache, and the LLM-backed services into a
// gin router.
type Server struct {
	cfg      *config.Config
	store    Store
	cache    *cache.Cache
	limiter  *cache.Limiter
	model    llm.Client
	tokens   *auth.Manager
	chat     *core.ChatService
	symptoms *core.SymptomService
	reports  *core.ReportService
	log      *slog.Logger
}

// New builds a Server. cache may be nil; rate limiting then fails open and
// readiness skips Redis.
func New(cfg *config.Config, store Store, c *cache.Cache, model llm.Client) *Server {
	var limiter *cache.Limiter
	if c != nil {
		limiter = cache.NewLimiter(c, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		cache:    c,
		limiter:  limiter,
		model:    model,
		tokens:   auth.NewManager(cfg.JWTSecretKey, cfg.AccessTokenExpiry),
		chat:     core.NewChatService(store, model),
		symptoms: core.NewSymptomService(store, model),
		reports:  core.NewReportService(store, model),
		log:      logging.Module("http"),
	}
}

// Router assembles the full route table.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.GET("/", s.root)
	r.GET("/api", s.apiInfo)

	health := r.Group("/api/health")
	{
		health.GET("", s.health)
		health.GET("/detailed", s.healthDetailed)
		health.GET("/ready", s.healthReady)
		health.GET("/live", s.healthLive)
	}

	authGroup := r.Group("/api/auth", s.rateLimit())
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/token", s.token)
		authGroup.GET("/me", s.authRequired(), s.me)
	}

	chat := r.Group("/api/chat", s.authRequired(), s.rateLimit())
	{
		chat.POST("/start", s.chatStart)
		chat.POST("/send-message", s.chatSend)
		chat.GET("/conversations", s.chatConversations)
		chat.GET("/conversation/:id", s.chatConversation)
		chat.PUT("/conversation/:id/complete", s.chatComplete)
		chat.POST("/conversation/:id/generate-followup", s.chatFollowup)
	}

	symptoms := r.Group("/api/symptoms", s.authRequired(), s.rateLimit())
	{
		symptoms.POST("/record", s.symptomRecord)
		symptoms.GET("/list", s.symptomList)
		symptoms.GET("/categories", s.symptomCategories)
		symptoms.POST("/analyze", s.symptomAnalyze)
		symptoms.GET("/stats", s.symptomStats)
		symptoms.PUT("/update/:id", s.symptomUpdate)
		symptoms.DELETE("/delete/:id", s.symptomDelete)
	}

	// Share-code access is deliberately unauthenticated: the code is handed
	// to a provider who has no account.
	r.GET("/api/reports/shared/:code", s.rateLimit(), s.reportShared)

	reports := r.Group("/api/reports", s.authRequired(), s.rateLimit())
	{
		reports.GET("/list", s.reportList)
		reports.POST("/generate", s.reportGenerate)
		reports.GET("/:id", s.reportGet)
		reports.GET("/:id/download", s.reportDownload)
	}

	return r
}

func (s *Server) root(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "HealthBot Medical Diagnosis Assistant API",
		"version": s.cfg.AppVersion,
		"docs":    "/api",
	})
}

func (s *Server) apiInfo(c *gin.Context) {
	c.JSON(200, gin.H{
		"name":    s.cfg.AppName,
		"version": s.cfg.AppVersion,
		"endpoints": gin.H{
			"health":   "/api/health",
			"auth":     "/api/auth",
			"chat":     "/api/chat",
			"symptoms": "/api/symptoms",
			"reports":  "/api/reports",
		},
	})
}

// fail writes the API error envelope.
func fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
