package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"app":       s.cfg.AppName,
		"version":   s.cfg.AppVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) healthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// healthReady gates traffic on the hard dependencies only; the LLM being
// down degrades responses but the service can still serve.
func (s *Server) healthReady(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.store.Ping(ctx); err != nil {
		fail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			fail(c, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) healthDetailed(c *gin.Context) {
	ctx := c.Request.Context()
	components := gin.H{}
	status := "healthy"
	code := http.StatusOK

	if err := s.store.Ping(ctx); err != nil {
		components["database"] = gin.H{"status": "unhealthy", "error": err.Error()}
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		components["database"] = gin.H{"status": "healthy"}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			components["redis"] = gin.H{"status": "unhealthy", "error": err.Error()}
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		} else {
			components["redis"] = gin.H{"status": "healthy"}
		}
	} else {
		components["redis"] = gin.H{"status": "disabled"}
	}

	if s.model.Available(ctx) {
		components["llm"] = gin.H{"status": "healthy", "model": s.model.ModelName()}
	} else {
		components["llm"] = gin.H{"status": "unhealthy", "model": s.model.ModelName()}
		if status == "healthy" {
			status = "degraded"
		}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"app":        s.cfg.AppName,
		"version":    s.cfg.AppVersion,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}
