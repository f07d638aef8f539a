package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"bluewave-telemetry-backend/config"
	"bluewave-telemetry-backend/internal/mw"
	"bluewave-telemetry-backend/internal/observability"
	"bluewave-telemetry-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, metrics *observability.Metrics) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, cfg, metrics)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	auth := mw.Auth(cfg.Auth.SigningKey)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.Use(mw.Metrics(metrics))

	r.GET("/healthz", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/auth/token", rateLimiter, handler.IssueToken)

	observations := r.Group("/observations")
	observations.Use(rateLimiter, auth)
	{
		observations.POST("", handler.CreateObservations)
		observations.GET("", handler.ListObservations)
		observations.GET("/:id", handler.GetObservation)
		observations.PUT("/:id", handler.ReplaceObservation)
		observations.PATCH("/:id", handler.PatchObservation)
		observations.DELETE("/:id", handler.DeleteObservation)
	}

	buoys := r.Group("/buoys")
	buoys.Use(rateLimiter, auth)
	{
		// Registry reads are cacheable; output does not vary by tier.
		buoys.GET("", caching, handler.ListBuoys)
		buoys.POST("", handler.CreateBuoy)
		buoys.GET("/:id", handler.GetBuoy)
		buoys.PUT("/:id", handler.ReplaceBuoy)
		buoys.PATCH("/:id", handler.PatchBuoy)
		buoys.DELETE("/:id", handler.DeleteBuoy)
	}

	return r
}
