package api

import (
	"bluewave-telemetry-backend/config"
	"bluewave-telemetry-backend/internal/observability"
	"bluewave-telemetry-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	cfg     *config.Config
	metrics *observability.Metrics
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, cfg *config.Config, metrics *observability.Metrics) *Handler {
	return &Handler{
		store:   s,
		cfg:     cfg,
		metrics: metrics,
	}
}
