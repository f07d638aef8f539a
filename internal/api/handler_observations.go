package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"bluewave-telemetry-backend/internal/filter"
	"bluewave-telemetry-backend/internal/model"
	"bluewave-telemetry-backend/internal/mw"
	"bluewave-telemetry-backend/internal/projection"
	"bluewave-telemetry-backend/internal/quarter"
	"bluewave-telemetry-backend/internal/store"
)

const quarterLockedMessage = "historical records are locked; cannot modify prior to the current quarter"

// observationRequest is the create/replace payload. Required fields are
// pointers so legitimate zero values (lat 0, haze false) survive the
// presence check.
type observationRequest struct {
	BuoyID          *int64     `json:"buoy_id" binding:"required,gt=0"`
	ObservedAt      *time.Time `json:"observed_at" binding:"required"`
	Timezone        *string    `json:"timezone" binding:"required"`
	Lat             *float64   `json:"lat" binding:"required"`
	Lon             *float64   `json:"lon" binding:"required"`
	TempC           *float64   `json:"temp_c" binding:"required"`
	Humidity        *float64   `json:"humidity" binding:"required,gte=0,lte=100"`
	WindMS          *float64   `json:"wind_m_s" binding:"required"`
	PrecipitationMM *float64   `json:"precipitation_mm" binding:"required"`
	Haze            *bool      `json:"haze" binding:"required"`
	Notes           string     `json:"notes"`
}

func (r observationRequest) observation() model.Observation {
	return model.Observation{
		BuoyID:          *r.BuoyID,
		ObservedAt:      r.ObservedAt.UTC(),
		Timezone:        *r.Timezone,
		Lat:             *r.Lat,
		Lon:             *r.Lon,
		TempC:           *r.TempC,
		Humidity:        *r.Humidity,
		WindMS:          *r.WindMS,
		PrecipitationMM: *r.PrecipitationMM,
		Haze:            *r.Haze,
		Notes:           r.Notes,
	}
}

// callerTier reads the tier claim set by the auth middleware. Absent or
// unrecognized tiers degrade to processed.
func callerTier(c *gin.Context) string {
	return projection.Normalize(mw.ClaimsFrom(c).Tier)
}

func observationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid observation id"})
		return 0, false
	}
	return id, true
}

// CreateObservations handles POST /observations. The body may be a single
// object or a non-empty array; the batch persists atomically and is never
// subject to the quarter lock.
func (h *Handler) CreateObservations(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object or array of objects"})
		return
	}

	var reqs []observationRequest
	if body[0] == '[' {
		if err := json.Unmarshal(body, &reqs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON array: " + err.Error()})
			return
		}
	} else {
		var one observationRequest
		if err := json.Unmarshal(body, &one); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON object: " + err.Error()})
			return
		}
		reqs = []observationRequest{one}
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object or array of objects"})
		return
	}

	// One invalid item rejects the whole batch before anything persists.
	obs := make([]model.Observation, len(reqs))
	for i, req := range reqs {
		if err := binding.Validator.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		obs[i] = req.observation()
	}

	ids, err := h.store.InsertObservations(c.Request.Context(), obs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist observations"})
		return
	}
	h.metrics.ObservationsCreated.Add(float64(len(ids)))

	tier := callerTier(c)
	c.JSON(http.StatusCreated, gin.H{
		"created": ids,
		"items":   projection.ProjectAll(obs, tier),
	})
}

// ListObservations handles GET /observations with filtering and paging.
func (h *Handler) ListObservations(c *gin.Context) {
	args := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			args[key] = values[0]
		}
	}
	page := store.ParsePage(c.Query("page"), c.Query("per_page"))

	items, err := h.store.QueryObservations(c.Request.Context(), args, page)
	if err != nil {
		var perr *filter.ParseError
		if errors.As(err, &perr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query observations"})
		return
	}

	tier := callerTier(c)
	c.JSON(http.StatusOK, gin.H{
		"items":    projection.ProjectAll(items, tier),
		"count":    len(items),
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// GetObservation handles GET /observations/:id. Reads are never quarter-locked.
func (h *Handler) GetObservation(c *gin.Context) {
	id, ok := observationID(c)
	if !ok {
		return
	}

	o, err := h.store.GetObservation(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection.Project(*o, callerTier(c)))
}

// ReplaceObservation handles PUT /observations/:id. The quarter lock is
// checked against the stored observed_at, never the payload's.
func (h *Handler) ReplaceObservation(c *gin.Context) {
	id, ok := observationID(c)
	if !ok {
		return
	}

	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.store.GetObservation(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !quarter.IsCurrent(existing.ObservedAt) {
		h.rejectLocked(c)
		return
	}

	updated, err := h.store.ReplaceObservation(c.Request.Context(), id, req.observation())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection.Project(*updated, callerTier(c)))
}

// PatchObservation handles PATCH /observations/:id with a typed patch.
func (h *Handler) PatchObservation(c *gin.Context) {
	id, ok := observationID(c)
	if !ok {
		return
	}

	var patch store.ObservationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.store.GetObservation(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !quarter.IsCurrent(existing.ObservedAt) {
		h.rejectLocked(c)
		return
	}

	updated, err := h.store.PatchObservation(c.Request.Context(), id, patch)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection.Project(*updated, callerTier(c)))
}

// DeleteObservation handles DELETE /observations/:id.
func (h *Handler) DeleteObservation(c *gin.Context) {
	id, ok := observationID(c)
	if !ok {
		return
	}

	existing, err := h.store.GetObservation(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !quarter.IsCurrent(existing.ObservedAt) {
		h.rejectLocked(c)
		return
	}

	if err := h.store.DeleteObservation(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) rejectLocked(c *gin.Context) {
	h.metrics.QuarterLockRejections.Inc()
	c.JSON(http.StatusConflict, gin.H{"error": quarterLockedMessage})
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "observation not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
}
