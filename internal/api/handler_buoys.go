package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bluewave-telemetry-backend/internal/model"
)

// BuoyResponse represents the API response for a single buoy.
type BuoyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func buoyResponse(b model.Buoy) BuoyResponse {
	return BuoyResponse{
		ID:        b.ID,
		Name:      b.Name,
		Lat:       b.Lat,
		Lon:       b.Lon,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type buoyRequest struct {
	Name   string   `json:"name" binding:"required"`
	Lat    *float64 `json:"lat" binding:"required"`
	Lon    *float64 `json:"lon" binding:"required"`
	Status string   `json:"status" binding:"required,oneof=active inactive maintenance"`
}

type buoyPatch struct {
	Name   *string  `json:"name"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Status *string  `json:"status" binding:"omitempty,oneof=active inactive maintenance"`
}

// ListBuoys handles GET /buoys, optionally filtering by name substring
// with ?q=.
func (h *Handler) ListBuoys(c *gin.Context) {
	query := h.store.DB().Model(&model.Buoy{})
	if q := c.Query("q"); q != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+q+"%")
	}

	var buoys []model.Buoy
	if err := query.Order("id ASC").Find(&buoys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve buoys"})
		return
	}

	responses := make([]BuoyResponse, 0, len(buoys))
	for _, b := range buoys {
		responses = append(responses, buoyResponse(b))
	}
	c.JSON(http.StatusOK, responses)
}

// CreateBuoy handles POST /buoys. Names are unique across the registry.
func (h *Handler) CreateBuoy(c *gin.Context) {
	var req buoyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.buoyNameTaken(req.Name, 0) {
		c.JSON(http.StatusConflict, gin.H{"error": "buoy name already exists"})
		return
	}

	b := model.Buoy{Name: req.Name, Lat: *req.Lat, Lon: *req.Lon, Status: req.Status}
	if err := h.store.DB().Create(&b).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create buoy"})
		return
	}
	c.JSON(http.StatusCreated, buoyResponse(b))
}

// GetBuoy handles GET /buoys/:id.
func (h *Handler) GetBuoy(c *gin.Context) {
	b, ok := h.fetchBuoy(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, buoyResponse(*b))
}

// ReplaceBuoy handles PUT /buoys/:id.
func (h *Handler) ReplaceBuoy(c *gin.Context) {
	b, ok := h.fetchBuoy(c)
	if !ok {
		return
	}

	var req buoyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != b.Name && h.buoyNameTaken(req.Name, b.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "buoy name already exists"})
		return
	}

	b.Name = req.Name
	b.Lat = *req.Lat
	b.Lon = *req.Lon
	b.Status = req.Status
	if err := h.store.DB().Save(b).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update buoy"})
		return
	}
	c.JSON(http.StatusOK, buoyResponse(*b))
}

// PatchBuoy handles PATCH /buoys/:id.
func (h *Handler) PatchBuoy(c *gin.Context) {
	b, ok := h.fetchBuoy(c)
	if !ok {
		return
	}

	var patch buoyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.Name != nil && *patch.Name != b.Name && h.buoyNameTaken(*patch.Name, b.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "buoy name already exists"})
		return
	}

	if patch.Name != nil {
		b.Name = *patch.Name
	}
	if patch.Lat != nil {
		b.Lat = *patch.Lat
	}
	if patch.Lon != nil {
		b.Lon = *patch.Lon
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	if err := h.store.DB().Save(b).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update buoy"})
		return
	}
	c.JSON(http.StatusOK, buoyResponse(*b))
}

// DeleteBuoy handles DELETE /buoys/:id.
func (h *Handler) DeleteBuoy(c *gin.Context) {
	b, ok := h.fetchBuoy(c)
	if !ok {
		return
	}
	if err := h.store.DB().Delete(b).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete buoy"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) fetchBuoy(c *gin.Context) (*model.Buoy, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buoy id"})
		return nil, false
	}

	var b model.Buoy
	if err := h.store.DB().First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "buoy not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return nil, false
	}
	return &b, true
}

func (h *Handler) buoyNameTaken(name string, excludeID int64) bool {
	var count int64
	h.store.DB().Model(&model.Buoy{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count)
	return count > 0
}
