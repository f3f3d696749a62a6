package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/usecase"
)

// DroneHandler exposes the fleet endpoints.
type DroneHandler struct {
	drones *usecase.DroneService
}

// NewDroneHandler builds the drone handler.
func NewDroneHandler(drones *usecase.DroneService) *DroneHandler {
	return &DroneHandler{drones: drones}
}

var droneErrorCases = []ErrorCase{
	{Err: usecase.ErrDroneNotFound, Status: http.StatusNotFound, Message: "drone not found"},
	{Err: usecase.ErrInvalidDroneStatus, Status: http.StatusBadRequest, Message: "invalid drone status"},
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid request payload"},
}

// Register handles POST /api/v1/drones.
func (h *DroneHandler) Register(c *gin.Context) {
	var req RegisterDroneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	drone, err := h.drones.Register(c.Request.Context(), req.Name, domain.DroneStatus(req.Status))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to register drone")
		return
	}

	c.JSON(http.StatusCreated, newDronePayload(*drone))
}

// List handles GET /api/v1/drones. Without page/limit parameters the
// full fleet is returned; with them the response carries pagination
// metadata.
func (h *DroneHandler) List(c *gin.Context) {
	filter := port.DroneFilter{
		Name:   c.Query("name"),
		Status: domain.DroneStatus(c.Query("status")),
	}

	if c.Query("page") == "" && c.Query("limit") == "" {
		drones, err := h.drones.List(c.Request.Context(), filter)
		if err != nil {
			RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to list drones")
			return
		}
		c.JSON(http.StatusOK, gin.H{"drones": newDronePayloads(drones)})
		return
	}

	filter.Page = parseInt64Query(c, "page", 1)
	filter.Limit = parseInt64Query(c, "limit", 10)

	page, err := h.drones.ListPage(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to list drones")
		return
	}

	c.JSON(http.StatusOK, PagedDronesResponse{
		Drones: newDronePayloads(page.Drones),
		Total:  page.Total,
		Page:   page.Page,
		Pages:  page.Pages,
	})
}

// Search handles GET /api/v1/drones/search?name=.
func (h *DroneHandler) Search(c *gin.Context) {
	drones, err := h.drones.List(c.Request.Context(), port.DroneFilter{Name: c.Query("name")})
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to search drones")
		return
	}

	c.JSON(http.StatusOK, gin.H{"drones": newDronePayloads(drones)})
}

// ListByStatus handles GET /api/v1/drones/status/:status.
func (h *DroneHandler) ListByStatus(c *gin.Context) {
	drones, err := h.drones.List(c.Request.Context(), port.DroneFilter{
		Status: domain.DroneStatus(c.Param("status")),
	})
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to list drones")
		return
	}

	c.JSON(http.StatusOK, gin.H{"drones": newDronePayloads(drones)})
}

// Get handles GET /api/v1/drones/:id.
func (h *DroneHandler) Get(c *gin.Context) {
	drone, err := h.drones.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to load drone")
		return
	}

	c.JSON(http.StatusOK, newDronePayload(*drone))
}

// Update handles PUT /api/v1/drones/:id.
func (h *DroneHandler) Update(c *gin.Context) {
	var req UpdateDroneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	update := port.DroneUpdate{Name: req.Name}
	if req.Status != nil {
		status := domain.DroneStatus(*req.Status)
		update.Status = &status
	}

	drone, err := h.drones.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to update drone")
		return
	}

	c.JSON(http.StatusOK, newDronePayload(*drone))
}

// UpdateStatus handles PUT /api/v1/drones/:id/status.
func (h *DroneHandler) UpdateStatus(c *gin.Context) {
	var req DroneStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	drone, err := h.drones.UpdateStatus(c.Request.Context(), c.Param("id"), domain.DroneStatus(req.Status))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to update drone status")
		return
	}

	c.JSON(http.StatusOK, newDronePayload(*drone))
}

// GetStatus handles GET /api/v1/drones/:id/status.
func (h *DroneHandler) GetStatus(c *gin.Context) {
	drone, err := h.drones.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to load drone")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": drone.Status})
}

// ResetStatus handles POST /api/v1/drones/:id/status/reset.
func (h *DroneHandler) ResetStatus(c *gin.Context) {
	drone, err := h.drones.ResetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to reset drone status")
		return
	}

	c.JSON(http.StatusOK, newDronePayload(*drone))
}

// BulkUpdateStatus handles PUT /api/v1/drones/status.
func (h *DroneHandler) BulkUpdateStatus(c *gin.Context) {
	var req BulkDroneStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	modified, err := h.drones.BulkUpdateStatus(c.Request.Context(), req.DroneIDs, domain.DroneStatus(req.Status))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to update drone statuses")
		return
	}

	c.JSON(http.StatusOK, gin.H{"modified": modified})
}

// Delete handles DELETE /api/v1/drones/:id.
func (h *DroneHandler) Delete(c *gin.Context) {
	if err := h.drones.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to delete drone")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "drone deleted"})
}

// Statistics handles GET /api/v1/drones/stats.
func (h *DroneHandler) Statistics(c *gin.Context) {
	stats, err := h.drones.Statistics(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to aggregate drone statistics")
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}

	c.JSON(http.StatusOK, DroneStatsResponse{
		Total:    stats.Total,
		ByStatus: byStatus,
	})
}

// ActivityLog handles GET /api/v1/drones/:id/log.
func (h *DroneHandler) ActivityLog(c *gin.Context) {
	entries, err := h.drones.ActivityLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to load activity log")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity_log": entries})
}

// AppendActivity handles POST /api/v1/drones/:id/log.
func (h *DroneHandler) AppendActivity(c *gin.Context) {
	var req DroneLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	entries, err := h.drones.AppendActivity(c.Request.Context(), c.Param("id"), req.Entry)
	if err != nil {
		RespondWithMappedError(c, err, droneErrorCases, http.StatusInternalServerError, "failed to append activity log entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity_log": entries})
}

func parseInt64Query(c *gin.Context, name string, fallback int64) int64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
