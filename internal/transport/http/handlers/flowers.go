package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/usecase"
)

// maxImageSize caps flower image uploads at 5 MiB.
const maxImageSize = 5 << 20

// FlowerHandler exposes the catalogue endpoints.
type FlowerHandler struct {
	flowers *usecase.FlowerService
}

// NewFlowerHandler builds the flower handler.
func NewFlowerHandler(flowers *usecase.FlowerService) *FlowerHandler {
	return &FlowerHandler{flowers: flowers}
}

var flowerErrorCases = []ErrorCase{
	{Err: usecase.ErrFlowerNotFound, Status: http.StatusNotFound, Message: "flower not found"},
	{Err: usecase.ErrImageNotFound, Status: http.StatusNotFound, Message: "flower image not found"},
	{Err: usecase.ErrInvalidRating, Status: http.StatusBadRequest, Message: "rating must be between 0 and 5"},
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "invalid request payload"},
	{Err: usecase.ErrMediaUnavailable, Status: http.StatusServiceUnavailable, Message: "media storage not configured"},
}

// Create handles POST /api/v1/flowers.
func (h *FlowerHandler) Create(c *gin.Context) {
	var req CreateFlowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	flower, err := h.flowers.Create(c.Request.Context(), req.Name, req.Color, req.Species)
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to create flower")
		return
	}

	c.JSON(http.StatusCreated, newFlowerPayload(*flower))
}

// List handles GET /api/v1/flowers with filters and sorting. Without
// page/limit parameters the full catalogue is returned; with them the
// response carries pagination metadata.
func (h *FlowerHandler) List(c *gin.Context) {
	filter := port.FlowerFilter{
		Name:     c.Query("name"),
		Color:    c.Query("color"),
		Species:  c.Query("species"),
		SortBy:   c.Query("sort_by"),
		SortDesc: c.Query("order") == "desc",
	}
	if raw := c.Query("min_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinRating = &v
		}
	}
	if raw := c.Query("max_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxRating = &v
		}
	}

	if c.Query("page") == "" && c.Query("limit") == "" {
		flowers, err := h.flowers.List(c.Request.Context(), filter)
		if err != nil {
			RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to list flowers")
			return
		}
		c.JSON(http.StatusOK, gin.H{"flowers": newFlowerPayloads(flowers)})
		return
	}

	filter.Page = parseInt64Query(c, "page", 1)
	filter.Limit = parseInt64Query(c, "limit", 10)

	page, err := h.flowers.ListPage(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to list flowers")
		return
	}

	c.JSON(http.StatusOK, PagedFlowersResponse{
		Flowers: newFlowerPayloads(page.Flowers),
		Total:   page.Total,
		Page:    page.Page,
		Pages:   page.Pages,
	})
}

// Get handles GET /api/v1/flowers/:id.
func (h *FlowerHandler) Get(c *gin.Context) {
	flower, err := h.flowers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to load flower")
		return
	}

	c.JSON(http.StatusOK, newFlowerPayload(*flower))
}

// Update handles PUT /api/v1/flowers/:id.
func (h *FlowerHandler) Update(c *gin.Context) {
	var req UpdateFlowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	flower, err := h.flowers.Update(c.Request.Context(), c.Param("id"), port.FlowerUpdate{
		Name:    req.Name,
		Color:   req.Color,
		Species: req.Species,
	})
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to update flower")
		return
	}

	c.JSON(http.StatusOK, newFlowerPayload(*flower))
}

// Delete handles DELETE /api/v1/flowers/:id.
func (h *FlowerHandler) Delete(c *gin.Context) {
	if err := h.flowers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to delete flower")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "flower deleted"})
}

// Rate handles POST /api/v1/flowers/:id/ratings.
func (h *FlowerHandler) Rate(c *gin.Context) {
	var req RateFlowerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	flower, err := h.flowers.Rate(c.Request.Context(), c.Param("id"), *req.Rating)
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to rate flower")
		return
	}

	c.JSON(http.StatusOK, newFlowerPayload(*flower))
}

// TopRated handles GET /api/v1/flowers/top-rated.
func (h *FlowerHandler) TopRated(c *gin.Context) {
	flowers, err := h.flowers.TopRated(c.Request.Context(), parseInt64Query(c, "limit", 10))
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to list top rated flowers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"flowers": newFlowerPayloads(flowers)})
}

// Species handles GET /api/v1/flowers/species.
func (h *FlowerHandler) Species(c *gin.Context) {
	species, err := h.flowers.Species(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to list species")
		return
	}

	c.JSON(http.StatusOK, gin.H{"species": species})
}

// Recent handles GET /api/v1/flowers/recent.
func (h *FlowerHandler) Recent(c *gin.Context) {
	days := int(parseInt64Query(c, "days", 7))

	flowers, err := h.flowers.Recent(c.Request.Context(), days)
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to list recent flowers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"flowers": newFlowerPayloads(flowers)})
}

// Statistics handles GET /api/v1/flowers/stats.
func (h *FlowerHandler) Statistics(c *gin.Context) {
	stats, err := h.flowers.Statistics(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to aggregate flower statistics")
		return
	}

	bySpecies := make([]SpeciesStatPayload, 0, len(stats.BySpecies))
	for _, bucket := range stats.BySpecies {
		bySpecies = append(bySpecies, SpeciesStatPayload{
			Species: bucket.Species,
			Count:   bucket.Count,
		})
	}

	c.JSON(http.StatusOK, FlowerStatsResponse{
		Total:     stats.Total,
		BySpecies: bySpecies,
	})
}

// AverageRating handles GET /api/v1/flowers/ratings/average.
func (h *FlowerHandler) AverageRating(c *gin.Context) {
	avg, err := h.flowers.OverallAverageRating(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to aggregate ratings")
		return
	}

	c.JSON(http.StatusOK, AverageRatingResponse{AverageRating: avg})
}

// UploadImage handles POST /api/v1/flowers/:id/image with a multipart
// form field named "image".
func (h *FlowerHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image file is required"))
		return
	}
	if fileHeader.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image exceeds maximum size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read image file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read image file"))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key, err := h.flowers.UploadImage(c.Request.Context(), c.Param("id"), data, contentType)
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to upload flower image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_key": key})
}

// Image handles GET /api/v1/flowers/:id/image.
func (h *FlowerHandler) Image(c *gin.Context) {
	data, contentType, err := h.flowers.Image(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, flowerErrorCases, http.StatusInternalServerError, "failed to load flower image")
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}
