package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/florafleet/pollination-api/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary is the public view of an account. The password hash
// never appears here.
type AccountSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest defines the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string         `json:"token"`
	User  AccountSummary `json:"user"`
}

// UpdateProfileRequest carries a partial profile update.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

// ChangePasswordRequest carries a credential rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// PasswordResetRequest initiates the reset flow.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetResponse confirms the reset initiation. ResetToken is
// populated only when the deployment exposes tokens in the response.
type PasswordResetResponse struct {
	Message    string    `json:"message"`
	ResetToken *string   `json:"reset_token,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DronePayload is the API view of a drone.
type DronePayload struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    domain.DroneStatus     `json:"status"`
	Log       []domain.DroneLogEntry `json:"activity_log,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func newDronePayload(drone domain.Drone) DronePayload {
	return DronePayload{
		ID:        drone.ID,
		Name:      drone.Name,
		Status:    drone.Status,
		Log:       drone.ActivityLog,
		CreatedAt: drone.CreatedAt,
	}
}

func newDronePayloads(drones []domain.Drone) []DronePayload {
	payloads := make([]DronePayload, 0, len(drones))
	for _, d := range drones {
		payloads = append(payloads, newDronePayload(d))
	}
	return payloads
}

// RegisterDroneRequest adds a drone to the fleet.
type RegisterDroneRequest struct {
	Name   string `json:"name" binding:"required"`
	Status string `json:"status"`
}

// UpdateDroneRequest carries a partial drone update.
type UpdateDroneRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

// DroneStatusRequest transitions a drone.
type DroneStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BulkDroneStatusRequest transitions several drones at once.
type BulkDroneStatusRequest struct {
	DroneIDs []string `json:"drone_ids" binding:"required,min=1"`
	Status   string   `json:"status" binding:"required"`
}

// DroneLogRequest appends an activity log entry.
type DroneLogRequest struct {
	Entry string `json:"entry" binding:"required"`
}

// PagedDronesResponse is one page of the fleet listing.
type PagedDronesResponse struct {
	Drones []DronePayload `json:"drones"`
	Total  int64          `json:"total"`
	Page   int64          `json:"page"`
	Pages  int64          `json:"pages"`
}

// DroneStatsResponse aggregates fleet counts by status.
type DroneStatsResponse struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// FlowerPayload is the API view of a flower.
type FlowerPayload struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	Species       string    `json:"species"`
	Ratings       []float64 `json:"ratings,omitempty"`
	AverageRating float64   `json:"average_rating"`
	HasImage      bool      `json:"has_image"`
	CreatedAt     time.Time `json:"created_at"`
}

func newFlowerPayload(flower domain.Flower) FlowerPayload {
	return FlowerPayload{
		ID:            flower.ID,
		Name:          flower.Name,
		Color:         flower.Color,
		Species:       flower.Species,
		Ratings:       flower.Ratings,
		AverageRating: flower.AverageRating,
		HasImage:      flower.ImageKey != "",
		CreatedAt:     flower.CreatedAt,
	}
}

func newFlowerPayloads(flowers []domain.Flower) []FlowerPayload {
	payloads := make([]FlowerPayload, 0, len(flowers))
	for _, f := range flowers {
		payloads = append(payloads, newFlowerPayload(f))
	}
	return payloads
}

// CreateFlowerRequest adds a flower to the catalogue.
type CreateFlowerRequest struct {
	Name    string `json:"name" binding:"required"`
	Color   string `json:"color" binding:"required"`
	Species string `json:"species" binding:"required"`
}

// UpdateFlowerRequest carries a partial flower update.
type UpdateFlowerRequest struct {
	Name    *string `json:"name"`
	Color   *string `json:"color"`
	Species *string `json:"species"`
}

// RateFlowerRequest appends a rating.
type RateFlowerRequest struct {
	Rating *float64 `json:"rating" binding:"required"`
}

// PagedFlowersResponse is one page of the catalogue listing.
type PagedFlowersResponse struct {
	Flowers []FlowerPayload `json:"flowers"`
	Total   int64           `json:"total"`
	Page    int64           `json:"page"`
	Pages   int64           `json:"pages"`
}

// SpeciesStatPayload is one bucket of the per-species aggregation.
type SpeciesStatPayload struct {
	Species string `json:"species"`
	Count   int64  `json:"count"`
}

// FlowerStatsResponse aggregates catalogue counts by species.
type FlowerStatsResponse struct {
	Total     int64                `json:"total"`
	BySpecies []SpeciesStatPayload `json:"by_species"`
}

// AverageRatingResponse carries the catalogue-wide rating mean.
type AverageRatingResponse struct {
	AverageRating float64 `json:"average_rating"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports readiness per dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
