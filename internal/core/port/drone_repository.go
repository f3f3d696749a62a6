package port

import (
	"context"

	"github.com/florafleet/pollination-api/internal/core/domain"
)

// DroneFilter narrows listing queries. Zero values are ignored. Page
// and Limit are 1-based; Limit 0 disables pagination.
type DroneFilter struct {
	Name   string
	Status domain.DroneStatus
	Page   int64
	Limit  int64
}

// DroneUpdate carries a partial drone update. Nil fields are left
// untouched.
type DroneUpdate struct {
	Name   *string
	Status *domain.DroneStatus
}

// DroneRepository persists the drone fleet.
type DroneRepository interface {
	Create(ctx context.Context, drone domain.Drone) error
	GetByID(ctx context.Context, id string) (*domain.Drone, error)
	List(ctx context.Context, filter DroneFilter) ([]domain.Drone, error)
	Count(ctx context.Context, filter DroneFilter) (int64, error)
	Update(ctx context.Context, id string, update DroneUpdate) (*domain.Drone, error)
	UpdateStatusBulk(ctx context.Context, ids []string, status domain.DroneStatus) (int64, error)
	AppendLogEntry(ctx context.Context, id string, entry domain.DroneLogEntry) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[domain.DroneStatus]int64, error)
}
