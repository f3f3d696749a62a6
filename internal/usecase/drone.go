package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/repository"
)

var (
	// ErrDroneNotFound indicates the referenced drone is gone.
	ErrDroneNotFound = errors.New("drone not found")
	// ErrInvalidDroneStatus indicates a status outside the known enum.
	ErrInvalidDroneStatus = errors.New("invalid drone status")
)

// DroneService owns the fleet lifecycle.
type DroneService struct {
	drones port.DroneRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewDroneService wires the drone service. events may be nil.
func NewDroneService(drones port.DroneRepository, events port.EventPublisher, log *zap.Logger) *DroneService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DroneService{
		drones: drones,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// PagedDrones is one page of the fleet listing.
type PagedDrones struct {
	Drones []domain.Drone
	Total  int64
	Page   int64
	Pages  int64
}

// Register adds a drone to the fleet. An empty status defaults to idle.
func (s *DroneService) Register(ctx context.Context, name string, status domain.DroneStatus) (*domain.Drone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: drone name is required", ErrValidation)
	}
	if status == "" {
		status = domain.DroneStatusIdle
	}
	if !status.Valid() {
		return nil, ErrInvalidDroneStatus
	}

	drone := domain.Drone{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    status,
		CreatedAt: s.now().UTC(),
	}

	if err := s.drones.Create(ctx, drone); err != nil {
		return nil, fmt.Errorf("create drone: %w", err)
	}
	return &drone, nil
}

// Get fetches one drone.
func (s *DroneService) Get(ctx context.Context, id string) (*domain.Drone, error) {
	drone, err := s.drones.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDroneNotFound
		}
		return nil, fmt.Errorf("lookup drone: %w", err)
	}
	return drone, nil
}

// List returns drones matching the filter without pagination metadata.
func (s *DroneService) List(ctx context.Context, filter port.DroneFilter) ([]domain.Drone, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidDroneStatus
	}
	drones, err := s.drones.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list drones: %w", err)
	}
	return drones, nil
}

// ListPage returns one page of the fleet with pagination metadata.
func (s *DroneService) ListPage(ctx context.Context, filter port.DroneFilter) (*PagedDrones, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	total, err := s.drones.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count drones: %w", err)
	}

	drones, err := s.drones.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list drones: %w", err)
	}

	pages := total / filter.Limit
	if total%filter.Limit != 0 {
		pages++
	}

	return &PagedDrones{
		Drones: drones,
		Total:  total,
		Page:   filter.Page,
		Pages:  pages,
	}, nil
}

// Update applies a partial update to name and status.
func (s *DroneService) Update(ctx context.Context, id string, update port.DroneUpdate) (*domain.Drone, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: drone name must not be empty", ErrValidation)
		}
		update.Name = &trimmed
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, ErrInvalidDroneStatus
	}

	drone, err := s.drones.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDroneNotFound
		}
		return nil, fmt.Errorf("update drone: %w", err)
	}
	return drone, nil
}

// UpdateStatus transitions one drone and emits a status change event.
func (s *DroneService) UpdateStatus(ctx context.Context, id string, status domain.DroneStatus) (*domain.Drone, error) {
	if !status.Valid() {
		return nil, ErrInvalidDroneStatus
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.drones.Update(ctx, id, port.DroneUpdate{Status: &status})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDroneNotFound
		}
		return nil, fmt.Errorf("update drone status: %w", err)
	}

	s.publishStatusChanged(ctx, id, current.Status, status)
	return updated, nil
}

// ResetStatus returns a drone to idle.
func (s *DroneService) ResetStatus(ctx context.Context, id string) (*domain.Drone, error) {
	return s.UpdateStatus(ctx, id, domain.DroneStatusIdle)
}

// BulkUpdateStatus transitions several drones at once and returns how
// many documents changed.
func (s *DroneService) BulkUpdateStatus(ctx context.Context, ids []string, status domain.DroneStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: drone ids are required", ErrValidation)
	}
	if !status.Valid() {
		return 0, ErrInvalidDroneStatus
	}

	modified, err := s.drones.UpdateStatusBulk(ctx, ids, status)
	if err != nil {
		return 0, fmt.Errorf("bulk update drone status: %w", err)
	}
	return modified, nil
}

// Delete removes a drone from the fleet.
func (s *DroneService) Delete(ctx context.Context, id string) error {
	if err := s.drones.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDroneNotFound
		}
		return fmt.Errorf("delete drone: %w", err)
	}
	return nil
}

// Statistics returns fleet totals grouped by status. Statuses with no
// drones report zero.
func (s *DroneService) Statistics(ctx context.Context) (*domain.DroneStatistics, error) {
	counts, err := s.drones.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate drone statuses: %w", err)
	}

	stats := &domain.DroneStatistics{
		ByStatus: map[domain.DroneStatus]int64{
			domain.DroneStatusIdle:        0,
			domain.DroneStatusInFlight:    0,
			domain.DroneStatusCharging:    0,
			domain.DroneStatusMaintenance: 0,
		},
	}
	for status, count := range counts {
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, nil
}

// ActivityLog returns the drone's activity entries.
func (s *DroneService) ActivityLog(ctx context.Context, id string) ([]domain.DroneLogEntry, error) {
	drone, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if drone.ActivityLog == nil {
		return []domain.DroneLogEntry{}, nil
	}
	return drone.ActivityLog, nil
}

// AppendActivity records a log entry and returns the updated log.
func (s *DroneService) AppendActivity(ctx context.Context, id, entry string) ([]domain.DroneLogEntry, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, fmt.Errorf("%w: log entry is required", ErrValidation)
	}

	logEntry := domain.DroneLogEntry{Entry: entry, Timestamp: s.now().UTC()}
	if err := s.drones.AppendLogEntry(ctx, id, logEntry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDroneNotFound
		}
		return nil, fmt.Errorf("append drone log entry: %w", err)
	}

	return s.ActivityLog(ctx, id)
}

func (s *DroneService) publishStatusChanged(ctx context.Context, id string, from, to domain.DroneStatus) {
	if s.events == nil || from == to {
		return
	}
	event := domain.DroneStatusChangedEvent{
		EventID:   uuid.NewString(),
		DroneID:   id,
		From:      from,
		To:        to,
		ChangedAt: s.now().UTC(),
	}
	if err := s.events.PublishDroneStatusChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish drone status changed event",
			zap.String("drone_id", id),
			zap.Error(err),
		)
	}
}
