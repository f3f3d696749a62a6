package port

import (
	"context"

	"github.com/florafleet/pollination-api/internal/core/domain"
)

// EventPublisher emits domain events to the configured broker.
// Publishing is best-effort; callers log failures and carry on.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishDroneStatusChanged(ctx context.Context, event domain.DroneStatusChangedEvent) error
}
