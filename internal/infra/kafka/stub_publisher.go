package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful
// when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, subjectID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("subject_id", subjectID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"username":      event.Username,
		"email":         event.Email,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent(EventAccountRegistered, event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs account.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(EventPasswordChanged, event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs account.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"request_id":   event.RequestID,
		"masked_email": event.MaskedEmail,
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
		"metadata":     event.Metadata,
	}
	p.logEvent(EventPasswordResetRequested, event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishDroneStatusChanged logs drone.status.changed events.
func (p *StubPublisher) PublishDroneStatusChanged(_ context.Context, event domain.DroneStatusChangedEvent) error {
	payload := map[string]any{
		"drone_id":   event.DroneID,
		"from":       string(event.From),
		"to":         string(event.To),
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(EventDroneStatusChanged, event.DroneID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
