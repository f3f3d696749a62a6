package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types emitted by the service.
const (
	EventAccountRegistered      = "account.registered"
	EventPasswordChanged        = "account.password.changed"
	EventPasswordResetRequested = "account.password.reset_requested"
	EventDroneStatusChanged     = "drone.status.changed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	SubjectID string           `json:"subject_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, subjectID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		SubjectID: subjectID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Username     string         `json:"username"`
		Email        string         `json:"email"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Username:     event.Username,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventAccountRegistered, event.AccountID, event.RegisteredAt, payload)
}

// PublishPasswordChanged publishes account.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventPasswordChanged, event.AccountID, event.ChangedAt, payload)
}

// PublishPasswordResetRequested publishes account.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		AccountID   string         `json:"account_id"`
		RequestID   string         `json:"request_id"`
		MaskedEmail string         `json:"masked_email,omitempty"`
		RequestedAt time.Time      `json:"requested_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		RequestID:   event.RequestID,
		MaskedEmail: event.MaskedEmail,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventPasswordResetRequested, event.AccountID, event.RequestedAt, payload)
}

// PublishDroneStatusChanged publishes drone.status.changed events.
func (p *EventPublisher) PublishDroneStatusChanged(ctx context.Context, event domain.DroneStatusChangedEvent) error {
	payload := struct {
		DroneID   string         `json:"drone_id"`
		From      string         `json:"from"`
		To        string         `json:"to"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		DroneID:   event.DroneID,
		From:      string(event.From),
		To:        string(event.To),
		ChangedAt: event.ChangedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventDroneStatusChanged, event.DroneID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
