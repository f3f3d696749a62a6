package domain

import "time"

// AccountRegisteredEvent announces a newly created account.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Username     string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent announces a successful credential rotation.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	Metadata  map[string]any
}

// PasswordResetRequestedEvent announces an initiated reset flow. The
// destination is masked before it reaches the event stream.
type PasswordResetRequestedEvent struct {
	EventID     string
	AccountID   string
	RequestID   string
	MaskedEmail string
	RequestedAt time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// DroneStatusChangedEvent announces a drone status transition.
type DroneStatusChangedEvent struct {
	EventID   string
	DroneID   string
	From      DroneStatus
	To        DroneStatus
	ChangedAt time.Time
	Metadata  map[string]any
}
