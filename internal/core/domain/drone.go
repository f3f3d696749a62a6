package domain

import "time"

// DroneStatus enumerates the operational states a drone can report.
type DroneStatus string

const (
	DroneStatusIdle        DroneStatus = "idle"
	DroneStatusInFlight    DroneStatus = "in-flight"
	DroneStatusCharging    DroneStatus = "charging"
	DroneStatusMaintenance DroneStatus = "maintenance"
)

// Valid reports whether the status is one of the known states.
func (s DroneStatus) Valid() bool {
	switch s {
	case DroneStatusIdle, DroneStatusInFlight, DroneStatusCharging, DroneStatusMaintenance:
		return true
	}
	return false
}

// DroneLogEntry is a single line in a drone's activity log.
type DroneLogEntry struct {
	Entry     string    `bson:"entry" json:"entry"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Drone is the persisted representation of a pollination drone.
type Drone struct {
	ID          string          `bson:"_id"`
	Name        string          `bson:"name"`
	Status      DroneStatus     `bson:"status"`
	ActivityLog []DroneLogEntry `bson:"activity_log,omitempty"`
	CreatedAt   time.Time       `bson:"created_at"`
}

// DroneStatistics aggregates fleet counts grouped by status.
type DroneStatistics struct {
	Total    int64
	ByStatus map[DroneStatus]int64
}
