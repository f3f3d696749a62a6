package domain

import "time"

// Flower is the persisted representation of a catalogued flower.
// AverageRating is denormalized and recomputed atomically whenever a
// rating is appended.
type Flower struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Color         string    `bson:"color"`
	Species       string    `bson:"species"`
	Ratings       []float64 `bson:"ratings,omitempty"`
	AverageRating float64   `bson:"average_rating"`
	ImageKey      string    `bson:"image_key,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
}

// SpeciesCount is one bucket of the per-species aggregation.
type SpeciesCount struct {
	Species string
	Count   int64
}

// FlowerStatistics aggregates catalogue counts grouped by species.
type FlowerStatistics struct {
	Total     int64
	BySpecies []SpeciesCount
}
