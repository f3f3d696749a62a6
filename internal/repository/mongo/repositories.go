package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories bundles the Mongo-backed stores sharing one database
// handle.
type Repositories struct {
	Accounts *AccountRepository
	Drones   *DroneRepository
	Flowers  *FlowerRepository
}

// NewRepositories wires every collection-backed repository.
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(db),
		Drones:   NewDroneRepository(db),
		Flowers:  NewFlowerRepository(db),
	}
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to
// call on every startup.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	if err := r.Accounts.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}
