package port

import (
	"context"

	"github.com/florafleet/pollination-api/internal/core/domain"
)

// AccountUpdate carries a partial profile update. Nil fields are left
// untouched.
type AccountUpdate struct {
	Username *string
	Email    *string
}

// AccountRepository persists accounts. Implementations must enforce
// email uniqueness at the storage level and surface collisions as
// repository.ErrDuplicate.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, update AccountUpdate) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
