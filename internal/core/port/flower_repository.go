package port

import (
	"context"
	"time"

	"github.com/florafleet/pollination-api/internal/core/domain"
)

// FlowerFilter narrows listing queries. Name, Color and Species are
// case-insensitive partial matches. Zero values are ignored.
type FlowerFilter struct {
	Name         string
	Color        string
	Species      string
	MinRating    *float64
	MaxRating    *float64
	CreatedAfter *time.Time
	SortBy       string
	SortDesc     bool
	Page         int64
	Limit        int64
}

// FlowerUpdate carries a partial flower update. Nil fields are left
// untouched.
type FlowerUpdate struct {
	Name    *string
	Color   *string
	Species *string
}

// FlowerRepository persists the flower catalogue.
type FlowerRepository interface {
	Create(ctx context.Context, flower domain.Flower) error
	GetByID(ctx context.Context, id string) (*domain.Flower, error)
	List(ctx context.Context, filter FlowerFilter) ([]domain.Flower, error)
	Count(ctx context.Context, filter FlowerFilter) (int64, error)
	Update(ctx context.Context, id string, update FlowerUpdate) (*domain.Flower, error)
	Delete(ctx context.Context, id string) error
	AddRating(ctx context.Context, id string, rating float64) (*domain.Flower, error)
	SetImageKey(ctx context.Context, id, key string) error
	DistinctSpecies(ctx context.Context) ([]string, error)
	CountBySpecies(ctx context.Context) ([]domain.SpeciesCount, error)
	AverageRating(ctx context.Context) (float64, error)
}
