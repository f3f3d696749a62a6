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
	// ErrFlowerNotFound indicates the referenced flower is gone.
	ErrFlowerNotFound = errors.New("flower not found")
	// ErrImageNotFound indicates the flower has no stored image.
	ErrImageNotFound = errors.New("flower image not found")
	// ErrInvalidRating indicates a rating outside the accepted range.
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	// ErrMediaUnavailable indicates no object store is configured.
	ErrMediaUnavailable = errors.New("media storage not configured")
)

// FlowerService owns the flower catalogue and its images.
type FlowerService struct {
	flowers port.FlowerRepository
	media   port.MediaStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewFlowerService wires the flower service. media may be nil, in
// which case image operations fail with ErrMediaUnavailable.
func NewFlowerService(flowers port.FlowerRepository, media port.MediaStore, log *zap.Logger) *FlowerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FlowerService{
		flowers: flowers,
		media:   media,
		logger:  log,
		now:     time.Now,
	}
}

// PagedFlowers is one page of the catalogue listing.
type PagedFlowers struct {
	Flowers []domain.Flower
	Total   int64
	Page    int64
	Pages   int64
}

// Create adds a flower to the catalogue.
func (s *FlowerService) Create(ctx context.Context, name, color, species string) (*domain.Flower, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	species = strings.TrimSpace(species)
	if name == "" || color == "" || species == "" {
		return nil, fmt.Errorf("%w: name, color and species are required", ErrValidation)
	}

	flower := domain.Flower{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		Species:   species,
		CreatedAt: s.now().UTC(),
	}

	if err := s.flowers.Create(ctx, flower); err != nil {
		return nil, fmt.Errorf("create flower: %w", err)
	}
	return &flower, nil
}

// Get fetches one flower.
func (s *FlowerService) Get(ctx context.Context, id string) (*domain.Flower, error) {
	flower, err := s.flowers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFlowerNotFound
		}
		return nil, fmt.Errorf("lookup flower: %w", err)
	}
	return flower, nil
}

// List returns flowers matching the filter without pagination metadata.
func (s *FlowerService) List(ctx context.Context, filter port.FlowerFilter) ([]domain.Flower, error) {
	flowers, err := s.flowers.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list flowers: %w", err)
	}
	return flowers, nil
}

// ListPage returns one page of the catalogue with pagination metadata.
func (s *FlowerService) ListPage(ctx context.Context, filter port.FlowerFilter) (*PagedFlowers, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	total, err := s.flowers.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count flowers: %w", err)
	}

	flowers, err := s.flowers.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list flowers: %w", err)
	}

	pages := total / filter.Limit
	if total%filter.Limit != 0 {
		pages++
	}

	return &PagedFlowers{
		Flowers: flowers,
		Total:   total,
		Page:    filter.Page,
		Pages:   pages,
	}, nil
}

// Update applies a partial update to name, color and species.
func (s *FlowerService) Update(ctx context.Context, id string, update port.FlowerUpdate) (*domain.Flower, error) {
	for _, field := range []**string{&update.Name, &update.Color, &update.Species} {
		if *field == nil {
			continue
		}
		trimmed := strings.TrimSpace(**field)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: fields must not be empty", ErrValidation)
		}
		*field = &trimmed
	}

	flower, err := s.flowers.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFlowerNotFound
		}
		return nil, fmt.Errorf("update flower: %w", err)
	}
	return flower, nil
}

// Delete removes a flower and its stored image, if any.
func (s *FlowerService) Delete(ctx context.Context, id string) error {
	flower, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.flowers.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFlowerNotFound
		}
		return fmt.Errorf("delete flower: %w", err)
	}

	if s.media != nil && flower.ImageKey != "" {
		if err := s.media.Remove(ctx, flower.ImageKey); err != nil {
			s.logger.Warn("Failed to remove flower image",
				zap.String("flower_id", id),
				zap.String("image_key", flower.ImageKey),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Rate appends a rating and returns the flower with its refreshed
// average.
func (s *FlowerService) Rate(ctx context.Context, id string, rating float64) (*domain.Flower, error) {
	if rating < 0 || rating > 5 {
		return nil, ErrInvalidRating
	}

	flower, err := s.flowers.AddRating(ctx, id, rating)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFlowerNotFound
		}
		return nil, fmt.Errorf("add flower rating: %w", err)
	}
	return flower, nil
}

// TopRated returns the highest-rated flowers.
func (s *FlowerService) TopRated(ctx context.Context, limit int64) ([]domain.Flower, error) {
	if limit <= 0 {
		limit = 10
	}
	flowers, err := s.flowers.List(ctx, port.FlowerFilter{
		SortBy:   "average_rating",
		SortDesc: true,
		Page:     1,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list top rated flowers: %w", err)
	}
	return flowers, nil
}

// Species returns the distinct species present in the catalogue.
func (s *FlowerService) Species(ctx context.Context) ([]string, error) {
	species, err := s.flowers.DistinctSpecies(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct species: %w", err)
	}
	return species, nil
}

// Recent returns flowers created within the last N days.
func (s *FlowerService) Recent(ctx context.Context, days int) ([]domain.Flower, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	flowers, err := s.flowers.List(ctx, port.FlowerFilter{CreatedAfter: &cutoff})
	if err != nil {
		return nil, fmt.Errorf("list recent flowers: %w", err)
	}
	return flowers, nil
}

// Statistics returns catalogue totals grouped by species.
func (s *FlowerService) Statistics(ctx context.Context) (*domain.FlowerStatistics, error) {
	counts, err := s.flowers.CountBySpecies(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate species: %w", err)
	}

	stats := &domain.FlowerStatistics{BySpecies: counts}
	for _, c := range counts {
		stats.Total += c.Count
	}
	return stats, nil
}

// OverallAverageRating returns the mean over every individual rating.
func (s *FlowerService) OverallAverageRating(ctx context.Context) (float64, error) {
	avg, err := s.flowers.AverageRating(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate ratings: %w", err)
	}
	return avg, nil
}

// UploadImage stores the image bytes and records the object key on the
// flower. An existing image is replaced.
func (s *FlowerService) UploadImage(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	if s.media == nil {
		return "", ErrMediaUnavailable
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image data is required", ErrValidation)
	}

	flower, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("flowers/%s/%s", id, uuid.NewString())
	if err := s.media.Upload(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("upload flower image: %w", err)
	}

	if err := s.flowers.SetImageKey(ctx, id, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrFlowerNotFound
		}
		return "", fmt.Errorf("record flower image key: %w", err)
	}

	if flower.ImageKey != "" && flower.ImageKey != key {
		if err := s.media.Remove(ctx, flower.ImageKey); err != nil {
			s.logger.Warn("Failed to remove replaced flower image",
				zap.String("flower_id", id),
				zap.String("image_key", flower.ImageKey),
				zap.Error(err),
			)
		}
	}
	return key, nil
}

// Image fetches the stored image bytes and content type.
func (s *FlowerService) Image(ctx context.Context, id string) ([]byte, string, error) {
	if s.media == nil {
		return nil, "", ErrMediaUnavailable
	}

	flower, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if flower.ImageKey == "" {
		return nil, "", ErrImageNotFound
	}

	data, contentType, err := s.media.Download(ctx, flower.ImageKey)
	if err != nil {
		return nil, "", fmt.Errorf("download flower image: %w", err)
	}
	return data, contentType, nil
}
