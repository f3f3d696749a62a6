package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/repository"
)

type memFlowerRepository struct {
	mu      sync.Mutex
	flowers map[string]domain.Flower
}

func newMemFlowerRepository() *memFlowerRepository {
	return &memFlowerRepository{flowers: make(map[string]domain.Flower)}
}

func (r *memFlowerRepository) Create(_ context.Context, flower domain.Flower) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flowers[flower.ID] = flower
	return nil
}

func (r *memFlowerRepository) GetByID(_ context.Context, id string) (*domain.Flower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flower, ok := r.flowers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &flower, nil
}

func (r *memFlowerRepository) matches(flower domain.Flower, filter port.FlowerFilter) bool {
	if filter.Name != "" && !strings.Contains(strings.ToLower(flower.Name), strings.ToLower(filter.Name)) {
		return false
	}
	if filter.Color != "" && !strings.Contains(strings.ToLower(flower.Color), strings.ToLower(filter.Color)) {
		return false
	}
	if filter.Species != "" && !strings.Contains(strings.ToLower(flower.Species), strings.ToLower(filter.Species)) {
		return false
	}
	if filter.MinRating != nil && flower.AverageRating < *filter.MinRating {
		return false
	}
	if filter.MaxRating != nil && flower.AverageRating > *filter.MaxRating {
		return false
	}
	if filter.CreatedAfter != nil && flower.CreatedAt.Before(*filter.CreatedAfter) {
		return false
	}
	return true
}

func (r *memFlowerRepository) List(_ context.Context, filter port.FlowerFilter) ([]domain.Flower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Flower
	for _, flower := range r.flowers {
		if r.matches(flower, filter) {
			out = append(out, flower)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "average_rating":
			less = out[i].AverageRating < out[j].AverageRating
		case "name":
			less = out[i].Name < out[j].Name
		default:
			less = out[i].ID < out[j].ID
		}
		if filter.SortDesc {
			return !less
		}
		return less
	})

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= int64(len(out)) {
			return nil, nil
		}
		end := start + filter.Limit
		if end > int64(len(out)) {
			end = int64(len(out))
		}
		out = out[start:end]
	}
	return out, nil
}

func (r *memFlowerRepository) Count(_ context.Context, filter port.FlowerFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, flower := range r.flowers {
		if r.matches(flower, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memFlowerRepository) Update(_ context.Context, id string, update port.FlowerUpdate) (*domain.Flower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flower, ok := r.flowers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != nil {
		flower.Name = *update.Name
	}
	if update.Color != nil {
		flower.Color = *update.Color
	}
	if update.Species != nil {
		flower.Species = *update.Species
	}
	r.flowers[id] = flower
	return &flower, nil
}

func (r *memFlowerRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flowers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.flowers, id)
	return nil
}

func (r *memFlowerRepository) AddRating(_ context.Context, id string, rating float64) (*domain.Flower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flower, ok := r.flowers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	flower.Ratings = append(flower.Ratings, rating)

	var sum float64
	for _, v := range flower.Ratings {
		sum += v
	}
	flower.AverageRating = sum / float64(len(flower.Ratings))

	r.flowers[id] = flower
	return &flower, nil
}

func (r *memFlowerRepository) SetImageKey(_ context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	flower, ok := r.flowers[id]
	if !ok {
		return repository.ErrNotFound
	}
	flower.ImageKey = key
	r.flowers[id] = flower
	return nil
}

func (r *memFlowerRepository) DistinctSpecies(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for _, flower := range r.flowers {
		if _, ok := seen[flower.Species]; ok {
			continue
		}
		seen[flower.Species] = struct{}{}
		out = append(out, flower.Species)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memFlowerRepository) CountBySpecies(_ context.Context) ([]domain.SpeciesCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int64)
	for _, flower := range r.flowers {
		counts[flower.Species]++
	}

	out := make([]domain.SpeciesCount, 0, len(counts))
	for species, count := range counts {
		out = append(out, domain.SpeciesCount{Species: species, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Species < out[j].Species })
	return out, nil
}

func (r *memFlowerRepository) AverageRating(_ context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum float64
	var n int
	for _, flower := range r.flowers {
		for _, v := range flower.Ratings {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// memMediaStore is an in-memory port.MediaStore.
type memMediaStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemMediaStore() *memMediaStore {
	return &memMediaStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *memMediaStore) Upload(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.types[key] = contentType
	return nil
}

func (s *memMediaStore) Download(_ context.Context, key string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return append([]byte(nil), data...), s.types[key], nil
}

func (s *memMediaStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

func (s *memMediaStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func TestFlowerCreateAndGet(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	flower, err := svc.Create(context.Background(), "Moon Orchid", "white", "Phalaenopsis amabilis")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fetched, err := svc.Get(context.Background(), flower.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Name != "Moon Orchid" || fetched.Species != "Phalaenopsis amabilis" {
		t.Fatalf("unexpected flower %+v", fetched)
	}
}

func TestFlowerCreateRequiresFields(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	if _, err := svc.Create(context.Background(), "", "white", "orchid"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFlowerRateUpdatesAverage(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	flower, err := svc.Create(context.Background(), "Moon Orchid", "white", "orchid")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Rate(context.Background(), flower.ID, 4); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	rated, err := svc.Rate(context.Background(), flower.ID, 5)
	if err != nil {
		t.Fatalf("rate failed: %v", err)
	}

	if len(rated.Ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(rated.Ratings))
	}
	if math.Abs(rated.AverageRating-4.5) > 1e-9 {
		t.Fatalf("expected average 4.5, got %v", rated.AverageRating)
	}
}

func TestFlowerRateRejectsOutOfRange(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	flower, err := svc.Create(context.Background(), "Moon Orchid", "white", "orchid")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Rate(context.Background(), flower.ID, 5.5); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := svc.Rate(context.Background(), flower.ID, -0.1); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
}

func TestFlowerTopRatedOrdersByAverage(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	low, _ := svc.Create(context.Background(), "Daisy", "white", "daisy")
	high, _ := svc.Create(context.Background(), "Rose", "red", "rose")

	if _, err := svc.Rate(context.Background(), low.ID, 2); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	if _, err := svc.Rate(context.Background(), high.ID, 5); err != nil {
		t.Fatalf("rate failed: %v", err)
	}

	top, err := svc.TopRated(context.Background(), 1)
	if err != nil {
		t.Fatalf("top rated failed: %v", err)
	}
	if len(top) != 1 || top[0].ID != high.ID {
		t.Fatalf("expected highest-rated flower first, got %+v", top)
	}
}

func TestFlowerSpeciesAndStatistics(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	svc.Create(context.Background(), "Rose A", "red", "rose")
	svc.Create(context.Background(), "Rose B", "white", "rose")
	svc.Create(context.Background(), "Daisy", "white", "daisy")

	species, err := svc.Species(context.Background())
	if err != nil {
		t.Fatalf("species failed: %v", err)
	}
	if len(species) != 2 {
		t.Fatalf("expected 2 species, got %v", species)
	}

	stats, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}

	counts := make(map[string]int64)
	for _, bucket := range stats.BySpecies {
		counts[bucket.Species] = bucket.Count
	}
	if counts["rose"] != 2 || counts["daisy"] != 1 {
		t.Fatalf("unexpected species counts %v", counts)
	}
}

func TestFlowerOverallAverageRating(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	a, _ := svc.Create(context.Background(), "Rose", "red", "rose")
	b, _ := svc.Create(context.Background(), "Daisy", "white", "daisy")

	svc.Rate(context.Background(), a.ID, 3)
	svc.Rate(context.Background(), a.ID, 5)
	svc.Rate(context.Background(), b.ID, 4)

	avg, err := svc.OverallAverageRating(context.Background())
	if err != nil {
		t.Fatalf("average failed: %v", err)
	}
	if math.Abs(avg-4) > 1e-9 {
		t.Fatalf("expected overall average 4, got %v", avg)
	}
}

func TestFlowerImageLifecycle(t *testing.T) {
	repo := newMemFlowerRepository()
	media := newMemMediaStore()
	svc := NewFlowerService(repo, media, zaptest.NewLogger(t))

	flower, err := svc.Create(context.Background(), "Moon Orchid", "white", "orchid")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, _, err := svc.Image(context.Background(), flower.ID); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound before upload, got %v", err)
	}

	key, err := svc.UploadImage(context.Background(), flower.ID, []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if key == "" {
		t.Fatal("expected object key")
	}

	data, contentType, err := svc.Image(context.Background(), flower.ID)
	if err != nil {
		t.Fatalf("image fetch failed: %v", err)
	}
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected image %q %q", data, contentType)
	}

	replacement, err := svc.UploadImage(context.Background(), flower.ID, []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if media.has(key) {
		t.Fatal("expected replaced image to be removed")
	}

	if err := svc.Delete(context.Background(), flower.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if media.has(replacement) {
		t.Fatal("expected stored image to be removed with the flower")
	}
}

func TestFlowerImageUnavailableWithoutStore(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	flower, err := svc.Create(context.Background(), "Moon Orchid", "white", "orchid")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.UploadImage(context.Background(), flower.ID, []byte("x"), "image/png"); !errors.Is(err, ErrMediaUnavailable) {
		t.Fatalf("expected ErrMediaUnavailable, got %v", err)
	}
	if _, _, err := svc.Image(context.Background(), flower.ID); !errors.Is(err, ErrMediaUnavailable) {
		t.Fatalf("expected ErrMediaUnavailable, got %v", err)
	}
}

func TestFlowerListFiltersByRatingRange(t *testing.T) {
	repo := newMemFlowerRepository()
	svc := NewFlowerService(repo, nil, zaptest.NewLogger(t))

	low, _ := svc.Create(context.Background(), "Daisy", "white", "daisy")
	high, _ := svc.Create(context.Background(), "Rose", "red", "rose")

	svc.Rate(context.Background(), low.ID, 2)
	svc.Rate(context.Background(), high.ID, 5)

	min := 4.0
	flowers, err := svc.List(context.Background(), port.FlowerFilter{MinRating: &min})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(flowers) != 1 || flowers[0].ID != high.ID {
		t.Fatalf("expected only highly rated flower, got %+v", flowers)
	}
}
