package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/repository"
)

const flowersCollection = "flowers"

// FlowerRepository stores the catalogue in the flowers collection.
type FlowerRepository struct {
	col *mongo.Collection
}

func NewFlowerRepository(db *mongo.Database) *FlowerRepository {
	return &FlowerRepository{col: db.Collection(flowersCollection)}
}

func (r *FlowerRepository) Create(ctx context.Context, flower domain.Flower) error {
	if _, err := r.col.InsertOne(ctx, flower); err != nil {
		return fmt.Errorf("insert flower: %w", err)
	}
	return nil
}

func (r *FlowerRepository) GetByID(ctx context.Context, id string) (*domain.Flower, error) {
	var flower domain.Flower
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&flower); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find flower: %w", err)
	}
	return &flower, nil
}

func containsRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

func flowerQuery(filter port.FlowerFilter) bson.M {
	query := bson.M{}
	if filter.Name != "" {
		query["name"] = containsRegex(filter.Name)
	}
	if filter.Color != "" {
		query["color"] = containsRegex(filter.Color)
	}
	if filter.Species != "" {
		query["species"] = containsRegex(filter.Species)
	}

	rating := bson.M{}
	if filter.MinRating != nil {
		rating["$gte"] = *filter.MinRating
	}
	if filter.MaxRating != nil {
		rating["$lte"] = *filter.MaxRating
	}
	if len(rating) > 0 {
		query["average_rating"] = rating
	}

	if filter.CreatedAfter != nil {
		query["created_at"] = bson.M{"$gte": *filter.CreatedAfter}
	}
	return query
}

var flowerSortFields = map[string]string{
	"name":           "name",
	"species":        "species",
	"created_at":     "created_at",
	"average_rating": "average_rating",
}

func (r *FlowerRepository) List(ctx context.Context, filter port.FlowerFilter) ([]domain.Flower, error) {
	sortField, ok := flowerSortFields[filter.SortBy]
	if !ok {
		sortField = "created_at"
		filter.SortDesc = true
	}
	order := 1
	if filter.SortDesc {
		order = -1
	}

	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: order}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * filter.Limit).SetLimit(filter.Limit)
	}

	cursor, err := r.col.Find(ctx, flowerQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list flowers: %w", err)
	}
	defer cursor.Close(ctx)

	flowers := make([]domain.Flower, 0)
	if err := cursor.All(ctx, &flowers); err != nil {
		return nil, fmt.Errorf("decode flowers: %w", err)
	}
	return flowers, nil
}

func (r *FlowerRepository) Count(ctx context.Context, filter port.FlowerFilter) (int64, error) {
	count, err := r.col.CountDocuments(ctx, flowerQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count flowers: %w", err)
	}
	return count, nil
}

func (r *FlowerRepository) Update(ctx context.Context, id string, update port.FlowerUpdate) (*domain.Flower, error) {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Color != nil {
		set["color"] = *update.Color
	}
	if update.Species != nil {
		set["species"] = *update.Species
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	res := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var flower domain.Flower
	if err := res.Decode(&flower); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update flower: %w", err)
	}
	return &flower, nil
}

func (r *FlowerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete flower: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddRating appends the rating and recomputes the denormalized average
// in a single pipeline update, so concurrent raters never clobber each
// other.
func (r *FlowerRepository) AddRating(ctx context.Context, id string, rating float64) (*domain.Flower, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"ratings": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$ratings", bson.A{}}},
				bson.A{rating},
			}},
		}}},
		bson.D{{Key: "$set", Value: bson.M{
			"average_rating": bson.M{"$avg": "$ratings"},
		}}},
	}

	res := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var flower domain.Flower
	if err := res.Decode(&flower); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("add flower rating: %w", err)
	}
	return &flower, nil
}

func (r *FlowerRepository) SetImageKey(ctx context.Context, id, key string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"image_key": key}},
	)
	if err != nil {
		return fmt.Errorf("set flower image key: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *FlowerRepository) DistinctSpecies(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "species", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct species: %w", err)
	}

	species := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			species = append(species, s)
		}
	}
	return species, nil
}

func (r *FlowerRepository) CountBySpecies(ctx context.Context) ([]domain.SpeciesCount, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{"_id": "$species", "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.M{"count": -1}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate species: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []struct {
		Species string `bson:"_id"`
		Count   int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("decode species buckets: %w", err)
	}

	counts := make([]domain.SpeciesCount, 0, len(buckets))
	for _, b := range buckets {
		counts = append(counts, domain.SpeciesCount{Species: b.Species, Count: b.Count})
	}
	return counts, nil
}

// AverageRating computes the mean over every individual rating in the
// catalogue, not the mean of the per-flower averages.
func (r *FlowerRepository) AverageRating(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$ratings"}},
		bson.D{{Key: "$group", Value: bson.M{"_id": nil, "average": bson.M{"$avg": "$ratings"}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Average float64 `bson:"average"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("decode rating average: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Average, nil
}

var _ port.FlowerRepository = (*FlowerRepository)(nil)
