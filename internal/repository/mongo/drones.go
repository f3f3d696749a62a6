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

const dronesCollection = "drones"

// DroneRepository stores the fleet in the drones collection.
type DroneRepository struct {
	col *mongo.Collection
}

func NewDroneRepository(db *mongo.Database) *DroneRepository {
	return &DroneRepository{col: db.Collection(dronesCollection)}
}

func (r *DroneRepository) Create(ctx context.Context, drone domain.Drone) error {
	if _, err := r.col.InsertOne(ctx, drone); err != nil {
		return fmt.Errorf("insert drone: %w", err)
	}
	return nil
}

func (r *DroneRepository) GetByID(ctx context.Context, id string) (*domain.Drone, error) {
	var drone domain.Drone
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&drone); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find drone: %w", err)
	}
	return &drone, nil
}

func droneQuery(filter port.DroneFilter) bson.M {
	query := bson.M{}
	if filter.Name != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Name), Options: "i"}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}

func (r *DroneRepository) List(ctx context.Context, filter port.DroneFilter) ([]domain.Drone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * filter.Limit).SetLimit(filter.Limit)
	}

	cursor, err := r.col.Find(ctx, droneQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list drones: %w", err)
	}
	defer cursor.Close(ctx)

	drones := make([]domain.Drone, 0)
	if err := cursor.All(ctx, &drones); err != nil {
		return nil, fmt.Errorf("decode drones: %w", err)
	}
	return drones, nil
}

func (r *DroneRepository) Count(ctx context.Context, filter port.DroneFilter) (int64, error) {
	count, err := r.col.CountDocuments(ctx, droneQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count drones: %w", err)
	}
	return count, nil
}

func (r *DroneRepository) Update(ctx context.Context, id string, update port.DroneUpdate) (*domain.Drone, error) {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	res := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var drone domain.Drone
	if err := res.Decode(&drone); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update drone: %w", err)
	}
	return &drone, nil
}

func (r *DroneRepository) UpdateStatusBulk(ctx context.Context, ids []string, status domain.DroneStatus) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return 0, fmt.Errorf("bulk update drone status: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *DroneRepository) AppendLogEntry(ctx context.Context, id string, entry domain.DroneLogEntry) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"activity_log": entry}},
	)
	if err != nil {
		return fmt.Errorf("append drone log entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DroneRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete drone: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DroneRepository) CountByStatus(ctx context.Context) (map[domain.DroneStatus]int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate drone statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []struct {
		Status domain.DroneStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("decode drone status buckets: %w", err)
	}

	counts := make(map[domain.DroneStatus]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.Count
	}
	return counts, nil
}

var _ port.DroneRepository = (*DroneRepository)(nil)
