package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/repository"
)

const accountsCollection = "accounts"

// AccountRepository stores accounts in the accounts collection. The
// unique index on email makes concurrent registration race-free: the
// losing writer gets repository.ErrDuplicate from the server.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(accountsCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create unique email index: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	if _, err := r.col.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var account domain.Account
	if err := r.col.FindOne(ctx, filter).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}

// UpdateProfile applies the provided fields and returns the updated
// document. An email collision surfaces as repository.ErrDuplicate via
// the unique index.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, update port.AccountUpdate) (*domain.Account, error) {
	set := bson.M{}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	res := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var account domain.Account
	if err := res.Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("update account profile: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": passwordHash}},
	)
	if err != nil {
		return fmt.Errorf("update account password: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
