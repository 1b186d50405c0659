// internal/app/store/transactions/transactionstore.go
package transactionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit and MaxLimit bound list queries.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ErrDuplicateReference means a transaction with the same reference was
// already recorded.
var ErrDuplicateReference = errors.New("a transaction with this reference already exists")

// Store is the append-only transaction log. Records are never updated.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("transactions")}
}

// Append records tx and returns it with its ID set.
func (s *Store) Append(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	tx.ID = primitive.NewObjectID()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, tx); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Transaction{}, ErrDuplicateReference
		}
		return models.Transaction{}, err
	}
	return tx, nil
}

// GetByID loads one transaction by hex id.
func (s *Store) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Transaction{}, storeerr.ErrNotFound
	}
	var tx models.Transaction
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&tx); err != nil {
		return models.Transaction{}, storeerr.FromMongo(err)
	}
	return tx, nil
}

// ListFilter narrows List. Zero fields match everything.
type ListFilter struct {
	UserID     string
	Type       models.TxnType
	CreditType models.CreditType
	Limit      int64
	Offset     int64
}

// List returns transactions newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Transaction, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.CreditType != "" {
		filter["credit_type"] = f.CreditType
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Transaction{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns the transactions recorded for one user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Transaction, error) {
	return s.List(ctx, ListFilter{UserID: userID, Limit: limit})
}
