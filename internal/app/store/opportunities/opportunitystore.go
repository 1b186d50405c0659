package opportunitystore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errTitleNeeded = errors.New("opportunity title is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("opportunities")}
}

func (s *Store) Create(ctx context.Context, o models.Opportunity) (models.Opportunity, error) {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		return models.Opportunity{}, errTitleNeeded
	}
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Opportunity{}, err
	}
	return o, nil
}

// List returns opportunities newest first.
func (s *Store) List(ctx context.Context) ([]models.Opportunity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Opportunity{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an opportunity by hex id.
func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storeerr.ErrNotFound
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storeerr.ErrNotFound
	}
	return nil
}
