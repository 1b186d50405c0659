// internal/app/store/providers/providerstore.go
package providerstore

import (
	"context"
	"errors"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateProvider = errors.New("a provider with this name already exists")
	errNameNeeded        = errors.New("provider name is required")
)

// Defaults are the providers seeded into an empty collection.
var Defaults = []models.Provider{
	{Name: "Sunny Shelter", Type: models.ProviderShelter, AvailableQuota: 100},
	{Name: "Green Food Bank", Type: models.ProviderFoodBank, AvailableQuota: 200},
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("providers")}
}

func (s *Store) Create(ctx context.Context, p models.Provider) (models.Provider, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.NameCI = text.Fold(p.Name)
	if p.Name == "" {
		return models.Provider{}, errNameNeeded
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Provider{}, ErrDuplicateProvider
		}
		return models.Provider{}, err
	}
	return p, nil
}

// Seed inserts Defaults when the collection is empty and reports how many
// providers were added.
func (s *Store) Seed(ctx context.Context) (int, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	added := 0
	for _, p := range Defaults {
		if _, err := s.Create(ctx, p); err != nil {
			if errors.Is(err, ErrDuplicateProvider) {
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

// GetProvider loads a provider by hex id.
func (s *Store) GetProvider(ctx context.Context, id string) (models.Provider, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Provider{}, storeerr.ErrNotFound
	}
	var p models.Provider
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return models.Provider{}, storeerr.FromMongo(err)
	}
	return p, nil
}

// List returns every provider ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Provider, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Provider{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConsumeQuota lowers the provider's quota by amount and returns what is
// left. With floor set, the write only happens while the quota covers the
// amount; otherwise storeerr.ErrGuardFailed is returned.
func (s *Store) ConsumeQuota(ctx context.Context, id string, amount int64, floor bool) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, storeerr.ErrNotFound
	}
	filter := bson.M{"_id": oid}
	if floor {
		filter["available_quota"] = bson.M{"$gte": amount}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Provider
	err = s.c.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"available_quota": -amount}}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Err(); err != nil {
			return 0, storeerr.FromMongo(err)
		}
		return 0, storeerr.ErrGuardFailed
	}
	if err != nil {
		return 0, err
	}
	return p.AvailableQuota, nil
}

// RestoreQuota adds amount back to the provider's quota.
func (s *Store) RestoreQuota(ctx context.Context, id string, amount int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storeerr.ErrNotFound
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"available_quota": amount}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storeerr.ErrNotFound
	}
	return nil
}
