package metricsstore

import (
	"context"

	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of platform totals shown on dashboards.
type Counts struct {
	NGOs          int64 `json:"ngos"`
	Homeless      int64 `json:"homeless"`
	Users         int64 `json:"users"`
	Organizations int64 `json:"organizations"`
	Providers     int64 `json:"providers"`
	Transactions  int64 `json:"transactions"`
	Opportunities int64 `json:"opportunities"`
}

// Credits is the sum of both balances over a set of homeless persons.
type Credits struct {
	Shelter int64 `json:"shelter"`
	Food    int64 `json:"food"`
}

// FetchCounts returns the platform-wide counts.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	count := func(coll string, filter bson.M, dst *int64) {
		if n, err := db.Collection(coll).CountDocuments(ctx, filter); err == nil {
			*dst = n
		}
	}

	count("users", bson.M{"role": models.RoleNGO}, &out.NGOs)
	count("users", bson.M{"role": models.RoleHomeless}, &out.Homeless)
	count("users", bson.M{"role": models.RoleUser}, &out.Users)
	count("organizations", bson.M{}, &out.Organizations)
	count("providers", bson.M{}, &out.Providers)
	count("transactions", bson.M{}, &out.Transactions)
	count("opportunities", bson.M{}, &out.Opportunities)

	return out
}

// CreditsHeldBy sums the balances of the homeless persons an NGO registered.
func CreditsHeldBy(ctx context.Context, db *mongo.Database, ngoID primitive.ObjectID) (Credits, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"role": models.RoleHomeless, "added_by": ngoID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"shelter": bson.M{"$sum": "$shelter_credits"},
			"food":    bson.M{"$sum": "$food_credits"},
		}}},
	}
	cur, err := db.Collection("users").Aggregate(ctx, pipeline)
	if err != nil {
		return Credits{}, err
	}
	defer cur.Close(ctx)

	var out Credits
	if cur.Next(ctx) {
		var row struct {
			Shelter int64 `bson:"shelter"`
			Food    int64 `bson:"food"`
		}
		if err := cur.Decode(&row); err != nil {
			return Credits{}, err
		}
		out = Credits{Shelter: row.Shelter, Food: row.Food}
	}
	return out, cur.Err()
}
