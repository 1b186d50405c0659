package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "ngo"|"homeless person"|"user"`)
	errEmailNeeded    = errors.New("ngo and user accounts must have an email")
	errNameNeeded     = errors.New("name is required")
)

// GetUser loads a user by hex id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, storeerr.ErrNotFound
	}
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return models.User{}, storeerr.FromMongo(err)
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns storeerr.ErrNotFound if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return models.User{}, storeerr.FromMongo(err)
	}
	return u, nil
}

// Create inserts a new user after normalizing & validating fields. The
// caller hashes the password. Homeless persons start with the balances set
// on u and need no email.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)

	if u.Name == "" {
		return models.User{}, errNameNeeded
	}
	switch u.Role {
	case models.RoleNGO, models.RoleUser:
		if u.Email == "" {
			return models.User{}, errEmailNeeded
		}
		u.ShelterCredits, u.FoodCredits, u.Assignment = 0, 0, nil
	case models.RoleHomeless:
		u.Email, u.PasswordHash = "", ""
	default:
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ListHomelessByNGO returns the homeless persons registered by ngoID, by name.
func (s *Store) ListHomelessByNGO(ctx context.Context, ngoID primitive.ObjectID) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	return s.Find(ctx, bson.M{"role": models.RoleHomeless, "added_by": ngoID}, opts)
}

// Find returns users matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of users matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Ledger writes                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// AdjustCredits adds delta to one balance of a homeless person and returns
// the new balance. A debit only applies while the balance covers it; when
// it does not, nothing is written and storeerr.ErrGuardFailed is returned.
func (s *Store) AdjustCredits(ctx context.Context, id string, credit models.CreditType, delta int64) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, storeerr.ErrNotFound
	}
	if _, ok := models.ParseCreditType(string(credit)); !ok {
		return 0, fmt.Errorf("adjust credits: unknown credit type %q", credit)
	}
	field := credit.Field()

	filter := bson.M{"_id": oid, "role": models.RoleHomeless}
	if delta < 0 {
		filter[field] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})

	var out bson.M
	err = s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, s.guardOrMissing(ctx, bson.M{"_id": oid, "role": models.RoleHomeless})
	}
	if err != nil {
		return 0, err
	}
	return toInt64(out[field]), nil
}

// SetAssignment records a as the user's assignment. It fails with
// storeerr.ErrGuardFailed while an earlier assignment is still open.
func (s *Store) SetAssignment(ctx context.Context, id string, a models.Assignment) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storeerr.ErrNotFound
	}
	filter := bson.M{
		"_id":  oid,
		"role": models.RoleHomeless,
		"$or": bson.A{
			bson.M{"assignment": bson.M{"$exists": false}},
			bson.M{"assignment": nil},
			bson.M{"assignment.completed": true},
		},
	}
	update := bson.M{"$set": bson.M{"assignment": a, "updated_at": time.Now().UTC()}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.guardOrMissing(ctx, bson.M{"_id": oid, "role": models.RoleHomeless})
	}
	return nil
}

// MarkCompleted flips the open assignment for (orgID, eventIndex) to
// completed. Only one caller can win this transition.
func (s *Store) MarkCompleted(ctx context.Context, id string, orgID primitive.ObjectID, eventIndex int, at time.Time) error {
	return s.setCompleted(ctx, id, orgID, eventIndex, true, bson.M{"assignment.completed_at": at})
}

// UnmarkCompleted reverses MarkCompleted.
func (s *Store) UnmarkCompleted(ctx context.Context, id string, orgID primitive.ObjectID, eventIndex int) error {
	return s.setCompleted(ctx, id, orgID, eventIndex, false, nil)
}

func (s *Store) setCompleted(ctx context.Context, id string, orgID primitive.ObjectID, eventIndex int, completed bool, extra bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storeerr.ErrNotFound
	}
	filter := bson.M{
		"_id":                    oid,
		"assignment.org_id":      orgID,
		"assignment.event_index": eventIndex,
		"assignment.completed":   !completed,
	}
	set := bson.M{"assignment.completed": completed, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if !completed {
		update["$unset"] = bson.M{"assignment.completed_at": ""}
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.guardOrMissing(ctx, bson.M{"_id": oid})
	}
	return nil
}

// guardOrMissing tells a failed guard apart from a missing record after a
// conditional write matched nothing.
func (s *Store) guardOrMissing(ctx context.Context, filter bson.M) error {
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return storeerr.ErrGuardFailed
	}
	return storeerr.FromMongo(err)
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
