// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization runs volunteering events. Events are addressed by their
// position in Events and are never removed.
type Organization struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Events       []Event            `bson:"events" json:"events"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Event is a volunteering opportunity with a fixed number of positions and
// a fixed reward paid on completion.
type Event struct {
	Name                  string    `bson:"name" json:"name"`
	PositionsAvailable    int       `bson:"positions_available" json:"positions_available"`
	InitialPositions      int       `bson:"initial_positions" json:"initial_positions"`
	ShelterCreditsOffered int64     `bson:"shelter_credits_offered" json:"shelter_credits_offered"`
	FoodCreditsOffered    int64     `bson:"food_credits_offered" json:"food_credits_offered"`
	CreatedAt             time.Time `bson:"created_at" json:"created_at"`
}

// Offered returns the reward for the given pool.
func (e Event) Offered(c CreditType) int64 {
	switch c {
	case CreditShelter:
		return e.ShelterCreditsOffered
	case CreditFood:
		return e.FoodCreditsOffered
	}
	return 0
}

// EventAt returns the event at index i, or false when i is out of range.
func (o Organization) EventAt(i int) (Event, bool) {
	if i < 0 || i >= len(o.Events) {
		return Event{}, false
	}
	return o.Events[i], true
}

// OpenEvent is an event with at least one free position, flattened with
// its owner for listing.
type OpenEvent struct {
	OrgID      primitive.ObjectID `json:"org_id"`
	OrgName    string             `json:"org_name"`
	EventIndex int                `json:"event_index"`
	Event
}
