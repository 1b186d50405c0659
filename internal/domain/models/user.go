// internal/domain/models/user.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is every account kept in the users collection: NGOs, homeless
// persons registered by an NGO, and plain users. Role decides which of the
// optional fields are meaningful; use Variant to get a typed view.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         Role               `bson:"role" json:"role"`

	// NGO only
	Cause string `bson:"cause,omitempty" json:"cause,omitempty"`

	// Homeless person only
	ShelterCredits int64               `bson:"shelter_credits,omitempty" json:"shelter_credits"`
	FoodCredits    int64               `bson:"food_credits,omitempty" json:"food_credits"`
	AddedBy        *primitive.ObjectID `bson:"added_by,omitempty" json:"added_by,omitempty"`
	Assignment     *Assignment         `bson:"assignment,omitempty" json:"assignment,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Assignment binds a homeless person to one event of one organization.
type Assignment struct {
	OrgID       primitive.ObjectID `bson:"org_id" json:"org_id"`
	OrgName     string             `bson:"org_name" json:"org_name"`
	EventIndex  int                `bson:"event_index" json:"event_index"`
	EventName   string             `bson:"event_name" json:"event_name"`
	Completed   bool               `bson:"completed" json:"completed"`
	AssignedAt  time.Time          `bson:"assigned_at" json:"assigned_at"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Active reports whether the assignment still awaits completion.
func (a *Assignment) Active() bool {
	return a != nil && !a.Completed
}

// Matches reports whether the assignment points at the given event.
func (a *Assignment) Matches(orgID primitive.ObjectID, eventIndex int) bool {
	return a != nil && a.OrgID == orgID && a.EventIndex == eventIndex
}

// Balance returns the counter for the given pool.
func (u User) Balance(c CreditType) int64 {
	switch c {
	case CreditShelter:
		return u.ShelterCredits
	case CreditFood:
		return u.FoodCredits
	}
	return 0
}

// Variant is the typed view of a User, one concrete type per role.
type Variant interface {
	role() Role
}

// NGO registers homeless persons and acts on their behalf.
type NGO struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Cause string
}

// HomelessPerson holds the two credit balances and at most one assignment.
type HomelessPerson struct {
	ID             primitive.ObjectID
	Name           string
	ShelterCredits int64
	FoodCredits    int64
	AddedBy        *primitive.ObjectID
	Assignment     *Assignment
}

// PlainUser is a signed-up visitor with no ledger role.
type PlainUser struct {
	ID    primitive.ObjectID
	Name  string
	Email string
}

func (NGO) role() Role            { return RoleNGO }
func (HomelessPerson) role() Role { return RoleHomeless }
func (PlainUser) role() Role      { return RoleUser }

// Balance returns the counter for the given pool.
func (h HomelessPerson) Balance(c CreditType) int64 {
	if c == CreditShelter {
		return h.ShelterCredits
	}
	return h.FoodCredits
}

// Variant returns the typed view for u.Role. Roles that never live in the
// users collection (organization, provider) are an error.
func (u User) Variant() (Variant, error) {
	switch u.Role {
	case RoleNGO:
		return NGO{ID: u.ID, Name: u.Name, Email: u.Email, Cause: u.Cause}, nil
	case RoleHomeless:
		return HomelessPerson{
			ID:             u.ID,
			Name:           u.Name,
			ShelterCredits: u.ShelterCredits,
			FoodCredits:    u.FoodCredits,
			AddedBy:        u.AddedBy,
			Assignment:     u.Assignment,
		}, nil
	case RoleUser:
		return PlainUser{ID: u.ID, Name: u.Name, Email: u.Email}, nil
	case RoleOrganization, RoleProvider:
		return nil, fmt.Errorf("role %q is not stored on users", u.Role)
	}
	return nil, fmt.Errorf("unknown role %q", u.Role)
}
