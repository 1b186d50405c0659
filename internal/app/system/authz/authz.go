// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsNGO reports whether the current request's user is an NGO.
func IsNGO(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == string(models.RoleNGO)
}

// IsOrganization reports whether the current request's user is an organization.
func IsOrganization(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == string(models.RoleOrganization)
}

// Actor builds the ledger actor for the signed-in account. Only roles that
// act on the ledger (NGO, organization) yield one.
func Actor(r *http.Request) (ledger.Actor, bool) {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return ledger.Actor{}, false
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return ledger.Actor{}, false
	}
	ar, ok := models.ActorRoleFor(parsed)
	if !ok {
		return ledger.Actor{}, false
	}
	return ledger.Actor{ID: id.Hex(), Role: ar}, true
}
