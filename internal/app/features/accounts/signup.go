// internal/app/features/accounts/signup.go
package accounts

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/ledger"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/authutil"
	"github.com/dalemusser/eatandearn/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.uber.org/zap"
)

type signupInput struct {
	Name     string `json:"name" validate:"required,max=200" label:"Name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
	Role     string `json:"role" validate:"omitempty,oneof=user ngo" label:"Role"`
	Cause    string `json:"cause" validate:"max=1000" label:"Cause"`
}

var errEmailTaken = ledger.ErrConflict.With("an account with this email already exists")

// HandleSignup creates a plain user or an NGO account.
// POST /signup
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	in.Name = normalize.Name(in.Name)
	in.Email = normalize.Email(in.Email)
	in.Role = normalize.Role(in.Role)
	in.Cause = htmlsanitize.PlainText(in.Cause)
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}

	role := models.RoleUser
	if in.Role == string(models.RoleNGO) {
		role = models.RoleNGO
		if in.Cause == "" {
			apierr.BadRequest(w, "Cause is required for an NGO.")
			return
		}
	} else {
		in.Cause = ""
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		apierr.BadRequest(w, "Password must be between 8 and 72 characters.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.emailTaken(ctx, in.Email)
	if err != nil {
		apierr.Write(w, h.Log, "signup", err)
		return
	}
	if taken {
		apierr.Write(w, h.Log, "signup", errEmailTaken)
		return
	}

	u, err := userstore.New(h.DB).Create(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Cause:        in.Cause,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		apierr.Write(w, h.Log, "signup", errEmailTaken)
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "signup", err)
		return
	}

	h.Log.Info("account created", zap.String("user_id", u.ID.Hex()), zap.String("role", string(role)))
	h.Audit.Signup(ctx, r, u.ID.Hex(), string(role))
	apierr.WriteJSON(w, http.StatusCreated, u)
}

type enrollInput struct {
	Name     string `json:"name" validate:"required,max=200" label:"Organization name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
}

// HandleEnrollOrg creates an organization account with no events.
// POST /enroll_org
func (h *Handler) HandleEnrollOrg(w http.ResponseWriter, r *http.Request) {
	var in enrollInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	in.Name = htmlsanitize.PlainText(normalize.Name(in.Name))
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		apierr.BadRequest(w, "Password must be between 8 and 72 characters.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.emailTaken(ctx, in.Email)
	if err != nil {
		apierr.Write(w, h.Log, "enroll organization", err)
		return
	}
	if taken {
		apierr.Write(w, h.Log, "enroll organization", errEmailTaken)
		return
	}

	org, err := organizationstore.New(h.DB).Create(ctx, models.Organization{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		apierr.Write(w, h.Log, "enroll organization", errEmailTaken)
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "enroll organization", err)
		return
	}

	h.Log.Info("organization enrolled", zap.String("org_id", org.ID.Hex()))
	h.Audit.OrgEnrolled(ctx, r, org.ID.Hex(), org.Name)
	apierr.WriteJSON(w, http.StatusCreated, org)
}
