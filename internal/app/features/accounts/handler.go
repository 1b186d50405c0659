// internal/app/features/accounts/handler.go
package accounts

import (
	"context"
	"errors"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	organizationstore "github.com/dalemusser/eatandearn/internal/app/store/organizations"
	userstore "github.com/dalemusser/eatandearn/internal/app/store/users"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/app/system/ratelimit"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sign-up, organization enrollment, sign-in and sign-out.
type Handler struct {
	DB       *mongo.Database
	Sessions *auth.SessionManager
	Audit    *auditlog.Logger
	Limiter  *ratelimit.LoginLimiter
	Log      *zap.Logger
}

// NewHandler constructs an accounts Handler.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Sessions: sm,
		Audit:    audit,
		Limiter:  ratelimit.NewLoginLimiter(),
		Log:      logger,
	}
}

// account is whoever owns a sign-in email, person or organization.
type account struct {
	user auth.SessionUser
	hash string
}

var errNoAccount = errors.New("no account with this email")

// findAccount looks in users first, then organizations. Sign-up and
// enrollment refuse an email already present in the other collection, so
// at most one matches.
func (h *Handler) findAccount(ctx context.Context, email string) (account, error) {
	u, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if err == nil {
		return account{
			user: auth.SessionUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: string(u.Role)},
			hash: u.PasswordHash,
		}, nil
	}
	if !errors.Is(err, storeerr.ErrNotFound) {
		return account{}, err
	}

	org, err := organizationstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, storeerr.ErrNotFound) {
		return account{}, errNoAccount
	}
	if err != nil {
		return account{}, err
	}
	return account{
		user: auth.SessionUser{ID: org.ID.Hex(), Name: org.Name, Email: org.Email, Role: string(models.RoleOrganization)},
		hash: org.PasswordHash,
	}, nil
}

// emailTaken reports whether any account already uses email.
func (h *Handler) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := h.findAccount(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNoAccount):
		return false, nil
	default:
		return false, err
	}
}
