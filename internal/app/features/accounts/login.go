// internal/app/features/accounts/login.go
package accounts

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/app/system/authutil"
	"github.com/dalemusser/eatandearn/internal/app/system/inputval"
	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

const badCredentials = "Invalid email or password."

// HandleLogin starts a session for a person or organization account.
// Homeless persons hold no password and cannot sign in.
// POST /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.BadRequest(w, res.All())
		return
	}
	if ok, reason := h.Limiter.Check(r, in.Email); !ok {
		h.Log.Warn("login rate limited", zap.String("email", in.Email))
		apierr.TooManyRequests(w, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acct, err := h.findAccount(ctx, in.Email)
	if errors.Is(err, errNoAccount) {
		h.Audit.LoginFailedUserNotFound(ctx, r, in.Email)
		apierr.Unauthorized(w, badCredentials)
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, "login", err)
		return
	}
	if !authutil.CheckPassword(acct.hash, in.Password) {
		h.Audit.LoginFailedWrongPassword(ctx, r, acct.user.ID, in.Email)
		apierr.Unauthorized(w, badCredentials)
		return
	}

	if err := h.Sessions.Login(w, r, acct.user); err != nil {
		apierr.Write(w, h.Log, "save session", err)
		return
	}
	h.Limiter.ResetEmail(in.Email)
	h.Audit.LoginSuccess(ctx, r, acct.user.ID, acct.user.Role, acct.user.Email)
	apierr.WriteJSON(w, http.StatusOK, sessionView(acct.user))
}

// HandleLogout ends the session.
// POST /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	u, signedIn := auth.CurrentUser(r)
	if err := h.Sessions.Logout(w, r); err != nil {
		apierr.Write(w, h.Log, "clear session", err)
		return
	}
	if signedIn {
		h.Audit.Logout(r.Context(), r, u.ID)
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

type sessionResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func sessionView(u auth.SessionUser) sessionResponse {
	return sessionResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
