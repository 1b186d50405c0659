package accounts_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/features/accounts"
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) *accounts.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm, err := auth.NewSessionManager(strings.Repeat("k", 32), "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return accounts.NewHandler(db, sm, nil, zap.NewNop())
}

func post(h http.HandlerFunc, target string, body any) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h(rec, testutil.NewJSONRequest(http.MethodPost, target, body))
	return rec
}

func TestSignup(t *testing.T) {
	h := newHandler(t)

	rec := post(h.HandleSignup, "/signup", map[string]string{
		"name":     "  Helping   Hands ",
		"email":    "Team@Helping.org",
		"password": "s3cret-pass",
		"role":     "NGO",
		"cause":    "<b>Shelter</b> for all",
	})
	rec.AssertStatus(t, http.StatusCreated)

	var got struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
		Cause string `json:"cause"`
	}
	rec.DecodeJSON(t, &got)
	if got.Name != "Helping Hands" || got.Email != "team@helping.org" || got.Role != "ngo" || got.Cause != "Shelter for all" {
		t.Errorf("unexpected account: %+v", got)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash leaked into the response")
	}
}

func TestSignup_Rejections(t *testing.T) {
	h := newHandler(t)
	ok := map[string]string{"name": "Sam", "email": "sam@example.com", "password": "long-enough"}
	post(h.HandleSignup, "/signup", ok).AssertStatus(t, http.StatusCreated)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"duplicate email", map[string]string{"name": "Sam 2", "email": "SAM@example.com", "password": "long-enough"}, http.StatusConflict},
		{"ngo without cause", map[string]string{"name": "NGO", "email": "ngo@example.com", "password": "long-enough", "role": "ngo"}, http.StatusBadRequest},
		{"short password", map[string]string{"name": "Kim", "email": "kim@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", map[string]string{"name": "Kim", "email": "kim", "password": "long-enough"}, http.StatusBadRequest},
		{"self-assigned homeless role", map[string]string{"name": "Kim", "email": "kim@example.com", "password": "long-enough", "role": "homeless person"}, http.StatusBadRequest},
		{"malformed body", `{"name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post(h.HandleSignup, "/signup", tt.body).AssertStatus(t, tt.want)
		})
	}
}

func TestEnrollAndLoginOrganization(t *testing.T) {
	h := newHandler(t)

	post(h.HandleEnrollOrg, "/enroll_org", map[string]string{
		"name": "City Works", "email": "works@city.org", "password": "volunteer!",
	}).AssertStatus(t, http.StatusCreated)

	// The email now belongs to the organization, so a user may not take it.
	post(h.HandleSignup, "/signup", map[string]string{
		"name": "Sam", "email": "works@city.org", "password": "long-enough",
	}).AssertStatus(t, http.StatusConflict)

	rec := post(h.HandleLogin, "/login", map[string]string{"email": "Works@City.org", "password": "volunteer!"})
	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Role string `json:"role"`
		Name string `json:"name"`
	}
	rec.DecodeJSON(t, &got)
	if got.Role != "organization" || got.Name != "City Works" {
		t.Errorf("unexpected session: %+v", got)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected a session cookie")
	}
}

func TestLogin_Failures(t *testing.T) {
	h := newHandler(t)
	post(h.HandleSignup, "/signup", map[string]string{
		"name": "Sam", "email": "sam@example.com", "password": "long-enough",
	}).AssertStatus(t, http.StatusCreated)

	post(h.HandleLogin, "/login", map[string]string{"email": "sam@example.com", "password": "wrong-password"}).
		AssertStatus(t, http.StatusUnauthorized)
	post(h.HandleLogin, "/login", map[string]string{"email": "nobody@example.com", "password": "whatever"}).
		AssertStatus(t, http.StatusUnauthorized)
	post(h.HandleLogin, "/login", map[string]string{"email": "sam@example.com", "password": "long-enough"}).
		AssertStatus(t, http.StatusOK)
}

func TestLogout(t *testing.T) {
	h := newHandler(t)
	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", testutil.PlainUser())
	h.HandleLogout(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "signed_out")
}
