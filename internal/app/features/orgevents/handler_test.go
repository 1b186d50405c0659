package orgevents_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/eatandearn/internal/app/features/orgevents"
	"github.com/dalemusser/eatandearn/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type eventJSON struct {
	EventIndex         int    `json:"event_index"`
	Name               string `json:"name"`
	PositionsAvailable int    `json:"positions_available"`
	InitialPositions   int    `json:"initial_positions"`
}

func TestPostAndListEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := testutil.NewFixtures(t, db).CreateOrganization(ctx, "City Works")
	user := testutil.OrganizationUser(org.ID)
	h := orgevents.NewHandler(db, nil, zap.NewNop())

	for i, name := range []string{"Soup Kitchen", "<i>Park</i> Cleanup"} {
		rec := testutil.NewRecorder()
		req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/org/events", map[string]any{
			"name": name, "positions_available": 3, "shelter_credits_offered": 10, "food_credits_offered": 0,
		}), user)
		h.HandlePostEvent(rec, req)
		rec.AssertStatus(t, http.StatusCreated)

		var got eventJSON
		rec.DecodeJSON(t, &got)
		if got.EventIndex != i || got.InitialPositions != 3 {
			t.Errorf("event %d: unexpected %+v", i, got)
		}
	}

	rec := testutil.NewRecorder()
	h.ServeEvents(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/org/events", user))
	rec.AssertStatus(t, http.StatusOK)

	var list struct {
		Events []eventJSON `json:"events"`
	}
	rec.DecodeJSON(t, &list)
	if len(list.Events) != 2 {
		t.Fatalf("events: got %d, want 2", len(list.Events))
	}
	if list.Events[1].Name != "Park Cleanup" || list.Events[1].EventIndex != 1 {
		t.Errorf("unexpected second event: %+v", list.Events[1])
	}
}

func TestPostEvent_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := testutil.NewFixtures(t, db).CreateOrganization(ctx, "City Works")
	h := orgevents.NewHandler(db, nil, zap.NewNop())

	tests := []struct {
		name string
		user testutil.TestUser
		body map[string]any
		want int
	}{
		{"no positions", testutil.OrganizationUser(org.ID), map[string]any{"name": "X", "positions_available": 0}, http.StatusBadRequest},
		{"negative reward", testutil.OrganizationUser(org.ID), map[string]any{"name": "X", "positions_available": 1, "food_credits_offered": -5}, http.StatusBadRequest},
		{"missing name", testutil.OrganizationUser(org.ID), map[string]any{"positions_available": 1}, http.StatusBadRequest},
		{"unknown organization", testutil.OrganizationUser(primitive.NewObjectID()), map[string]any{"name": "X", "positions_available": 1}, http.StatusNotFound},
		{"not an organization", testutil.PlainUser(), map[string]any{"name": "X", "positions_available": 1}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandlePostEvent(rec, testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/org/events", tt.body), tt.user))
			rec.AssertStatus(t, tt.want)
		})
	}
}
