package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/store/storeerr"
	"github.com/dalemusser/eatandearn/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory implementation of every store interface the
// ledger, assignment, redemption and credits packages depend on. Each
// method holds one mutex for the whole check-and-write, which gives the
// same guarantee as a conditional update on a single document.
type MemStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	orgs      map[string]models.Organization
	providers map[string]models.Provider
	txns      []models.Transaction

	// Fail* inject errors into the named operation when set.
	FailSetAssignment error
	FailConsumeQuota  error
	FailAppend        error
	FailAdjust        error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]models.User),
		orgs:      make(map[string]models.Organization),
		providers: make(map[string]models.Provider),
	}
}

// Run calls fn directly. MemStore has no transactions; callers rely on
// their own compensation, as they do against a standalone MongoDB.
func (m *MemStore) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- seeding ---

// AddUser stores u, assigning an ID if it has none, and returns the ID as hex.
func (m *MemStore) AddUser(u models.User) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID.Hex()] = cloneUser(u)
	return u.ID.Hex()
}

// AddHomeless stores a homeless person with the given balances.
func (m *MemStore) AddHomeless(name string, shelter, food int64) string {
	return m.AddUser(models.User{
		Name:           name,
		Role:           models.RoleHomeless,
		ShelterCredits: shelter,
		FoodCredits:    food,
	})
}

// AddOrganization stores org and returns its ID as hex. Each event's
// InitialPositions defaults to its PositionsAvailable.
func (m *MemStore) AddOrganization(org models.Organization) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org.ID.IsZero() {
		org.ID = primitive.NewObjectID()
	}
	evs := make([]models.Event, len(org.Events))
	copy(evs, org.Events)
	for i := range evs {
		if evs[i].InitialPositions == 0 {
			evs[i].InitialPositions = evs[i].PositionsAvailable
		}
	}
	org.Events = evs
	m.orgs[org.ID.Hex()] = org
	return org.ID.Hex()
}

// AddProvider stores p and returns its ID as hex.
func (m *MemStore) AddProvider(p models.Provider) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.providers[p.ID.Hex()] = p
	return p.ID.Hex()
}

// Transactions returns a copy of the appended records in order.
func (m *MemStore) Transactions() []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Transaction(nil), m.txns...)
}

// --- users ---

func (m *MemStore) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, storeerr.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *MemStore) AdjustCredits(_ context.Context, id string, credit models.CreditType, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAdjust != nil {
		return 0, m.FailAdjust
	}
	u, ok := m.users[id]
	if !ok || u.Role != models.RoleHomeless {
		return 0, storeerr.ErrNotFound
	}
	bal := u.Balance(credit)
	if delta < 0 && bal < -delta {
		return 0, storeerr.ErrGuardFailed
	}
	bal += delta
	switch credit {
	case models.CreditShelter:
		u.ShelterCredits = bal
	case models.CreditFood:
		u.FoodCredits = bal
	}
	m.users[id] = u
	return bal, nil
}

func (m *MemStore) SetAssignment(_ context.Context, id string, a models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetAssignment != nil {
		return m.FailSetAssignment
	}
	u, ok := m.users[id]
	if !ok || u.Role != models.RoleHomeless {
		return storeerr.ErrNotFound
	}
	if u.Assignment.Active() {
		return storeerr.ErrGuardFailed
	}
	u.Assignment = &a
	m.users[id] = u
	return nil
}

func (m *MemStore) MarkCompleted(_ context.Context, id string, orgID primitive.ObjectID, eventIndex int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return storeerr.ErrNotFound
	}
	if !u.Assignment.Matches(orgID, eventIndex) || u.Assignment.Completed {
		return storeerr.ErrGuardFailed
	}
	a := *u.Assignment
	a.Completed = true
	a.CompletedAt = &at
	u.Assignment = &a
	m.users[id] = u
	return nil
}

func (m *MemStore) UnmarkCompleted(_ context.Context, id string, orgID primitive.ObjectID, eventIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return storeerr.ErrNotFound
	}
	if !u.Assignment.Matches(orgID, eventIndex) || !u.Assignment.Completed {
		return storeerr.ErrGuardFailed
	}
	a := *u.Assignment
	a.Completed = false
	a.CompletedAt = nil
	u.Assignment = &a
	m.users[id] = u
	return nil
}

// --- organizations ---

func (m *MemStore) GetOrganization(_ context.Context, id string) (models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return models.Organization{}, storeerr.ErrNotFound
	}
	evs := make([]models.Event, len(org.Events))
	copy(evs, org.Events)
	org.Events = evs
	return org, nil
}

func (m *MemStore) ClaimPosition(_ context.Context, orgID string, eventIndex int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[orgID]
	if !ok || eventIndex < 0 || eventIndex >= len(org.Events) {
		return 0, storeerr.ErrNotFound
	}
	if org.Events[eventIndex].PositionsAvailable <= 0 {
		return 0, storeerr.ErrGuardFailed
	}
	org.Events[eventIndex].PositionsAvailable--
	return org.Events[eventIndex].PositionsAvailable, nil
}

func (m *MemStore) ReleasePosition(_ context.Context, orgID string, eventIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[orgID]
	if !ok || eventIndex < 0 || eventIndex >= len(org.Events) {
		return storeerr.ErrNotFound
	}
	ev := &org.Events[eventIndex]
	if ev.PositionsAvailable >= ev.InitialPositions {
		return storeerr.ErrGuardFailed
	}
	ev.PositionsAvailable++
	return nil
}

// --- providers ---

func (m *MemStore) GetProvider(_ context.Context, id string) (models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return models.Provider{}, storeerr.ErrNotFound
	}
	return p, nil
}

func (m *MemStore) ConsumeQuota(_ context.Context, id string, amount int64, floor bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailConsumeQuota != nil {
		return 0, m.FailConsumeQuota
	}
	p, ok := m.providers[id]
	if !ok {
		return 0, storeerr.ErrNotFound
	}
	if floor && p.AvailableQuota < amount {
		return 0, storeerr.ErrGuardFailed
	}
	p.AvailableQuota -= amount
	m.providers[id] = p
	return p.AvailableQuota, nil
}

func (m *MemStore) RestoreQuota(_ context.Context, id string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return storeerr.ErrNotFound
	}
	p.AvailableQuota += amount
	m.providers[id] = p
	return nil
}

// ListProviders returns every provider sorted by name.
func (m *MemStore) ListProviders(_ context.Context) ([]models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- transactions ---

func (m *MemStore) Append(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend != nil {
		return models.Transaction{}, m.FailAppend
	}
	tx.ID = primitive.NewObjectID()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	m.txns = append(m.txns, tx)
	return tx, nil
}

func cloneUser(u models.User) models.User {
	if u.Assignment != nil {
		a := *u.Assignment
		u.Assignment = &a
	}
	return u
}
