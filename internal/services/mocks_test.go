package services_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
	"github.com/roadwatch/backend/internal/version"
)

// fakeUsers keeps users in memory and enforces email/external-id
// uniqueness the way the relational store would. State lookups consult
// the shared version store.
type fakeUsers struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	versions *version.MemoryStore
}

func newFakeUsers(versions *version.MemoryStore) *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]models.User), versions: versions}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(u)
}

func (f *fakeUsers) CreateWithVersions(ctx context.Context, u *models.User, versions []models.AttributeVersion) error {
	f.mu.Lock()
	if err := f.insert(u); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	for _, v := range versions {
		if err := f.versions.Open(ctx, v.Kind, u.ID, v.Payload, v.ValidFrom); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeUsers) insert(u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: user %s", repository.ErrDuplicate, u.Email)
		}
		if u.ExternalID != nil && existing.ExternalID != nil && *existing.ExternalID == *u.ExternalID {
			return fmt.Errorf("%w: external id %s", repository.ErrDuplicate, *u.ExternalID)
		}
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ListByCurrentState(ctx context.Context, state string) ([]models.User, error) {
	f.mu.Lock()
	ids := make([]uuid.UUID, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	f.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var out []models.User
	for _, id := range ids {
		row, err := f.versions.Current(ctx, version.KindUserState, id)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		if s, _ := row.Payload["state"].(string); s == state {
			f.mu.Lock()
			out = append(out, f.users[id])
			f.mu.Unlock()
		}
	}
	return out, nil
}

// fakeAttempts is an append-only in-memory attempt log.
type fakeAttempts struct {
	mu   sync.Mutex
	rows []models.LoginAttempt
}

func (f *fakeAttempts) Append(_ context.Context, attempt *models.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *attempt)
	return nil
}

func (f *fakeAttempts) ListByUserNewestFirst(_ context.Context, userID uuid.UUID) ([]models.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LoginAttempt
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID != nil && *f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeAttempts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeReports mirrors the relational report table.
type fakeReports struct {
	mu       sync.Mutex
	reports  []models.Report
	versions *version.MemoryStore
}

func newFakeReports(versions *version.MemoryStore) *fakeReports {
	return &fakeReports{versions: versions}
}

func (f *fakeReports) CreateWithVersions(ctx context.Context, report *models.Report, versions []models.AttributeVersion) error {
	f.mu.Lock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	f.reports = append(f.reports, *report)
	f.mu.Unlock()
	for _, v := range versions {
		if err := f.versions.Open(ctx, v.Kind, report.ID, v.Payload, v.ValidFrom); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeReports) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeReports) ListNewestFirst(_ context.Context) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Report, len(f.reports))
	copy(out, f.reports)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReports) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Report
	for _, r := range f.reports {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReports) FindByUserAndCoords(_ context.Context, userID uuid.UUID, lat, lon float64) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Report
	for _, r := range f.reports {
		if r.UserID != nil && *r.UserID == userID && r.Latitude == lat && r.Longitude == lon {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeCompanies mirrors the companies table.
type fakeCompanies struct {
	mu   sync.Mutex
	rows []models.Company
}

func (f *fakeCompanies) Create(_ context.Context, c *models.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.Name == c.Name {
			return fmt.Errorf("%w: company %s", repository.ErrDuplicate, c.Name)
		}
	}
	c.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *c)
	return nil
}

func (f *fakeCompanies) FindByID(_ context.Context, id int64) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCompanies) List(_ context.Context) ([]models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Company, len(f.rows))
	copy(out, f.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fakeVerifier avoids bcrypt cost: hashes are "hashed:"+plaintext.
type fakeVerifier struct{}

func (fakeVerifier) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (fakeVerifier) Verify(plaintext, hash string) bool {
	return strings.TrimPrefix(hash, "hashed:") == plaintext
}

// fakeSyncer records dispatched events in order.
type fakeSyncer struct {
	mu     sync.Mutex
	events []docsync.Event
}

func (f *fakeSyncer) Dispatch(ev docsync.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeSyncer) byEntity(entity docsync.Entity) []docsync.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []docsync.Event
	for _, ev := range f.events {
		if ev.Entity == entity {
			out = append(out, ev)
		}
	}
	return out
}
