package docsync_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docstore"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
)

// fakeUsers implements repository.Users in memory with the same unique
// constraints the relational schema enforces.
type fakeUsers struct {
	mu       sync.Mutex
	users    []models.User
	versions map[uuid.UUID][]models.AttributeVersion

	// failCreates rejects the next n Create calls with ErrDuplicate to
	// exercise race-adoption paths.
	failCreates int

	// hideExternalOnce makes the next FindByExternalID miss, simulating
	// a concurrent insert landing between lookup and create.
	hideExternalOnce bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{versions: make(map[uuid.UUID][]models.AttributeVersion)}
}

func (f *fakeUsers) insert(u *models.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: user %s", repository.ErrDuplicate, u.Email)
		}
		if existing.ExternalID != nil && u.ExternalID != nil && *existing.ExternalID == *u.ExternalID {
			return fmt.Errorf("%w: external id %s", repository.ErrDuplicate, *u.ExternalID)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users = append(f.users, *u)
	return nil
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		return fmt.Errorf("%w: injected", repository.ErrDuplicate)
	}
	return f.insert(u)
}

func (f *fakeUsers) CreateWithVersions(_ context.Context, u *models.User, versions []models.AttributeVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insert(u); err != nil {
		return err
	}
	for i := range versions {
		versions[i].SubjectID = u.ID
	}
	f.versions[u.ID] = append(f.versions[u.ID], versions...)
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideExternalOnce {
		f.hideExternalOnce = false
		return nil, nil
	}
	for _, u := range f.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ListByCurrentState(_ context.Context, state string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		for _, v := range f.versions[u.ID] {
			if v.Kind == "user_state" && v.ValidTo == nil && v.Payload["state"] == state {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

// fakeReports implements repository.Reports in memory.
type fakeReports struct {
	mu       sync.Mutex
	reports  []models.Report
	versions map[uuid.UUID][]models.AttributeVersion
}

func newFakeReports() *fakeReports {
	return &fakeReports{versions: make(map[uuid.UUID][]models.AttributeVersion)}
}

func (f *fakeReports) CreateWithVersions(_ context.Context, report *models.Report, versions []models.AttributeVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	f.reports = append(f.reports, *report)
	for i := range versions {
		versions[i].SubjectID = report.ID
	}
	f.versions[report.ID] = append(f.versions[report.ID], versions...)
	return nil
}

func (f *fakeReports) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.ID == id {
			report := r
			return &report, nil
		}
	}
	return nil, nil
}

func (f *fakeReports) ListNewestFirst(_ context.Context) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Report, len(f.reports))
	copy(out, f.reports)
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

// fakeSource returns canned documents for dispatcher tests.
type fakeSource struct {
	reportDocs  map[uuid.UUID]docstore.Document
	userDocs    map[uuid.UUID]docstore.Document
	companyDocs map[int64]docstore.Document
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		reportDocs:  make(map[uuid.UUID]docstore.Document),
		userDocs:    make(map[uuid.UUID]docstore.Document),
		companyDocs: make(map[int64]docstore.Document),
	}
}

func (f *fakeSource) ReportDocument(_ context.Context, id uuid.UUID) (docstore.Document, error) {
	doc, ok := f.reportDocs[id]
	if !ok {
		return nil, fmt.Errorf("report %s not found", id)
	}
	return doc, nil
}

func (f *fakeSource) UserDocument(_ context.Context, id uuid.UUID) (docstore.Document, error) {
	doc, ok := f.userDocs[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return doc, nil
}

func (f *fakeSource) CompanyDocument(_ context.Context, id int64) (docstore.Document, error) {
	doc, ok := f.companyDocs[id]
	if !ok {
		return nil, fmt.Errorf("company %d not found", id)
	}
	return doc, nil
}
