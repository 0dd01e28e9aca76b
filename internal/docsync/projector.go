package docsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docstore"
	"github.com/roadwatch/backend/internal/mapper"
	"github.com/roadwatch/backend/internal/repository"
	"github.com/roadwatch/backend/internal/version"
)

// DocumentSource produces the current flat document for an entity. The
// dispatcher re-reads through it on every event so a document always
// reflects the latest committed versions, not the state at dispatch time.
type DocumentSource interface {
	ReportDocument(ctx context.Context, id uuid.UUID) (docstore.Document, error)
	UserDocument(ctx context.Context, id uuid.UUID) (docstore.Document, error)
	CompanyDocument(ctx context.Context, id int64) (docstore.Document, error)
}

// Projector reads current versions from the relational store and maps them
// through the pure mapper.
type Projector struct {
	users     repository.Users
	reports   repository.Reports
	companies repository.Companies
	versions  version.Store
}

func NewProjector(users repository.Users, reports repository.Reports, companies repository.Companies, versions version.Store) *Projector {
	return &Projector{users: users, reports: reports, companies: companies, versions: versions}
}

func (p *Projector) ReportDocument(ctx context.Context, id uuid.UUID) (docstore.Document, error) {
	report, err := p.reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("report %s not found", id)
	}

	status, err := p.versions.Current(ctx, version.KindReportStatus, id)
	if err != nil {
		return nil, err
	}
	detail, err := p.versions.Current(ctx, version.KindReportDetail, id)
	if err != nil {
		return nil, err
	}

	companyName := ""
	if detail != nil {
		if raw, ok := detail.Payload["company_id"]; ok {
			if companyID, ok := asInt64(raw); ok {
				company, err := p.companies.FindByID(ctx, companyID)
				if err != nil {
					return nil, err
				}
				if company != nil {
					companyName = company.Name
				}
			}
		}
	}

	return mapper.ReportDocument(*report, status, detail, companyName), nil
}

func (p *Projector) UserDocument(ctx context.Context, id uuid.UUID) (docstore.Document, error) {
	user, err := p.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", id)
	}

	profile, err := p.versions.Current(ctx, version.KindUserProfile, id)
	if err != nil {
		return nil, err
	}
	role, err := p.versions.Current(ctx, version.KindUserRole, id)
	if err != nil {
		return nil, err
	}
	state, err := p.versions.Current(ctx, version.KindUserState, id)
	if err != nil {
		return nil, err
	}

	return mapper.UserDocument(*user, profile, role, state), nil
}

func (p *Projector) CompanyDocument(ctx context.Context, id int64) (docstore.Document, error) {
	company, err := p.companies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("company %d not found", id)
	}
	return mapper.CompanyDocument(*company), nil
}

// asInt64 accepts the numeric types a JSONB payload round-trip can yield.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
