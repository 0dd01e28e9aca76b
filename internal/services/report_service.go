package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/dto"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
	"github.com/roadwatch/backend/internal/version"
)

var (
	ErrReportNotFound     = errors.New("report not found")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrInvalidStatus      = errors.New("invalid report status")
	ErrMissingCoordinates = errors.New("latitude and longitude are required")
)

type ReportService struct {
	reports   repository.Reports
	companies repository.Companies
	versions  version.Store
	sync      Syncer
	now       func() time.Time
}

func NewReportService(reports repository.Reports, companies repository.Companies, versions version.Store, sync Syncer) *ReportService {
	return &ReportService{
		reports:   reports,
		companies: companies,
		versions:  versions,
		sync:      sync,
		now:       time.Now,
	}
}

// Create inserts a report with its initial NEW status version and pushes
// the document. Reports are immutable after creation; later changes go
// through status/detail versions.
func (s *ReportService) Create(ctx context.Context, req *dto.CreateReportRequest) (*dto.ReportResponse, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, ErrMissingCoordinates
	}
	source := req.Source
	if source == "" {
		source = models.SourceWeb
	}
	if source != models.SourceWeb && source != models.SourceMobile && source != models.SourceExternal {
		return nil, fmt.Errorf("unknown report source %q", req.Source)
	}

	now := s.now()
	report := models.Report{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Source:    source,
		CreatedAt: now,
	}
	versions := []models.AttributeVersion{
		{Kind: version.KindReportStatus, Payload: map[string]any{"status": models.StatusNew}, ValidFrom: now},
	}

	if err := s.reports.CreateWithVersions(ctx, &report, versions); err != nil {
		return nil, err
	}

	s.sync.Dispatch(docsync.ReportEvent(docsync.ActionCreated, report.ID))
	return s.response(ctx, &report)
}

func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*dto.ReportResponse, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return s.response(ctx, report)
}

// Update supersedes the report's status and/or detail versions. The
// report row itself never changes.
func (s *ReportService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateReportRequest) (*dto.ReportResponse, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	now := s.now()

	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		payload := map[string]any{"status": *req.Status}
		if err := s.versions.Supersede(ctx, version.KindReportStatus, id, payload, now); err != nil {
			return nil, err
		}
	}

	if req.SurfaceM2 != nil || req.Budget != nil || req.CompanyID != nil {
		if err := s.supersedeDetail(ctx, id, req, now); err != nil {
			return nil, err
		}
	}

	s.sync.Dispatch(docsync.ReportEvent(docsync.ActionUpdated, id))
	return s.response(ctx, report)
}

// Delete closes the report by superseding its status with DONE and
// removing the projected document. The relational rows stay: history is
// never destroyed.
func (s *ReportService) Delete(ctx context.Context, id uuid.UUID) error {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if report == nil {
		return ErrReportNotFound
	}

	payload := map[string]any{"status": models.StatusDone}
	if err := s.versions.Supersede(ctx, version.KindReportStatus, id, payload, s.now()); err != nil {
		return err
	}

	s.sync.Dispatch(docsync.ReportEvent(docsync.ActionDeleted, id))
	return nil
}

func (s *ReportService) List(ctx context.Context) ([]dto.ReportResponse, error) {
	reports, err := s.reports.ListNewestFirst(ctx)
	if err != nil {
		return nil, err
	}
	return s.responses(ctx, reports)
}

func (s *ReportService) ListByUser(ctx context.Context, userID uuid.UUID) ([]dto.ReportResponse, error) {
	reports, err := s.reports.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.responses(ctx, reports)
}

// supersedeDetail merges the request into the current detail payload so a
// partial update does not drop the fields it leaves out.
func (s *ReportService) supersedeDetail(ctx context.Context, id uuid.UUID, req *dto.UpdateReportRequest, now time.Time) error {
	current, err := s.versions.Current(ctx, version.KindReportDetail, id)
	if err != nil {
		return err
	}

	payload := map[string]any{}
	if current != nil {
		for k, v := range current.Payload {
			payload[k] = v
		}
	}
	if req.SurfaceM2 != nil {
		payload["surface_m2"] = *req.SurfaceM2
	}
	if req.Budget != nil {
		payload["budget"] = *req.Budget
	}
	if req.CompanyID != nil {
		company, err := s.companies.FindByID(ctx, *req.CompanyID)
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("%w: %d", ErrCompanyNotFound, *req.CompanyID)
		}
		payload["company_id"] = *req.CompanyID
	}

	return s.versions.Supersede(ctx, version.KindReportDetail, id, payload, now)
}

func (s *ReportService) responses(ctx context.Context, reports []models.Report) ([]dto.ReportResponse, error) {
	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		resp, err := s.response(ctx, &reports[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *ReportService) response(ctx context.Context, report *models.Report) (*dto.ReportResponse, error) {
	resp := dto.ReportResponse{
		ID:        report.ID,
		UserID:    report.UserID,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		Source:    report.Source,
		Status:    models.StatusNew,
		CreatedAt: report.CreatedAt,
	}

	status, err := s.versions.Current(ctx, version.KindReportStatus, report.ID)
	if err != nil {
		return nil, err
	}
	if status != nil {
		if code, ok := status.Payload["status"].(string); ok && code != "" {
			resp.Status = code
		}
	}

	detail, err := s.versions.Current(ctx, version.KindReportDetail, report.ID)
	if err != nil {
		return nil, err
	}
	if detail != nil {
		resp.SurfaceM2 = floatValue(detail.Payload, "surface_m2")
		resp.Budget = floatValue(detail.Payload, "budget")
		resp.CompanyID = intValue(detail.Payload, "company_id")
	}

	return &resp, nil
}

// JSONB round-trips numbers as float64; in-memory payloads keep their Go
// types. Both shapes are accepted.
func floatValue(payload map[string]any, key string) *float64 {
	switch v := payload[key].(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func intValue(payload map[string]any, key string) *int64 {
	switch v := payload[key].(type) {
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	case float64:
		n := int64(v)
		return &n
	}
	return nil
}
