package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/dto"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
)

var ErrCompanyNameTaken = errors.New("company name already exists")

type CompanyService struct {
	companies repository.Companies
	sync      Syncer
}

func NewCompanyService(companies repository.Companies, sync Syncer) *CompanyService {
	return &CompanyService{companies: companies, sync: sync}
}

func (s *CompanyService) Create(ctx context.Context, req *dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if req.Name == "" {
		return nil, errors.New("company name is required")
	}

	company := models.Company{Name: req.Name}
	if err := s.companies.Create(ctx, &company); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCompanyNameTaken
		}
		return nil, err
	}

	s.sync.Dispatch(docsync.Event{
		Entity: docsync.EntityCompany,
		Action: docsync.ActionCreated,
		ID:     strconv.FormatInt(company.ID, 10),
	})

	return &dto.CompanyResponse{ID: company.ID, Name: company.Name}, nil
}

func (s *CompanyService) List(ctx context.Context) ([]dto.CompanyResponse, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CompanyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, dto.CompanyResponse{ID: c.ID, Name: c.Name})
	}
	return out, nil
}
