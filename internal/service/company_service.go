package service

import (
	"context"
	"errors"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type UpdateCompanySettingsRequest struct {
	Name     string                 `json:"name"`
	Settings *model.CompanySettings `json:"settings"`
}

// --- Interface ---

type CompanyService interface {
	GetCompany(ctx context.Context, companyID uuid.UUID) (*model.Company, error)
	UpdateSettings(ctx context.Context, companyID uuid.UUID, req UpdateCompanySettingsRequest) (*model.Company, error)
}

type companyService struct {
	companies repository.CompanyRepository
}

func NewCompanyService(companies repository.CompanyRepository) CompanyService {
	return &companyService{companies: companies}
}

// --- Implementation ---

func (s *companyService) GetCompany(ctx context.Context, companyID uuid.UUID) (*model.Company, error) {
	company, err := s.companies.GetByIDWithAdmin(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("company not found")
		}
		return nil, err
	}
	return company, nil
}

func (s *companyService) UpdateSettings(ctx context.Context, companyID uuid.UUID, req UpdateCompanySettingsRequest) (*model.Company, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("company not found")
		}
		return nil, err
	}

	if req.Name != "" {
		company.Name = req.Name
	}
	if req.Settings != nil {
		settings := *req.Settings
		if settings.PercentageRule.Percentage <= 0 || settings.PercentageRule.Percentage > 100 {
			settings.PercentageRule.Percentage = company.Settings.PercentageRule.Percentage
		}
		if settings.HybridRule.Percentage <= 0 || settings.HybridRule.Percentage > 100 {
			settings.HybridRule.Percentage = company.Settings.HybridRule.Percentage
		}
		company.Settings = settings
	}

	if err := s.companies.Update(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}
