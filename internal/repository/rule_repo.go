package repository

import (
	"context"

	"expensehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRuleRepository defines data access for approval rule definitions.
// Every query is scoped by company; the resolver never sees another tenant's
// rules.
type ApprovalRuleRepository interface {
	Create(ctx context.Context, rule *model.ApprovalRule) error
	GetByID(ctx context.Context, companyID, ruleID uuid.UUID) (*model.ApprovalRule, error)
	FindActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error)
	FindByName(ctx context.Context, companyID uuid.UUID, name string) (*model.ApprovalRule, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error)
	Update(ctx context.Context, rule *model.ApprovalRule) error
	Delete(ctx context.Context, companyID, ruleID uuid.UUID) error
}

type approvalRuleRepository struct {
	db *gorm.DB
}

func NewApprovalRuleRepository(db *gorm.DB) ApprovalRuleRepository {
	return &approvalRuleRepository{db: db}
}

func (r *approvalRuleRepository) Create(ctx context.Context, rule *model.ApprovalRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *approvalRuleRepository) GetByID(ctx context.Context, companyID, ruleID uuid.UUID) (*model.ApprovalRule, error) {
	var rule model.ApprovalRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ? AND company_id = ?", ruleID, companyID).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *approvalRuleRepository) FindActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	var rules []model.ApprovalRule
	err := GetDB(ctx, r.db).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *approvalRuleRepository) FindByName(ctx context.Context, companyID uuid.UUID, name string) (*model.ApprovalRule, error) {
	var rule model.ApprovalRule
	if err := GetDB(ctx, r.db).First(&rule, "company_id = ? AND name = ?", companyID, name).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *approvalRuleRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	var rules []model.ApprovalRule
	err := GetDB(ctx, r.db).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *approvalRuleRepository) Update(ctx context.Context, rule *model.ApprovalRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *approvalRuleRepository) Delete(ctx context.Context, companyID, ruleID uuid.UUID) error {
	result := GetDB(ctx, r.db).Where("id = ? AND company_id = ?", ruleID, companyID).Delete(&model.ApprovalRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
