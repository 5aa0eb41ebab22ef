package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type RuleApproverRequest struct {
	UserID     string `json:"user_id" binding:"required,uuid"`
	Order      int    `json:"order" binding:"required,min=1"`
	IsRequired bool   `json:"is_required"`
}

type RuleConditionsRequest struct {
	AmountThreshold decimal.Decimal `json:"amount_threshold"`
	Categories      []string        `json:"categories"`
	Departments     []string        `json:"departments"`
}

type CreateRuleRequest struct {
	Name              string                `json:"name" binding:"required"`
	Conditions        RuleConditionsRequest `json:"conditions"`
	Approvers         []RuleApproverRequest `json:"approvers" binding:"required,min=1,dive"`
	ApprovalType      string                `json:"approval_type" binding:"omitempty,oneof=sequential percentage specific hybrid"`
	PercentageRule    *model.PercentageRule `json:"percentage_rule"`
	SpecificApprovers []string              `json:"specific_approvers" binding:"omitempty,dive,uuid"`
}

type UpdateRuleRequest struct {
	Name              string                 `json:"name"`
	Conditions        *RuleConditionsRequest `json:"conditions"`
	Approvers         []RuleApproverRequest  `json:"approvers" binding:"omitempty,min=1,dive"`
	ApprovalType      string                 `json:"approval_type" binding:"omitempty,oneof=sequential percentage specific hybrid"`
	PercentageRule    *model.PercentageRule  `json:"percentage_rule"`
	SpecificApprovers []string               `json:"specific_approvers" binding:"omitempty,dive,uuid"`
	IsActive          *bool                  `json:"is_active"`
}

// --- Errors ---

var (
	ErrDefaultRuleExists  = errors.New("a default approval rule already exists for this company")
	ErrNoEligibleApprover = errors.New("no active managers or admins available to approve")
)

// --- Interface ---

// ApprovalRuleService manages the rule definitions the workflow resolver
// selects from at submission time.
type ApprovalRuleService interface {
	ListRules(ctx context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error)
	GetRule(ctx context.Context, companyID, ruleID uuid.UUID) (*model.ApprovalRule, error)
	CreateRule(ctx context.Context, companyID uuid.UUID, req CreateRuleRequest) (*model.ApprovalRule, error)
	UpdateRule(ctx context.Context, companyID, ruleID uuid.UUID, req UpdateRuleRequest) (*model.ApprovalRule, error)
	DeleteRule(ctx context.Context, companyID, ruleID uuid.UUID) error
	SetupDefaultRule(ctx context.Context, companyID uuid.UUID) (*model.ApprovalRule, error)
}

type approvalRuleService struct {
	rules repository.ApprovalRuleRepository
	users repository.UserRepository
	log   *zap.Logger
}

func NewApprovalRuleService(rules repository.ApprovalRuleRepository, users repository.UserRepository, log *zap.Logger) ApprovalRuleService {
	return &approvalRuleService{rules: rules, users: users, log: log}
}

// --- Implementation ---

func (s *approvalRuleService) ListRules(ctx context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	return s.rules.ListByCompany(ctx, companyID)
}

func (s *approvalRuleService) GetRule(ctx context.Context, companyID, ruleID uuid.UUID) (*model.ApprovalRule, error) {
	rule, err := s.rules.GetByID(ctx, companyID, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("approval rule not found")
		}
		return nil, err
	}
	return rule, nil
}

func (s *approvalRuleService) CreateRule(ctx context.Context, companyID uuid.UUID, req CreateRuleRequest) (*model.ApprovalRule, error) {
	approvalType := req.ApprovalType
	if approvalType == "" {
		approvalType = model.ApprovalTypeSequential
	}

	approvers, err := s.buildApprovers(ctx, companyID, req.Approvers)
	if err != nil {
		return nil, err
	}

	specific, err := parseUUIDs(req.SpecificApprovers)
	if err != nil {
		return nil, err
	}

	rule := &model.ApprovalRule{
		CompanyID: companyID,
		Name:      req.Name,
		Conditions: model.RuleConditions{
			AmountThreshold: req.Conditions.AmountThreshold,
			Categories:      req.Conditions.Categories,
			Departments:     req.Conditions.Departments,
		},
		Approvers:         approvers,
		ApprovalType:      approvalType,
		SpecificApprovers: specific,
		IsActive:          true,
	}
	if req.PercentageRule != nil {
		rule.PercentageRule = *req.PercentageRule
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create approval rule: %w", err)
	}
	return rule, nil
}

func (s *approvalRuleService) UpdateRule(ctx context.Context, companyID, ruleID uuid.UUID, req UpdateRuleRequest) (*model.ApprovalRule, error) {
	rule, err := s.rules.GetByID(ctx, companyID, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("approval rule not found")
		}
		return nil, err
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Conditions != nil {
		rule.Conditions = model.RuleConditions{
			AmountThreshold: req.Conditions.AmountThreshold,
			Categories:      req.Conditions.Categories,
			Departments:     req.Conditions.Departments,
		}
	}
	if len(req.Approvers) > 0 {
		approvers, buildErr := s.buildApprovers(ctx, companyID, req.Approvers)
		if buildErr != nil {
			return nil, buildErr
		}
		rule.Approvers = approvers
	}
	if req.ApprovalType != "" {
		rule.ApprovalType = req.ApprovalType
	}
	if req.PercentageRule != nil {
		rule.PercentageRule = *req.PercentageRule
	}
	if req.SpecificApprovers != nil {
		specific, parseErr := parseUUIDs(req.SpecificApprovers)
		if parseErr != nil {
			return nil, parseErr
		}
		rule.SpecificApprovers = specific
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update approval rule: %w", err)
	}
	return rule, nil
}

func (s *approvalRuleService) DeleteRule(ctx context.Context, companyID, ruleID uuid.UUID) error {
	if err := s.rules.Delete(ctx, companyID, ruleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("approval rule not found")
		}
		return err
	}
	return nil
}

// SetupDefaultRule creates the catch-all zero-threshold rule routing every
// expense through the company's active managers and admins in sequence.
// One per company; the reserved name enforces the uniqueness.
func (s *approvalRuleService) SetupDefaultRule(ctx context.Context, companyID uuid.UUID) (*model.ApprovalRule, error) {
	if _, err := s.rules.FindByName(ctx, companyID, model.DefaultRuleName); err == nil {
		return nil, ErrDefaultRuleExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	approverUsers, err := s.users.FindActiveApproversByRole(ctx, companyID, []string{model.RoleAdmin, model.RoleManager})
	if err != nil {
		return nil, err
	}
	if len(approverUsers) == 0 {
		return nil, ErrNoEligibleApprover
	}

	approvers := make([]model.RuleApprover, 0, len(approverUsers))
	for i, u := range approverUsers {
		approvers = append(approvers, model.RuleApprover{
			UserID:     u.ID,
			Order:      i + 1,
			IsRequired: true,
		})
	}

	rule := &model.ApprovalRule{
		CompanyID: companyID,
		Name:      model.DefaultRuleName,
		Conditions: model.RuleConditions{
			AmountThreshold: decimal.Zero,
			Categories:      model.ExpenseCategories,
		},
		Approvers:    approvers,
		ApprovalType: model.ApprovalTypeSequential,
		IsActive:     true,
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create default rule: %w", err)
	}

	s.log.Info("default approval rule created",
		zap.String("company_id", companyID.String()),
		zap.Int("approvers", len(approvers)))
	return rule, nil
}

// buildApprovers validates each referenced approver is an active same-company
// manager or admin, and normalizes the list into ascending order.
func (s *approvalRuleService) buildApprovers(ctx context.Context, companyID uuid.UUID, reqs []RuleApproverRequest) ([]model.RuleApprover, error) {
	seen := make(map[int]bool, len(reqs))
	approvers := make([]model.RuleApprover, 0, len(reqs))
	for _, a := range reqs {
		if seen[a.Order] {
			return nil, fmt.Errorf("duplicate approver order %d", a.Order)
		}
		seen[a.Order] = true

		userID, err := uuid.Parse(a.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid approver id: %w", err)
		}
		user, err := s.users.GetCompanyUser(ctx, companyID, userID)
		if err != nil {
			return nil, fmt.Errorf("approver %s not found in company", a.UserID)
		}
		if !user.CanDecide() || !user.IsActive {
			return nil, fmt.Errorf("approver %s must be an active manager or admin", user.Email)
		}

		approvers = append(approvers, model.RuleApprover{
			UserID:     userID,
			Order:      a.Order,
			IsRequired: a.IsRequired,
		})
	}
	sort.Slice(approvers, func(i, j int) bool { return approvers[i].Order < approvers[j].Order })
	return approvers, nil
}

func parseUUIDs(ids []string) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid approver id: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}
