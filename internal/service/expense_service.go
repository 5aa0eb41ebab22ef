package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expensehub/internal/model"
	"expensehub/internal/repository"
	"expensehub/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type SubmitExpenseRequest struct {
	Title       string          `json:"title" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date" binding:"required"`
}

type DecideExpenseRequest struct {
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

type ExpenseListFilter struct {
	Status string
	Page   int
	Limit  int
}

// FixUnassignedResult reports the remediation outcome per stuck expense
type FixUnassignedResult struct {
	Total    int         `json:"total"`
	Assigned int         `json:"assigned"`
	Skipped  int         `json:"skipped"`
	Expenses []uuid.UUID `json:"expenses"`
}

// --- Interface ---

// ExpenseService owns the submission lifecycle: create, route through the
// workflow engine, list, and the post-approval payout marking.
type ExpenseService interface {
	Submit(ctx context.Context, submitterID uuid.UUID, req SubmitExpenseRequest) (*model.Expense, error)
	GetExpense(ctx context.Context, companyID, expenseID uuid.UUID) (*model.Expense, error)
	MyExpenses(ctx context.Context, userID uuid.UUID, filter ExpenseListFilter) ([]model.Expense, int64, error)
	PendingApprovals(ctx context.Context, approverID uuid.UUID, page, limit int) ([]model.Expense, int64, error)
	CompanyExpenses(ctx context.Context, companyID uuid.UUID, filter ExpenseListFilter) ([]model.Expense, int64, error)
	Decide(ctx context.Context, expenseID, actorID uuid.UUID, req DecideExpenseRequest) (*model.Expense, error)
	MarkPaid(ctx context.Context, companyID, expenseID, actorID uuid.UUID) (*model.Expense, error)
	FixUnassigned(ctx context.Context, companyID, actorID uuid.UUID) (*FixUnassignedResult, error)
}

type expenseService struct {
	expenses  repository.ExpenseRepository
	users     repository.UserRepository
	companies repository.CompanyRepository
	audits    repository.AuditRepository
	txManager repository.TransactionManager
	resolver  *workflow.Resolver
	builder   *workflow.Builder
	engine    *workflow.Engine
	converter CurrencyConverter
	log       *zap.Logger
}

func NewExpenseService(
	expenses repository.ExpenseRepository,
	users repository.UserRepository,
	companies repository.CompanyRepository,
	audits repository.AuditRepository,
	txManager repository.TransactionManager,
	resolver *workflow.Resolver,
	builder *workflow.Builder,
	engine *workflow.Engine,
	converter CurrencyConverter,
	log *zap.Logger,
) ExpenseService {
	return &expenseService{
		expenses:  expenses,
		users:     users,
		companies: companies,
		audits:    audits,
		txManager: txManager,
		resolver:  resolver,
		builder:   builder,
		engine:    engine,
		converter: converter,
		log:       log,
	}
}

// --- Implementation ---

// Submit creates the expense and routes it into approval. Workflow setup is
// best effort: the submission itself never fails because routing did. The
// expense is promoted to pending_approval before the workflow is built so a
// rule-matched expense carries that status even though the builder leaves
// status untouched on the rule branch.
func (s *expenseService) Submit(ctx context.Context, submitterID uuid.UUID, req SubmitExpenseRequest) (*model.Expense, error) {
	if !model.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: invalid category %q", workflow.ErrValidation, req.Category)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", workflow.ErrValidation)
	}

	submitter, err := s.users.GetByID(ctx, submitterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", workflow.ErrNotFound, submitterID)
		}
		return nil, err
	}

	company, err := s.companies.GetByID(ctx, submitter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = company.Currency
	}

	rate, err := s.converter.Rate(ctx, currency, company.Currency)
	if err != nil {
		s.log.Warn("currency conversion unavailable, storing at 1:1",
			zap.String("from", currency),
			zap.String("to", company.Currency),
			zap.Error(err))
		rate = decimal.NewFromInt(1)
	}
	converted := req.Amount.Mul(rate)

	expense := &model.Expense{
		Title:             req.Title,
		Amount:            converted,
		OriginalAmount:    req.Amount,
		OriginalCurrency:  currency,
		ConvertedAmount:   converted,
		ConvertedCurrency: company.Currency,
		ExchangeRate:      rate,
		Description:       req.Description,
		Category:          req.Category,
		Date:              req.Date,
		SubmittedByID:     submitter.ID,
		CompanyID:         submitter.CompanyID,
		Status:            model.ExpenseStatusSubmitted,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.expenses.Create(txCtx, expense); createErr != nil {
			return createErr
		}
		return s.audits.Log(txCtx, s.auditEntry(expense, submitter.ID, model.ActionSubmitExpense, map[string]interface{}{
			"amount":   expense.ConvertedAmount.String(),
			"currency": expense.ConvertedCurrency,
			"category": expense.Category,
		}))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	expense.Status = model.ExpenseStatusPendingApproval

	rule, err := s.resolver.Resolve(ctx, expense.CompanyID, expense.ConvertedAmount)
	if err != nil {
		s.log.Error("rule resolution failed, building fallback workflow",
			zap.String("expense_id", expense.ID.String()),
			zap.Error(err))
		rule = nil
	}

	if buildErr := s.builder.Build(ctx, expense, rule); buildErr != nil {
		// Submission succeeded; the expense sits in pending_approval until
		// the unassigned remediation picks it up.
		s.log.Error("workflow build failed after submission",
			zap.String("expense_id", expense.ID.String()),
			zap.Error(buildErr))
	}

	return expense, nil
}

func (s *expenseService) GetExpense(ctx context.Context, companyID, expenseID uuid.UUID) (*model.Expense, error) {
	expense, err := s.expenses.GetByIDWithRelations(ctx, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: expense %s", workflow.ErrNotFound, expenseID)
		}
		return nil, err
	}
	if expense.CompanyID != companyID {
		return nil, fmt.Errorf("%w: expense %s", workflow.ErrNotFound, expenseID)
	}
	return expense, nil
}

func (s *expenseService) MyExpenses(ctx context.Context, userID uuid.UUID, filter ExpenseListFilter) ([]model.Expense, int64, error) {
	return s.expenses.ListBySubmitter(ctx, userID, repository.ExpenseFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
}

func (s *expenseService) PendingApprovals(ctx context.Context, approverID uuid.UUID, page, limit int) ([]model.Expense, int64, error) {
	return s.expenses.ListPendingForApprover(ctx, approverID, page, limit)
}

func (s *expenseService) CompanyExpenses(ctx context.Context, companyID uuid.UUID, filter ExpenseListFilter) ([]model.Expense, int64, error) {
	return s.expenses.ListByCompany(ctx, companyID, repository.ExpenseFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
}

// Decide delegates the state transition to the workflow engine
func (s *expenseService) Decide(ctx context.Context, expenseID, actorID uuid.UUID, req DecideExpenseRequest) (*model.Expense, error) {
	return s.engine.Decide(ctx, expenseID, actorID, req.Action, req.Comments)
}

// MarkPaid moves an approved expense to paid. Only approved expenses qualify.
func (s *expenseService) MarkPaid(ctx context.Context, companyID, expenseID, actorID uuid.UUID) (*model.Expense, error) {
	expense, err := s.GetExpense(ctx, companyID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.Status != model.ExpenseStatusApproved {
		return nil, fmt.Errorf("%w: only approved expenses can be marked paid", workflow.ErrInvalidState)
	}

	expense.Status = model.ExpenseStatusPaid
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.expenses.UpdateVersioned(txCtx, expense); saveErr != nil {
			return saveErr
		}
		return s.audits.Log(txCtx, s.auditEntry(expense, actorID, model.ActionMarkExpensePaid, map[string]interface{}{
			"amount": expense.ConvertedAmount.String(),
		}))
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: %v", workflow.ErrConflict, err)
		}
		return nil, err
	}
	return expense, nil
}

// FixUnassigned re-runs workflow assignment for pending_approval expenses that
// have no current approver (the ones left stuck when submission found no
// eligible approvers). Expenses whose company still has no managers or admins
// stay stuck and are counted as skipped.
func (s *expenseService) FixUnassigned(ctx context.Context, companyID, actorID uuid.UUID) (*FixUnassignedResult, error) {
	stuck, err := s.expenses.ListUnassigned(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unassigned expenses: %w", err)
	}

	result := &FixUnassignedResult{Total: len(stuck)}
	for i := range stuck {
		expense := &stuck[i]
		if buildErr := s.builder.Build(ctx, expense, nil); buildErr != nil {
			result.Skipped++
			continue
		}
		if expense.CurrentApproverID == nil {
			result.Skipped++
			continue
		}
		result.Assigned++
		result.Expenses = append(result.Expenses, expense.ID)
	}

	if result.Assigned > 0 {
		entry := &model.AuditLog{
			CompanyID: &companyID,
			UserID:    &actorID,
			Action:    model.ActionAssignUnassigned,
			Details:   fmt.Sprintf(`{"total":%d,"assigned":%d,"skipped":%d}`, result.Total, result.Assigned, result.Skipped),
		}
		if logErr := s.audits.Log(ctx, entry); logErr != nil {
			s.log.Warn("failed to write remediation audit entry", zap.Error(logErr))
		}
	}

	s.log.Info("unassigned expense remediation completed",
		zap.String("company_id", companyID.String()),
		zap.Int("total", result.Total),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *expenseService) auditEntry(expense *model.Expense, actorID uuid.UUID, action string, payload map[string]interface{}) *model.AuditLog {
	details, _ := json.Marshal(payload)
	return &model.AuditLog{
		CompanyID:  &expense.CompanyID,
		UserID:     &actorID,
		Action:     action,
		EntityID:   expense.ID.String(),
		EntityName: expense.Title,
		Details:    string(details),
	}
}
