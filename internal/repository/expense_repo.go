package repository

import (
	"context"
	"errors"

	"expensehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned by UpdateVersioned when the stored expense
// version no longer matches the version that was read. The caller lost the
// race and must reload before retrying.
var ErrVersionConflict = errors.New("expense was modified concurrently")

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	Status string
	Page   int
	Limit  int
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	// UpdateVersioned saves the expense with a compare-and-swap on Version,
	// bumping it on success. Returns ErrVersionConflict when another writer
	// got there first.
	UpdateVersioned(ctx context.Context, expense *model.Expense) error
	ListBySubmitter(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]model.Expense, int64, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, filter ExpenseFilter) ([]model.Expense, int64, error)
	ListPendingForApprover(ctx context.Context, approverID uuid.UUID, page, limit int) ([]model.Expense, int64, error)
	// ListUnassigned returns pending_approval expenses with no current
	// approver, the stuck ones remediation reassigns.
	ListUnassigned(ctx context.Context, companyID uuid.UUID) ([]model.Expense, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	err := GetDB(ctx, r.db).
		Preload("SubmittedBy").
		Preload("CurrentApprover").
		Preload("Company").
		First(&expense, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) UpdateVersioned(ctx context.Context, expense *model.Expense) error {
	readVersion := expense.Version
	expense.Version = readVersion + 1

	result := GetDB(ctx, r.db).
		Model(&model.Expense{}).
		Where("id = ? AND version = ?", expense.ID, readVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(expense)
	if result.Error != nil {
		expense.Version = readVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		expense.Version = readVersion
		return ErrVersionConflict
	}
	return nil
}

func (r *expenseRepository) ListBySubmitter(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]model.Expense, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.Expense{}).Where("submitted_by_id = ?", userID)
	return listExpenses(query, filter)
}

func (r *expenseRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, filter ExpenseFilter) ([]model.Expense, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.Expense{}).Where("company_id = ?", companyID)
	return listExpenses(query, filter)
}

func (r *expenseRepository) ListPendingForApprover(ctx context.Context, approverID uuid.UUID, page, limit int) ([]model.Expense, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.Expense{}).
		Where("current_approver_id = ? AND status = ?", approverID, model.ExpenseStatusPendingApproval)
	return listExpenses(query, ExpenseFilter{Page: page, Limit: limit})
}

func (r *expenseRepository) ListUnassigned(ctx context.Context, companyID uuid.UUID) ([]model.Expense, error) {
	var expenses []model.Expense
	err := GetDB(ctx, r.db).
		Where("company_id = ? AND status = ? AND current_approver_id IS NULL", companyID, model.ExpenseStatusPendingApproval).
		Order("created_at ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func listExpenses(query *gorm.DB, filter ExpenseFilter) ([]model.Expense, int64, error) {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	var expenses []model.Expense
	offset := (filter.Page - 1) * filter.Limit
	err := query.
		Preload("SubmittedBy").
		Preload("CurrentApprover").
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&expenses).Error
	if err != nil {
		return nil, 0, err
	}

	return expenses, total, nil
}
