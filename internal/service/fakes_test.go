package service

import (
	"context"
	"sort"
	"strings"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetCompanyUser(_ context.Context, companyID, userID uuid.UUID) (*model.User, error) {
	if u, ok := f.users[userID]; ok && u.CompanyID == companyID {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) ListByCompany(_ context.Context, companyID uuid.UUID, filter repository.UserFilter) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range f.users {
		if u.CompanyID != companyID {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) FindActiveApproversByRole(_ context.Context, companyID uuid.UUID, roles []string) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		if u.CompanyID != companyID || !u.IsActive {
			continue
		}
		for _, role := range roles {
			if u.Role == role {
				out = append(out, *u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return strings.Compare(out[i].Role, out[j].Role) < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

type fakeRuleRepo struct {
	rules map[uuid.UUID]*model.ApprovalRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*model.ApprovalRule)}
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *model.ApprovalRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, companyID, ruleID uuid.UUID) (*model.ApprovalRule, error) {
	if r, ok := f.rules[ruleID]; ok && r.CompanyID == companyID {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRuleRepo) FindActiveByCompany(_ context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	var out []model.ApprovalRule
	for _, r := range f.rules {
		if r.CompanyID == companyID && r.IsActive {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) FindByName(_ context.Context, companyID uuid.UUID, name string) (*model.ApprovalRule, error) {
	for _, r := range f.rules {
		if r.CompanyID == companyID && r.Name == name {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRuleRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	var out []model.ApprovalRule
	for _, r := range f.rules {
		if r.CompanyID == companyID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *model.ApprovalRule) error {
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeRuleRepo) Delete(_ context.Context, companyID, ruleID uuid.UUID) error {
	if r, ok := f.rules[ruleID]; ok && r.CompanyID == companyID {
		delete(f.rules, ruleID)
		return nil
	}
	return gorm.ErrRecordNotFound
}

type fakeExpenseRepo struct {
	expenses map[uuid.UUID]*model.Expense
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[uuid.UUID]*model.Expense)}
}

func (f *fakeExpenseRepo) clone(e *model.Expense) *model.Expense {
	cp := *e
	cp.ApprovalWorkflow = append([]model.WorkflowStep(nil), e.ApprovalWorkflow...)
	return &cp
}

func (f *fakeExpenseRepo) Create(_ context.Context, expense *model.Expense) error {
	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}
	f.expenses[expense.ID] = f.clone(expense)
	return nil
}

func (f *fakeExpenseRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	if e, ok := f.expenses[id]; ok {
		return f.clone(e), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExpenseRepo) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeExpenseRepo) UpdateVersioned(_ context.Context, expense *model.Expense) error {
	stored, ok := f.expenses[expense.ID]
	if !ok || stored.Version != expense.Version {
		return repository.ErrVersionConflict
	}
	expense.Version++
	f.expenses[expense.ID] = f.clone(expense)
	return nil
}

func (f *fakeExpenseRepo) ListBySubmitter(_ context.Context, userID uuid.UUID, filter repository.ExpenseFilter) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, e := range f.expenses {
		if e.SubmittedByID == userID && (filter.Status == "" || e.Status == filter.Status) {
			out = append(out, *f.clone(e))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExpenseRepo) ListByCompany(_ context.Context, companyID uuid.UUID, filter repository.ExpenseFilter) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, e := range f.expenses {
		if e.CompanyID == companyID && (filter.Status == "" || e.Status == filter.Status) {
			out = append(out, *f.clone(e))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExpenseRepo) ListPendingForApprover(_ context.Context, approverID uuid.UUID, _, _ int) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, e := range f.expenses {
		if e.Status == model.ExpenseStatusPendingApproval && e.CurrentApproverID != nil && *e.CurrentApproverID == approverID {
			out = append(out, *f.clone(e))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExpenseRepo) ListUnassigned(_ context.Context, companyID uuid.UUID) ([]model.Expense, error) {
	var out []model.Expense
	for _, e := range f.expenses {
		if e.CompanyID == companyID && e.Status == model.ExpenseStatusPendingApproval && e.CurrentApproverID == nil {
			out = append(out, *f.clone(e))
		}
	}
	return out, nil
}

type fakeCompanyRepo struct {
	companies map[uuid.UUID]*model.Company
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{companies: make(map[uuid.UUID]*model.Company)}
}

func (f *fakeCompanyRepo) Create(_ context.Context, company *model.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	f.companies[company.ID] = company
	return nil
}

func (f *fakeCompanyRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Company, error) {
	if c, ok := f.companies[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCompanyRepo) GetByIDWithAdmin(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeCompanyRepo) Update(_ context.Context, company *model.Company) error {
	f.companies[company.ID] = company
	return nil
}

type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByCompany(_ context.Context, companyID uuid.UUID, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range f.entries {
		if e.CompanyID != nil && *e.CompanyID == companyID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
