package workflow

import (
	"context"
	"errors"
	"sort"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory stands-ins for the gorm repositories, mirroring their semantics
// closely enough for the state machine: record-not-found, version CAS, and
// the admins-first approver ordering.

type fakeRuleRepo struct {
	rules []model.ApprovalRule
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *model.ApprovalRule) error {
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, companyID, ruleID uuid.UUID) (*model.ApprovalRule, error) {
	for i := range f.rules {
		if f.rules[i].ID == ruleID && f.rules[i].CompanyID == companyID {
			rule := f.rules[i]
			return &rule, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRuleRepo) FindActiveByCompany(_ context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	var out []model.ApprovalRule
	for _, rule := range f.rules {
		if rule.CompanyID == companyID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) FindByName(_ context.Context, companyID uuid.UUID, name string) (*model.ApprovalRule, error) {
	for i := range f.rules {
		if f.rules[i].CompanyID == companyID && f.rules[i].Name == name {
			rule := f.rules[i]
			return &rule, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRuleRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]model.ApprovalRule, error) {
	var out []model.ApprovalRule
	for _, rule := range f.rules {
		if rule.CompanyID == companyID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *model.ApprovalRule) error {
	for i := range f.rules {
		if f.rules[i].ID == rule.ID {
			f.rules[i] = *rule
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRuleRepo) Delete(_ context.Context, companyID, ruleID uuid.UUID) error {
	for i := range f.rules {
		if f.rules[i].ID == ruleID && f.rules[i].CompanyID == companyID {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeUserRepo struct {
	users []model.User
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.users = append(f.users, *user)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			user := f.users[i]
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for i := range f.users {
		if f.users[i].Email == email {
			user := f.users[i]
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetCompanyUser(_ context.Context, companyID, userID uuid.UUID) (*model.User, error) {
	for i := range f.users {
		if f.users[i].ID == userID && f.users[i].CompanyID == companyID {
			user := f.users[i]
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) ListByCompany(_ context.Context, companyID uuid.UUID, filter repository.UserFilter) ([]model.User, int64, error) {
	var out []model.User
	for _, user := range f.users {
		if user.CompanyID == companyID {
			out = append(out, user)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) FindActiveApproversByRole(_ context.Context, companyID uuid.UUID, roles []string) ([]model.User, error) {
	roleSet := make(map[string]bool)
	for _, role := range roles {
		roleSet[role] = true
	}

	var out []model.User
	for _, user := range f.users {
		if user.CompanyID == companyID && user.IsActive && roleSet[user.Role] {
			out = append(out, user)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role // "admin" sorts before "manager"
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	for i := range f.users {
		if f.users[i].ID == user.ID {
			f.users[i] = *user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeExpenseRepo struct {
	expenses     map[uuid.UUID]*model.Expense
	failSave     bool
	saveErr      error
	conflictNext bool
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[uuid.UUID]*model.Expense)}
}

func (f *fakeExpenseRepo) put(expense *model.Expense) {
	clone := *expense
	f.expenses[expense.ID] = &clone
}

func (f *fakeExpenseRepo) Create(_ context.Context, expense *model.Expense) error {
	f.put(expense)
	return nil
}

func (f *fakeExpenseRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	stored, ok := f.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *stored
	clone.ApprovalWorkflow = append([]model.WorkflowStep(nil), stored.ApprovalWorkflow...)
	return &clone, nil
}

func (f *fakeExpenseRepo) GetByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeExpenseRepo) UpdateVersioned(_ context.Context, expense *model.Expense) error {
	if f.conflictNext {
		f.conflictNext = false
		return repository.ErrVersionConflict
	}
	if f.failSave {
		if f.saveErr != nil {
			return f.saveErr
		}
		return errors.New("save failed")
	}
	stored, ok := f.expenses[expense.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != expense.Version {
		return repository.ErrVersionConflict
	}
	expense.Version++
	f.put(expense)
	return nil
}

func (f *fakeExpenseRepo) ListBySubmitter(_ context.Context, userID uuid.UUID, _ repository.ExpenseFilter) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, expense := range f.expenses {
		if expense.SubmittedByID == userID {
			out = append(out, *expense)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExpenseRepo) ListByCompany(_ context.Context, companyID uuid.UUID, _ repository.ExpenseFilter) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, expense := range f.expenses {
		if expense.CompanyID == companyID {
			out = append(out, *expense)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExpenseRepo) ListPendingForApprover(_ context.Context, approverID uuid.UUID, _, _ int) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, expense := range f.expenses {
		if expense.CurrentApproverID != nil && *expense.CurrentApproverID == approverID &&
			expense.Status == model.ExpenseStatusPendingApproval {
			out = append(out, *expense)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExpenseRepo) ListUnassigned(_ context.Context, companyID uuid.UUID) ([]model.Expense, error) {
	var out []model.Expense
	for _, expense := range f.expenses {
		if expense.CompanyID == companyID && expense.Status == model.ExpenseStatusPendingApproval &&
			expense.CurrentApproverID == nil {
			out = append(out, *expense)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByCompany(_ context.Context, companyID uuid.UUID, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, entry := range f.entries {
		if entry.CompanyID != nil && *entry.CompanyID == companyID {
			out = append(out, entry)
		}
	}
	return out, int64(len(out)), nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
