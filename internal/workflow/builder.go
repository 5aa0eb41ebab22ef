package workflow

import (
	"context"
	"fmt"
	"sort"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"go.uber.org/zap"
)

// fallbackApproverRoles are queried, admins first, when no rule matches
var fallbackApproverRoles = []string{model.RoleAdmin, model.RoleManager}

// Builder expands a resolved rule (or the no-rule fallback) into the ordered
// step list persisted on the expense.
type Builder struct {
	expenses repository.ExpenseRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewBuilder(expenses repository.ExpenseRepository, users repository.UserRepository, log *zap.Logger) *Builder {
	return &Builder{expenses: expenses, users: users, log: log}
}

// Build materializes the approval workflow on the expense and persists it.
// Building is best effort relative to submission: on persistence failure the
// expense is forced into pending_approval without a workflow and the returned
// error wraps ErrWorkflowSetup, but the caller must not roll back the
// submission itself.
func (b *Builder) Build(ctx context.Context, expense *model.Expense, rule *model.ApprovalRule) error {
	if rule != nil {
		b.applyRule(expense, rule)
	} else if err := b.applyFallback(ctx, expense); err != nil {
		return b.recover(ctx, expense, err)
	}

	if err := b.expenses.UpdateVersioned(ctx, expense); err != nil {
		return b.recover(ctx, expense, err)
	}

	b.log.Info("approval workflow built",
		zap.String("expense_id", expense.ID.String()),
		zap.Int("steps", len(expense.ApprovalWorkflow)),
		zap.String("status", expense.Status))
	return nil
}

// applyRule creates one pending step per rule approver in ascending order and
// gates the expense on the first. Status is left as the caller set it.
func (b *Builder) applyRule(expense *model.Expense, rule *model.ApprovalRule) {
	approvers := make([]model.RuleApprover, len(rule.Approvers))
	copy(approvers, rule.Approvers)
	sort.SliceStable(approvers, func(i, j int) bool { return approvers[i].Order < approvers[j].Order })

	steps := make([]model.WorkflowStep, 0, len(approvers))
	for _, approver := range approvers {
		steps = append(steps, model.WorkflowStep{
			ApproverID: approver.UserID,
			Status:     model.StepStatusPending,
			Order:      approver.Order,
		})
	}

	expense.ApprovalWorkflow = steps
	expense.AppliedRuleID = &rule.ID
	if len(steps) > 0 {
		first := steps[0].ApproverID
		expense.CurrentApproverID = &first
	}
}

// applyFallback assigns the company's active managers and admins (admins
// first) as sequential approvers. With none available, the expense still
// moves to pending_approval with an empty workflow: it stays stuck until a
// remediation action assigns an approver.
func (b *Builder) applyFallback(ctx context.Context, expense *model.Expense) error {
	approvers, err := b.users.FindActiveApproversByRole(ctx, expense.CompanyID, fallbackApproverRoles)
	if err != nil {
		return fmt.Errorf("failed to load fallback approvers: %w", err)
	}

	expense.Status = model.ExpenseStatusPendingApproval

	if len(approvers) == 0 {
		b.log.Warn("no managers or admins available, expense left unassigned",
			zap.String("expense_id", expense.ID.String()),
			zap.String("company_id", expense.CompanyID.String()))
		expense.ApprovalWorkflow = nil
		expense.CurrentApproverID = nil
		return nil
	}

	steps := make([]model.WorkflowStep, 0, len(approvers))
	for i, approver := range approvers {
		steps = append(steps, model.WorkflowStep{
			ApproverID: approver.ID,
			Status:     model.StepStatusPending,
			Order:      i + 1,
		})
	}

	expense.ApprovalWorkflow = steps
	first := steps[0].ApproverID
	expense.CurrentApproverID = &first
	return nil
}

// recover forces the expense into pending_approval after a build failure so
// it is never left in an inconsistent intermediate state.
func (b *Builder) recover(ctx context.Context, expense *model.Expense, cause error) error {
	b.log.Error("workflow setup failed, forcing pending_approval",
		zap.String("expense_id", expense.ID.String()),
		zap.Error(cause))

	expense.Status = model.ExpenseStatusPendingApproval
	if err := b.expenses.UpdateVersioned(ctx, expense); err != nil {
		b.log.Error("failed to save expense after workflow setup failure",
			zap.String("expense_id", expense.ID.String()),
			zap.Error(err))
	}

	return fmt.Errorf("%w: %v", ErrWorkflowSetup, cause)
}
