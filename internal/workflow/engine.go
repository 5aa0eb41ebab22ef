package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Decision actions
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// DecisionPolicy authorizes an actor to decide on an expense. It returns nil
// to allow, or an error wrapping ErrUnauthorized.
type DecisionPolicy func(actor *model.User, expense *model.Expense) error

// PermissiveDecisionPolicy allows any manager or admin of the expense's
// company to decide, not only the current approver. This is the shipping
// default (cover-for-absence behavior).
func PermissiveDecisionPolicy(actor *model.User, expense *model.Expense) error {
	if !actor.CanDecide() || actor.CompanyID != expense.CompanyID {
		return fmt.Errorf("%w: role=%s, company match=%t",
			ErrUnauthorized, actor.Role, actor.CompanyID == expense.CompanyID)
	}
	return nil
}

// StrictDecisionPolicy additionally requires the actor to be the expense's
// current approver.
func StrictDecisionPolicy(actor *model.User, expense *model.Expense) error {
	if err := PermissiveDecisionPolicy(actor, expense); err != nil {
		return err
	}
	if expense.CurrentApproverID == nil || *expense.CurrentApproverID != actor.ID {
		return fmt.Errorf("%w: user is not the current approver", ErrUnauthorized)
	}
	return nil
}

// Option configures an Engine
type Option func(*Engine)

// WithDecisionPolicy replaces the default permissive authorization policy
func WithDecisionPolicy(policy DecisionPolicy) Option {
	return func(e *Engine) { e.policy = policy }
}

// WithTypedEvaluation makes the engine consult the evaluator strategy matching
// the applied rule's approval type (percentage/specific/hybrid) instead of
// treating every rule as sequential.
func WithTypedEvaluation() Option {
	return func(e *Engine) { e.typedEvaluation = true }
}

// Engine owns expense approval state: it records an approver's decision,
// advances the current approver, and computes the terminal status.
type Engine struct {
	expenses repository.ExpenseRepository
	users    repository.UserRepository
	rules    repository.ApprovalRuleRepository
	audits   repository.AuditRepository
	tx       repository.TransactionManager
	log      *zap.Logger

	policy          DecisionPolicy
	typedEvaluation bool
}

func NewEngine(
	expenses repository.ExpenseRepository,
	users repository.UserRepository,
	rules repository.ApprovalRuleRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	log *zap.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		expenses: expenses,
		users:    users,
		rules:    rules,
		audits:   audits,
		tx:       tx,
		log:      log,
		policy:   PermissiveDecisionPolicy,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Decide processes one approver's decision on an expense and returns the
// updated expense. A reject is terminal immediately; an approve either
// advances the current approver to the next pending step or finalizes the
// expense as approved. The write is guarded by a version compare-and-swap:
// a concurrent decision on the same expense surfaces as ErrConflict.
func (e *Engine) Decide(ctx context.Context, expenseID, actorID uuid.UUID, action, comments string) (*model.Expense, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, fmt.Errorf("%w: action must be approve or reject", ErrValidation)
	}

	expense, err := e.expenses.GetByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: expense %s", ErrNotFound, expenseID)
		}
		return nil, fmt.Errorf("failed to load expense: %w", err)
	}

	actor, err := e.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, actorID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := e.policy(actor, expense); err != nil {
		return nil, err
	}

	now := time.Now()
	stepStatus := model.StepStatusApproved
	if action == ActionReject {
		stepStatus = model.StepStatusRejected
	}

	step := expense.StepFor(actorID)
	switch {
	case step != nil:
		step.Status = stepStatus
		step.Comments = comments
		step.DecidedAt = &now
	case len(expense.ApprovalWorkflow) == 0:
		// No-rule-matched recovery: record the decision as a synthesized
		// single-step workflow.
		expense.ApprovalWorkflow = []model.WorkflowStep{{
			ApproverID: actorID,
			Status:     stepStatus,
			Comments:   comments,
			DecidedAt:  &now,
			Order:      1,
		}}
	default:
		return nil, ErrInvalidState
	}

	if action == ActionReject {
		expense.Status = model.ExpenseStatusRejected
		expense.RejectedAt = &now
		expense.RejectionReason = comments
	} else {
		e.advance(ctx, expense, actorID, now)
	}

	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := e.expenses.UpdateVersioned(txCtx, expense); saveErr != nil {
			return saveErr
		}
		return e.audits.Log(txCtx, e.auditEntry(expense, actor, action, comments))
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	e.log.Info("expense decision recorded",
		zap.String("expense_id", expense.ID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("action", action),
		zap.String("status", expense.Status))

	return expense, nil
}

// advance moves the workflow forward after an approval: either the expense
// finalizes or the first pending step, in list order, becomes current.
func (e *Engine) advance(ctx context.Context, expense *model.Expense, actorID uuid.UUID, now time.Time) {
	if e.finalized(ctx, expense) {
		expense.Status = model.ExpenseStatusApproved
		expense.ApprovedAt = &now
		expense.FinalApproverID = &actorID
		expense.CurrentApproverID = nil
		return
	}

	next := expense.PendingStep()
	approver := next.ApproverID
	expense.CurrentApproverID = &approver
}

// finalized reports whether the workflow has accumulated enough approvals.
// Default semantics are sequential exhaustion; with typed evaluation enabled
// the applied rule's approval type selects the strategy instead.
func (e *Engine) finalized(ctx context.Context, expense *model.Expense) bool {
	if expense.PendingStep() == nil {
		return true
	}
	if !e.typedEvaluation || expense.AppliedRuleID == nil {
		return false
	}

	rule, err := e.rules.GetByID(ctx, expense.CompanyID, *expense.AppliedRuleID)
	if err != nil {
		e.log.Warn("failed to load applied rule, falling back to sequential evaluation",
			zap.String("expense_id", expense.ID.String()),
			zap.Error(err))
		return false
	}

	return EvaluatorFor(rule.ApprovalType).Finalized(expense.ApprovalWorkflow, rule)
}

func (e *Engine) auditEntry(expense *model.Expense, actor *model.User, action, comments string) *model.AuditLog {
	auditAction := model.ActionApproveExpense
	if action == ActionReject {
		auditAction = model.ActionRejectExpense
	}

	details, _ := json.Marshal(map[string]interface{}{
		"action":   action,
		"comments": comments,
		"status":   expense.Status,
	})

	return &model.AuditLog{
		CompanyID:  &expense.CompanyID,
		UserID:     &actor.ID,
		Action:     auditAction,
		EntityID:   expense.ID.String(),
		EntityName: expense.Title,
		Details:    string(details),
	}
}
