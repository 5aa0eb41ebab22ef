package workflow

import (
	"context"
	"testing"
	"time"

	"expensehub/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type engineHarness struct {
	engine   *Engine
	expenses *fakeExpenseRepo
	users    *fakeUserRepo
	rules    *fakeRuleRepo
	audits   *fakeAuditRepo
}

func newEngineHarness(opts ...Option) *engineHarness {
	expenses := newFakeExpenseRepo()
	users := &fakeUserRepo{}
	rules := &fakeRuleRepo{}
	audits := &fakeAuditRepo{}
	return &engineHarness{
		engine:   NewEngine(expenses, users, rules, audits, fakeTxManager{}, zap.NewNop(), opts...),
		expenses: expenses,
		users:    users,
		rules:    rules,
		audits:   audits,
	}
}

// seedTwoStep stores an expense gated on admin then manager, mirroring a
// threshold-zero rule with two sequential approvers.
func (h *engineHarness) seedTwoStep(t *testing.T) (expense *model.Expense, admin, manager model.User) {
	t.Helper()
	companyID := uuid.New()
	admin = newTestUser(companyID, model.RoleAdmin, true, time.Now())
	manager = newTestUser(companyID, model.RoleManager, true, time.Now())
	h.users.users = append(h.users.users, admin, manager)

	expense = newTestExpense(companyID, uuid.New(), 50)
	expense.Status = model.ExpenseStatusPendingApproval
	expense.ApprovalWorkflow = []model.WorkflowStep{
		{ApproverID: admin.ID, Status: model.StepStatusPending, Order: 1},
		{ApproverID: manager.ID, Status: model.StepStatusPending, Order: 2},
	}
	first := admin.ID
	expense.CurrentApproverID = &first
	h.expenses.put(expense)
	return expense, admin, manager
}

func TestDecideSequentialApproval(t *testing.T) {
	h := newEngineHarness()
	expense, admin, manager := h.seedTwoStep(t)

	// First approval advances the current approver without finalizing.
	updated, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.ExpenseStatusPendingApproval, updated.Status)
	require.NotNil(t, updated.CurrentApproverID)
	assert.Equal(t, manager.ID, *updated.CurrentApproverID)
	assert.Equal(t, model.StepStatusApproved, updated.ApprovalWorkflow[0].Status)
	assert.Equal(t, "ok", updated.ApprovalWorkflow[0].Comments)
	require.NotNil(t, updated.ApprovalWorkflow[0].DecidedAt)
	assert.Nil(t, updated.ApprovedAt)

	// Final approval finalizes.
	updated, err = h.engine.Decide(context.Background(), expense.ID, manager.ID, ActionApprove, "looks good")
	require.NoError(t, err)
	assert.Equal(t, model.ExpenseStatusApproved, updated.Status)
	require.NotNil(t, updated.FinalApproverID)
	assert.Equal(t, manager.ID, *updated.FinalApproverID)
	assert.Nil(t, updated.CurrentApproverID)
	require.NotNil(t, updated.ApprovedAt)

	assert.Len(t, h.audits.entries, 2)
	assert.Equal(t, model.ActionApproveExpense, h.audits.entries[0].Action)
}

func TestDecideRejectShortCircuits(t *testing.T) {
	h := newEngineHarness()
	expense, admin, _ := h.seedTwoStep(t)

	updated, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionReject, "missing receipt")
	require.NoError(t, err)

	assert.Equal(t, model.ExpenseStatusRejected, updated.Status)
	require.NotNil(t, updated.RejectedAt)
	assert.Equal(t, "missing receipt", updated.RejectionReason)
	assert.Equal(t, model.StepStatusRejected, updated.ApprovalWorkflow[0].Status)
	// The later step stays untouched.
	assert.Equal(t, model.StepStatusPending, updated.ApprovalWorkflow[1].Status)
	assert.Equal(t, model.ActionRejectExpense, h.audits.entries[0].Action)
}

func TestDecideSynthesizesWorkflowWhenEmpty(t *testing.T) {
	h := newEngineHarness()
	companyID := uuid.New()
	admin := newTestUser(companyID, model.RoleAdmin, true, time.Now())
	h.users.users = append(h.users.users, admin)

	// Stuck expense: no rule matched and no approvers existed at submission.
	expense := newTestExpense(companyID, uuid.New(), 50)
	expense.Status = model.ExpenseStatusPendingApproval
	h.expenses.put(expense)

	updated, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionApprove, "")
	require.NoError(t, err)

	require.Len(t, updated.ApprovalWorkflow, 1)
	assert.Equal(t, admin.ID, updated.ApprovalWorkflow[0].ApproverID)
	assert.Equal(t, 1, updated.ApprovalWorkflow[0].Order)
	assert.Equal(t, model.StepStatusApproved, updated.ApprovalWorkflow[0].Status)
	assert.Equal(t, model.ExpenseStatusApproved, updated.Status)
	require.NotNil(t, updated.FinalApproverID)
	assert.Equal(t, admin.ID, *updated.FinalApproverID)
}

func TestDecideSecondDecisionIsInvalidState(t *testing.T) {
	h := newEngineHarness()
	expense, admin, _ := h.seedTwoStep(t)

	_, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionApprove, "")
	require.NoError(t, err)

	// Same actor again: their step is already resolved and the workflow is
	// non-empty, so the decision must not double-count.
	_, err = h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionApprove, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDecideActorWithoutStepInNonEmptyWorkflow(t *testing.T) {
	h := newEngineHarness()
	expense, _, _ := h.seedTwoStep(t)

	outsider := newTestUser(expense.CompanyID, model.RoleManager, true, time.Now())
	h.users.users = append(h.users.users, outsider)

	_, err := h.engine.Decide(context.Background(), expense.ID, outsider.ID, ActionApprove, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDecideRoundTripNSteps(t *testing.T) {
	h := newEngineHarness()
	companyID := uuid.New()

	const n = 4
	approvers := make([]model.User, 0, n)
	steps := make([]model.WorkflowStep, 0, n)
	for i := 0; i < n; i++ {
		user := newTestUser(companyID, model.RoleManager, true, time.Now())
		approvers = append(approvers, user)
		steps = append(steps, model.WorkflowStep{ApproverID: user.ID, Status: model.StepStatusPending, Order: i + 1})
	}
	h.users.users = append(h.users.users, approvers...)

	expense := newTestExpense(companyID, uuid.New(), 50)
	expense.Status = model.ExpenseStatusPendingApproval
	expense.ApprovalWorkflow = steps
	first := approvers[0].ID
	expense.CurrentApproverID = &first
	h.expenses.put(expense)

	for i, approver := range approvers {
		updated, err := h.engine.Decide(context.Background(), expense.ID, approver.ID, ActionApprove, "")
		require.NoError(t, err)
		if i < n-1 {
			assert.Equal(t, model.ExpenseStatusPendingApproval, updated.Status, "step %d must not finalize", i+1)
			require.NotNil(t, updated.CurrentApproverID)
			assert.Equal(t, approvers[i+1].ID, *updated.CurrentApproverID)
		} else {
			assert.Equal(t, model.ExpenseStatusApproved, updated.Status)
		}
	}
}

func TestDecideAuthorization(t *testing.T) {
	h := newEngineHarness()
	expense, _, _ := h.seedTwoStep(t)

	employee := newTestUser(expense.CompanyID, model.RoleEmployee, true, time.Now())
	foreignManager := newTestUser(uuid.New(), model.RoleManager, true, time.Now())
	h.users.users = append(h.users.users, employee, foreignManager)

	t.Run("employee cannot decide", func(t *testing.T) {
		_, err := h.engine.Decide(context.Background(), expense.ID, employee.ID, ActionApprove, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("manager of another company cannot decide", func(t *testing.T) {
		_, err := h.engine.Decide(context.Background(), expense.ID, foreignManager.ID, ActionApprove, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestDecideStrictPolicy(t *testing.T) {
	h := newEngineHarness(WithDecisionPolicy(StrictDecisionPolicy))
	expense, admin, manager := h.seedTwoStep(t)

	// Manager holds a step but is not the current approver.
	_, err := h.engine.Decide(context.Background(), expense.ID, manager.ID, ActionApprove, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The current approver passes.
	updated, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, manager.ID, *updated.CurrentApproverID)
}

func TestDecideNotFound(t *testing.T) {
	h := newEngineHarness()
	_, admin, _ := h.seedTwoStep(t)

	t.Run("unknown expense", func(t *testing.T) {
		_, err := h.engine.Decide(context.Background(), uuid.New(), admin.ID, ActionApprove, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown actor", func(t *testing.T) {
		expense, _, _ := h.seedTwoStep(t)
		_, err := h.engine.Decide(context.Background(), expense.ID, uuid.New(), ActionApprove, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDecideInvalidAction(t *testing.T) {
	h := newEngineHarness()
	expense, admin, _ := h.seedTwoStep(t)

	_, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, "defer", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecideVersionConflict(t *testing.T) {
	h := newEngineHarness()
	expense, admin, _ := h.seedTwoStep(t)

	h.expenses.conflictNext = true
	_, err := h.engine.Decide(context.Background(), expense.ID, admin.ID, ActionApprove, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	// The loser's write must not have landed.
	stored, getErr := h.expenses.GetByID(context.Background(), expense.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.StepStatusPending, stored.ApprovalWorkflow[0].Status)
}

func TestDecideTypedPercentageEvaluation(t *testing.T) {
	companyID := uuid.New()
	base := time.Now()
	first := newTestUser(companyID, model.RoleManager, true, base)
	second := newTestUser(companyID, model.RoleManager, true, base)

	rule := newTestRule(companyID, "Half is enough", 0, true)
	rule.ApprovalType = model.ApprovalTypePercentage
	rule.PercentageRule = model.PercentageRule{Enabled: true, Percentage: 50}
	rule.Approvers = []model.RuleApprover{
		{UserID: first.ID, Order: 1, IsRequired: true},
		{UserID: second.ID, Order: 2, IsRequired: true},
	}

	seed := func(h *engineHarness) *model.Expense {
		h.users.users = append(h.users.users, first, second)
		h.rules.rules = append(h.rules.rules, rule)
		expense := newTestExpense(companyID, uuid.New(), 50)
		expense.Status = model.ExpenseStatusPendingApproval
		expense.AppliedRuleID = &rule.ID
		expense.ApprovalWorkflow = []model.WorkflowStep{
			{ApproverID: first.ID, Status: model.StepStatusPending, Order: 1},
			{ApproverID: second.ID, Status: model.StepStatusPending, Order: 2},
		}
		current := first.ID
		expense.CurrentApproverID = &current
		h.expenses.put(expense)
		return expense
	}

	t.Run("typed evaluation finalizes at the threshold", func(t *testing.T) {
		h := newEngineHarness(WithTypedEvaluation())
		expense := seed(h)

		updated, err := h.engine.Decide(context.Background(), expense.ID, first.ID, ActionApprove, "")
		require.NoError(t, err)
		assert.Equal(t, model.ExpenseStatusApproved, updated.Status, "50%% of approvers reached")
		assert.Nil(t, updated.CurrentApproverID)
	})

	t.Run("default engine stays sequential for the same rule", func(t *testing.T) {
		h := newEngineHarness()
		expense := seed(h)

		updated, err := h.engine.Decide(context.Background(), expense.ID, first.ID, ActionApprove, "")
		require.NoError(t, err)
		assert.Equal(t, model.ExpenseStatusPendingApproval, updated.Status)
		require.NotNil(t, updated.CurrentApproverID)
		assert.Equal(t, second.ID, *updated.CurrentApproverID)
	})
}
