package workflow

import (
	"expensehub/internal/model"

	"github.com/google/uuid"
)

// defaultPercentage applies when a percentage/hybrid rule carries no explicit value
const defaultPercentage = 60

// Evaluator decides whether a workflow has accumulated enough approvals to
// finalize. Strategies are keyed by the rule's approval type; the engine
// consults them only when typed evaluation is enabled; the shipping default
// treats every rule as sequential.
type Evaluator interface {
	Finalized(steps []model.WorkflowStep, rule *model.ApprovalRule) bool
}

// EvaluatorFor returns the strategy for the given approval type, falling back
// to sequential for unknown values.
func EvaluatorFor(approvalType string) Evaluator {
	switch approvalType {
	case model.ApprovalTypePercentage:
		return percentageEvaluator{}
	case model.ApprovalTypeSpecific:
		return specificEvaluator{}
	case model.ApprovalTypeHybrid:
		return hybridEvaluator{}
	default:
		return SequentialEvaluator{}
	}
}

// SequentialEvaluator finalizes once every step has been decided. This is
// the only policy the engine applies by default.
type SequentialEvaluator struct{}

func (SequentialEvaluator) Finalized(steps []model.WorkflowStep, _ *model.ApprovalRule) bool {
	for _, step := range steps {
		if step.Status == model.StepStatusPending {
			return false
		}
	}
	return true
}

// percentageEvaluator finalizes once at least rule.PercentageRule.Percentage
// percent of the required approvers have approved. When the rule marks no
// approver as required, all approvers count.
type percentageEvaluator struct{}

func (percentageEvaluator) Finalized(steps []model.WorkflowStep, rule *model.ApprovalRule) bool {
	if rule == nil {
		return SequentialEvaluator{}.Finalized(steps, rule)
	}

	required := make(map[uuid.UUID]bool)
	for _, approver := range rule.Approvers {
		if approver.IsRequired {
			required[approver.UserID] = true
		}
	}
	if len(required) == 0 {
		for _, approver := range rule.Approvers {
			required[approver.UserID] = true
		}
	}
	if len(required) == 0 {
		return false
	}

	approved := 0
	for _, step := range steps {
		if step.Status == model.StepStatusApproved && required[step.ApproverID] {
			approved++
		}
	}

	percentage := rule.PercentageRule.Percentage
	if percentage <= 0 {
		percentage = defaultPercentage
	}

	return approved*100 >= percentage*len(required)
}

// specificEvaluator finalizes once every user in rule.SpecificApprovers has approved
type specificEvaluator struct{}

func (specificEvaluator) Finalized(steps []model.WorkflowStep, rule *model.ApprovalRule) bool {
	if rule == nil || len(rule.SpecificApprovers) == 0 {
		return SequentialEvaluator{}.Finalized(steps, rule)
	}

	approvedBy := make(map[uuid.UUID]bool)
	for _, step := range steps {
		if step.Status == model.StepStatusApproved {
			approvedBy[step.ApproverID] = true
		}
	}

	for _, id := range rule.SpecificApprovers {
		if !approvedBy[id] {
			return false
		}
	}
	return true
}

// hybridEvaluator finalizes when either the percentage or the specific
// condition holds
type hybridEvaluator struct{}

func (hybridEvaluator) Finalized(steps []model.WorkflowStep, rule *model.ApprovalRule) bool {
	return percentageEvaluator{}.Finalized(steps, rule) || specificEvaluator{}.Finalized(steps, rule)
}
