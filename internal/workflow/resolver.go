package workflow

import (
	"context"
	"fmt"
	"sort"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Resolver selects the single applicable approval rule for an expense amount.
type Resolver struct {
	rules repository.ApprovalRuleRepository
	log   *zap.Logger
}

func NewResolver(rules repository.ApprovalRuleRepository, log *zap.Logger) *Resolver {
	return &Resolver{rules: rules, log: log}
}

// Resolve returns the active rule with the highest amount threshold that is
// still <= amount (most specific match), or nil when no rule applies.
// Category and department conditions are stored on rules but intentionally
// not filtered on here; only the amount threshold selects.
func (r *Resolver) Resolve(ctx context.Context, companyID uuid.UUID, amount decimal.Decimal) (*model.ApprovalRule, error) {
	rules, err := r.rules.FindActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval rules: %w", err)
	}

	candidates := make([]model.ApprovalRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Conditions.AmountThreshold.LessThanOrEqual(amount) {
			candidates = append(candidates, rule)
		}
	}

	if len(candidates) == 0 {
		r.log.Debug("no approval rule matched",
			zap.String("company_id", companyID.String()),
			zap.String("amount", amount.String()))
		return nil, nil
	}

	// Highest threshold wins. Stable sort keeps creation order among equal
	// thresholds deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Conditions.AmountThreshold.GreaterThan(candidates[j].Conditions.AmountThreshold)
	})

	selected := candidates[0]
	r.log.Debug("approval rule resolved",
		zap.String("company_id", companyID.String()),
		zap.String("rule_id", selected.ID.String()),
		zap.String("rule_name", selected.Name),
		zap.String("threshold", selected.Conditions.AmountThreshold.String()))

	return &selected, nil
}
