package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalType enum constants
const (
	ApprovalTypeSequential = "sequential"
	ApprovalTypePercentage = "percentage"
	ApprovalTypeSpecific   = "specific"
	ApprovalTypeHybrid     = "hybrid"
)

// DefaultRuleName is reserved: at most one rule per company may carry it
const DefaultRuleName = "Default Approval Rule"

// RuleConditions select which expenses a rule applies to. A rule matches
// expenses with converted amount >= AmountThreshold. Categories and
// departments are stored but the resolver does not filter on them.
type RuleConditions struct {
	AmountThreshold decimal.Decimal `json:"amount_threshold"`
	Categories      []string        `json:"categories"`
	Departments     []string        `json:"departments"`
}

// RuleApprover binds a user to a workflow position. Order values are unique
// within a rule and define the step sequence.
type RuleApprover struct {
	UserID     uuid.UUID `json:"user_id"`
	Order      int       `json:"order"` // >= 1
	IsRequired bool      `json:"is_required"`
}

// PercentageRule configures auto-finalization by approval share
type PercentageRule struct {
	Enabled    bool `json:"enabled"`
	Percentage int  `json:"percentage"`
}

// ApprovalRule is a company-scoped configuration selecting which users must
// approve an expense meeting its conditions, and under what policy.
type ApprovalRule struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"company_id"`
	Company           *Company       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Conditions        RuleConditions `gorm:"type:jsonb;serializer:json" json:"conditions"`
	Approvers         []RuleApprover `gorm:"type:jsonb;serializer:json" json:"approvers"`
	ApprovalType      string         `gorm:"type:varchar(20);not null;default:'sequential'" json:"approval_type"`
	PercentageRule    PercentageRule `gorm:"type:jsonb;serializer:json" json:"percentage_rule"`
	SpecificApprovers []uuid.UUID    `gorm:"type:jsonb;serializer:json" json:"specific_approvers"`
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ValidApprovalType reports whether t is one of the closed approval type set
func ValidApprovalType(t string) bool {
	switch t {
	case ApprovalTypeSequential, ApprovalTypePercentage, ApprovalTypeSpecific, ApprovalTypeHybrid:
		return true
	}
	return false
}
