package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PercentageRuleSettings enables auto-finalization once a share of approvers agree
type PercentageRuleSettings struct {
	Enabled    bool `json:"enabled"`
	Percentage int  `json:"percentage"` // e.g. 60 means 60%
}

// SpecificApproverSettings enables finalization once all listed users approve
type SpecificApproverSettings struct {
	Enabled           bool        `json:"enabled"`
	RequiredApprovers []uuid.UUID `json:"required_approvers"`
}

// HybridRuleSettings finalizes when either the percentage or the specific list is satisfied
type HybridRuleSettings struct {
	Enabled           bool        `json:"enabled"`
	Percentage        int         `json:"percentage"`
	RequiredApprovers []uuid.UUID `json:"required_approvers"`
}

// ExpenseLimits defines per-role submission ceilings and the auto-approval threshold
type ExpenseLimits struct {
	EmployeeLimit     decimal.Decimal `json:"employee_limit"`
	ManagerLimit      decimal.Decimal `json:"manager_limit"`
	AutoApprovalLimit decimal.Decimal `json:"auto_approval_limit"`
}

// CompanySettings holds default approval rule behavior configured per tenant
type CompanySettings struct {
	PercentageRule       PercentageRuleSettings   `json:"percentage_rule"`
	SpecificApproverRule SpecificApproverSettings `json:"specific_approver_rule"`
	HybridRule           HybridRuleSettings       `json:"hybrid_rule"`
	ExpenseLimits        ExpenseLimits            `json:"expense_limits"`
}

// Company is the tenant boundary. All users, rules, and expenses belong to exactly one company.
// AdminID is nullable because the company is created before its admin user exists
// (the admin references the company and the company references its admin, so creation is an ordered two-step).
type Company struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Country        string          `gorm:"type:varchar(100);not null" json:"country"`
	Currency       string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"` // base currency
	CurrencySymbol string          `gorm:"type:varchar(10);default:'$'" json:"currency_symbol"`
	AdminID        *uuid.UUID      `gorm:"type:uuid" json:"admin_id"`
	Admin          *User           `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Settings       CompanySettings `gorm:"type:jsonb;serializer:json" json:"settings"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DefaultCompanySettings returns the settings applied at signup
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		PercentageRule: PercentageRuleSettings{Enabled: false, Percentage: 60},
		HybridRule:     HybridRuleSettings{Enabled: false, Percentage: 60},
		ExpenseLimits: ExpenseLimits{
			EmployeeLimit:     decimal.NewFromInt(1000),
			ManagerLimit:      decimal.NewFromInt(5000),
			AutoApprovalLimit: decimal.NewFromInt(100),
		},
	}
}
