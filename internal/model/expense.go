package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense status enum constants
const (
	ExpenseStatusDraft           = "draft"
	ExpenseStatusSubmitted       = "submitted"
	ExpenseStatusPendingApproval = "pending_approval"
	ExpenseStatusApproved        = "approved"
	ExpenseStatusRejected        = "rejected"
	ExpenseStatusPaid            = "paid"
)

// Workflow step status enum constants
const (
	StepStatusPending  = "pending"
	StepStatusApproved = "approved"
	StepStatusRejected = "rejected"
)

// ExpenseCategories is the closed category set
var ExpenseCategories = []string{"travel", "meals", "accommodation", "transport", "office", "entertainment", "other"}

// ValidCategory reports whether category is one of ExpenseCategories
func ValidCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}

// WorkflowStep is one approver's slot in an expense's materialized workflow
type WorkflowStep struct {
	ApproverID uuid.UUID  `json:"approver_id"`
	Status     string     `json:"status"` // pending, approved, rejected
	Comments   string     `json:"comments"`
	DecidedAt  *time.Time `json:"decided_at"`
	Order      int        `json:"order"`
}

// Expense is a submitted cost entry with multi-currency support and an
// embedded approval workflow. Expenses are never deleted; lifecycle is
// tracked through status only.
type Expense struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title string    `gorm:"type:varchar(255);not null" json:"title"`

	// Currency & Exchange Rate (amount is in the company's base currency)
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	OriginalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"original_amount"`
	OriginalCurrency  string          `gorm:"type:varchar(10);not null" json:"original_currency"`
	ConvertedAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"converted_amount"`
	ConvertedCurrency string          `gorm:"type:varchar(10);not null" json:"converted_currency"`
	ExchangeRate      decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1" json:"exchange_rate"`

	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(30);not null;index" json:"category"`
	Date        time.Time `gorm:"not null" json:"date"`

	SubmittedByID uuid.UUID `gorm:"type:uuid;not null;index" json:"submitted_by_id"`
	SubmittedBy   *User     `gorm:"foreignKey:SubmittedByID" json:"submitted_by,omitempty"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Company       *Company  `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Status string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`

	// ApprovalWorkflow is the ordered step list materialized by the workflow
	// builder. While status is pending_approval, CurrentApproverID (when set)
	// must reference a step whose status is pending.
	ApprovalWorkflow  []WorkflowStep `gorm:"type:jsonb;serializer:json" json:"approval_workflow"`
	CurrentApproverID *uuid.UUID     `gorm:"type:uuid;index" json:"current_approver_id"`
	CurrentApprover   *User          `gorm:"foreignKey:CurrentApproverID" json:"current_approver,omitempty"`

	// AppliedRuleID records which rule the builder resolved, when any
	AppliedRuleID *uuid.UUID `gorm:"type:uuid" json:"applied_rule_id"`

	FinalApproverID *uuid.UUID `gorm:"type:uuid" json:"final_approver_id"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`

	// Version guards concurrent decisions: every save is conditional on the
	// version read, and bumps it.
	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingStep returns the first step still pending, in list order, or nil
func (e *Expense) PendingStep() *WorkflowStep {
	for i := range e.ApprovalWorkflow {
		if e.ApprovalWorkflow[i].Status == StepStatusPending {
			return &e.ApprovalWorkflow[i]
		}
	}
	return nil
}

// StepFor returns the pending step assigned to userID, or nil
func (e *Expense) StepFor(userID uuid.UUID) *WorkflowStep {
	for i := range e.ApprovalWorkflow {
		if e.ApprovalWorkflow[i].ApproverID == userID && e.ApprovalWorkflow[i].Status == StepStatusPending {
			return &e.ApprovalWorkflow[i]
		}
	}
	return nil
}
