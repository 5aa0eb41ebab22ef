package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionRegisterCompany   = "REGISTER_COMPANY"
	ActionCreateUser        = "CREATE_USER"
	ActionUpdateUser        = "UPDATE_USER"
	ActionDeactivateUser    = "DEACTIVATE_USER"
	ActionCreateRule        = "CREATE_APPROVAL_RULE"
	ActionUpdateRule        = "UPDATE_APPROVAL_RULE"
	ActionDeleteRule        = "DELETE_APPROVAL_RULE"
	ActionSetupDefaultRule  = "SETUP_DEFAULT_RULE"
	ActionSubmitExpense     = "SUBMIT_EXPENSE"
	ActionApproveExpense    = "APPROVE_EXPENSE"
	ActionRejectExpense     = "REJECT_EXPENSE"
	ActionMarkExpensePaid   = "MARK_EXPENSE_PAID"
	ActionAssignUnassigned  = "ASSIGN_UNASSIGNED_EXPENSES"
	ActionUpdateCompanyInfo = "UPDATE_COMPANY_SETTINGS"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID  *uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
