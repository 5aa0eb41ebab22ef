package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// Permissions are derived from the user's role. They are persisted for API
// compatibility but must never be set directly; use DerivePermissions on
// every create and role change.
type Permissions struct {
	CanApprove           bool `json:"can_approve"`
	CanCreateUsers       bool `json:"can_create_users"`
	CanViewAllExpenses   bool `json:"can_view_all_expenses"`
	CanOverrideApprovals bool `json:"can_override_approvals"`
}

// User represents an employee, manager, or admin scoped to one company
type User struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Email             string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password          string         `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	Role              string         `gorm:"type:varchar(20);not null;default:'employee';index" json:"role"`
	CompanyID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"company_id"`
	Company           *Company       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ManagerID         *uuid.UUID     `gorm:"type:uuid" json:"manager_id"` // optional hierarchy, same company; not used for routing
	Manager           *User          `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	IsManagerApprover bool           `gorm:"default:false" json:"is_manager_approver"`
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	Permissions       Permissions    `gorm:"type:jsonb;serializer:json" json:"permissions"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// ValidRole reports whether role is one of the closed role set
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleEmployee
}

// DerivePermissions computes the permission flags for a role. The flags are a
// pure function of role; callers must overwrite User.Permissions with this
// result whenever the role is set or changed.
func DerivePermissions(role string) Permissions {
	return Permissions{
		CanApprove:           role == RoleAdmin || role == RoleManager,
		CanCreateUsers:       role == RoleAdmin,
		CanViewAllExpenses:   role == RoleAdmin || role == RoleManager,
		CanOverrideApprovals: role == RoleAdmin,
	}
}

// CanDecide reports whether the user's role allows acting on approvals
func (u *User) CanDecide() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}
