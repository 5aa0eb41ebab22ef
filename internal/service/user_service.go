package service

import (
	"context"
	"errors"
	"fmt"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateUserRequest struct {
	Name              string `json:"name" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required,min=6"`
	Role              string `json:"role" binding:"omitempty,oneof=admin manager employee"`
	Manager           string `json:"manager"`
	IsManagerApprover bool   `json:"is_manager_approver"`
}

type UpdateUserRequest struct {
	Name              string  `json:"name"`
	Email             string  `json:"email" binding:"omitempty,email"`
	Role              string  `json:"role" binding:"omitempty,oneof=admin manager employee"`
	Manager           *string `json:"manager"`
	IsActive          *bool   `json:"is_active"`
	IsManagerApprover *bool   `json:"is_manager_approver"`
}

type UserListFilter struct {
	Role     string
	IsActive *bool
	Page     int
	Limit    int
}

// UserResponse mirrors the stored user minus the password hash
type UserResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Role        string            `json:"role"`
	CompanyID   uuid.UUID         `json:"company_id"`
	ManagerID   *uuid.UUID        `json:"manager_id"`
	ManagerName string            `json:"manager_name,omitempty"`
	IsActive    bool              `json:"is_active"`
	Permissions model.Permissions `json:"permissions"`
	CreatedAt   string            `json:"created_at"`
}

// --- Interface ---

// UserService manages the users of one company. Every operation is scoped to
// the calling admin/manager's company.
type UserService interface {
	ListCompanyUsers(ctx context.Context, companyID uuid.UUID, filter UserListFilter) ([]UserResponse, int64, error)
	CreateUser(ctx context.Context, companyID uuid.UUID, req CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, companyID, userID uuid.UUID) (*UserResponse, error)
	UpdateUser(ctx context.Context, companyID, userID uuid.UUID, req UpdateUserRequest) (*UserResponse, error)
	DeactivateUser(ctx context.Context, companyID, userID uuid.UUID) error
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

// --- Implementation ---

func (s *userService) ListCompanyUsers(ctx context.Context, companyID uuid.UUID, filter UserListFilter) ([]UserResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	users, total, err := s.users.ListByCompany(ctx, companyID, repository.UserFilter{
		Role:     filter.Role,
		IsActive: filter.IsActive,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

func (s *userService) CreateUser(ctx context.Context, companyID uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RoleEmployee
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("user with this email already exists")
	}

	var managerID *uuid.UUID
	if req.Manager != "" {
		parsed, err := uuid.Parse(req.Manager)
		if err != nil {
			return nil, fmt.Errorf("invalid manager id: %w", err)
		}
		if err := s.validateManager(ctx, companyID, parsed); err != nil {
			return nil, err
		}
		managerID = &parsed
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        role,
		CompanyID:   companyID,
		ManagerID:   managerID,
		IsManagerApprover: req.IsManagerApprover,
		IsActive:          true,
		Permissions:       model.DerivePermissions(role),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) GetUser(ctx context.Context, companyID, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetCompanyUser(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, companyID, userID uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.users.GetCompanyUser(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		if _, lookupErr := s.users.GetByEmail(ctx, req.Email); lookupErr == nil {
			return nil, errors.New("email already in use")
		}
		user.Email = req.Email
	}
	if req.Role != "" && req.Role != user.Role {
		user.Role = req.Role
		// Permission flags are a function of role; a role change always
		// recomputes them.
		user.Permissions = model.DerivePermissions(req.Role)
	}
	if req.Manager != nil {
		if *req.Manager == "" {
			user.ManagerID = nil
		} else {
			parsed, parseErr := uuid.Parse(*req.Manager)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid manager id: %w", parseErr)
			}
			if err := s.validateManager(ctx, companyID, parsed); err != nil {
				return nil, err
			}
			user.ManagerID = &parsed
		}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsManagerApprover != nil {
		user.IsManagerApprover = *req.IsManagerApprover
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// DeactivateUser soft-deletes by flipping is_active. Admin accounts cannot be
// deactivated this way.
func (s *userService) DeactivateUser(ctx context.Context, companyID, userID uuid.UUID) error {
	user, err := s.users.GetCompanyUser(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("user not found")
		}
		return err
	}

	if user.Role == model.RoleAdmin {
		return errors.New("cannot deactivate admin users")
	}

	user.IsActive = false
	return s.users.Update(ctx, user)
}

// validateManager ensures the referenced manager is a same-company manager or admin
func (s *userService) validateManager(ctx context.Context, companyID, managerID uuid.UUID) error {
	manager, err := s.users.GetCompanyUser(ctx, companyID, managerID)
	if err != nil {
		return errors.New("invalid manager selected")
	}
	if manager.Role != model.RoleAdmin && manager.Role != model.RoleManager {
		return errors.New("invalid manager selected")
	}
	return nil
}

// --- Helpers ---

func toUserResponse(user *model.User) UserResponse {
	resp := UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		ManagerID:   user.ManagerID,
		IsActive:    user.IsActive,
		Permissions: user.Permissions,
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.Manager != nil {
		resp.ManagerName = user.Manager.Name
	}
	return resp
}
