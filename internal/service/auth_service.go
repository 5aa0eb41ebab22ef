package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"expensehub/internal/model"
	"expensehub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	CompanyName string `json:"company_name"`
	Country     string `json:"country"`
	Currency    string `json:"currency"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string         `json:"token"`
	User    UserResponse   `json:"user"`
	Company *model.Company `json:"company,omitempty"`
}

// --- Interface ---

// AuthService covers signup (company + first admin) and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	audits    repository.AuditRepository
	txManager repository.TransactionManager
	log       *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	companies repository.CompanyRepository,
	audits repository.AuditRepository,
	txManager repository.TransactionManager,
	log *zap.Logger,
) AuthService {
	return &authService{
		users:     users,
		companies: companies,
		audits:    audits,
		txManager: txManager,
		log:       log,
	}
}

// --- Implementation ---

// Register creates the tenant and its first admin in one transaction. The
// company is created without an admin reference, then the admin user pointing
// at the company, then the company is updated with the admin reference.
// Ordered two-step construction because each side references the other.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("user already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	companyName := req.CompanyName
	if companyName == "" {
		companyName = fmt.Sprintf("%s's Company", req.Name)
	}
	country := req.Country
	if country == "" {
		country = "US"
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	company := &model.Company{
		Name:     companyName,
		Country:  country,
		Currency: currency,
		Settings: model.DefaultCompanySettings(),
	}
	admin := &model.User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        model.RoleAdmin,
		IsActive:    true,
		Permissions: model.DerivePermissions(model.RoleAdmin),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.companies.Create(txCtx, company); createErr != nil {
			return fmt.Errorf("failed to create company: %w", createErr)
		}

		admin.CompanyID = company.ID
		if createErr := s.users.Create(txCtx, admin); createErr != nil {
			return fmt.Errorf("failed to create admin user: %w", createErr)
		}

		company.AdminID = &admin.ID
		if updateErr := s.companies.Update(txCtx, company); updateErr != nil {
			return fmt.Errorf("failed to set company admin: %w", updateErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"company_name": company.Name,
			"admin_email":  admin.Email,
		})
		audit := &model.AuditLog{
			CompanyID:  &company.ID,
			UserID:     &admin.ID,
			Action:     model.ActionRegisterCompany,
			EntityID:   company.ID.String(),
			EntityName: company.Name,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("company registered",
		zap.String("company_id", company.ID.String()),
		zap.String("admin_id", admin.ID.String()))

	token, err := signToken(admin)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: toUserResponse(admin), Company: company}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	if !user.IsActive {
		return nil, errors.New("account is deactivated")
	}

	token, err := signToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *authService) GetMe(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func signToken(user *model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        user.ID.String(),
		"email":      user.Email,
		"role":       user.Role,
		"company_id": user.CompanyID.String(),
		"exp":        time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	// Same fallback strategy as the middleware
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.New("failed to generate token")
	}
	return signed, nil
}
