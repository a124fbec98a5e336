package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/internal/repository"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// BootstrapAdmin describes the account created on an empty users table.
type BootstrapAdmin struct {
	Name     string
	Email    string
	Password string
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "list users")
	}
	return users, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "user", "load user")
	}
	return user, nil
}

// Create adds a new account with a bcrypt hashed password.
func (s *UserService) Create(ctx context.Context, req dto.UserCreateRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid create user payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrEmailTaken, "email already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "hash password")
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      req.IsAdmin,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrEmailTaken, "email already in use")
		}
		return nil, appErrors.Internal(err, "create user")
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))
	return user, nil
}

// Update edits the display name and admin flag.
func (s *UserService) Update(ctx context.Context, id string, req dto.UserUpdateRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid update user payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(req.Name)
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, lookupFailure(err, "user", "update user")
	}
	return user, nil
}

// ResetPassword replaces the password of any account.
func (s *UserService) ResetPassword(ctx context.Context, id string, req dto.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalidPayload(err, "invalid reset password payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return lookupFailure(err, "user", "reset password")
	}
	s.logger.Info("password reset", zap.String("user_id", id))
	return nil
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "you cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupFailure(err, "user", "delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actorID))
	return nil
}

// EnsureBootstrapAdmin creates the first administrator when no account exists.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, admin BootstrapAdmin) (bool, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return false, appErrors.Internal(err, "count users")
	}
	if total > 0 {
		return false, nil
	}
	user, err := s.Create(ctx, dto.UserCreateRequest{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
		IsAdmin:  true,
	})
	if err != nil {
		return false, err
	}
	s.logger.Warn("bootstrap administrator created with the configured default password; change it after the first login",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)
	return true, nil
}
