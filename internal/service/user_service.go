package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrEmailTaken = errors.New("email already registered")

// UserStore is the credential store.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	CreateTeacher(ctx context.Context, u *model.User, t *model.TeacherProfile) error
	ListByStatus(ctx context.Context, status model.UserStatus) ([]model.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error
	ListTeachers(ctx context.Context) ([]model.UserWithTeacher, error)
}

// TeacherReader reads teacher profiles.
type TeacherReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.TeacherProfile, error)
}

// UserService handles registration, login and account approval.
type UserService struct {
	users    UserStore
	teachers TeacherReader
	auth     *AuthService
	log      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, teachers TeacherReader, auth *AuthService, log zerolog.Logger) *UserService {
	return &UserService{
		users:    users,
		teachers: teachers,
		auth:     auth,
		log:      log.With().Str("component", "user_service").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending teacher account with a free-tier profile.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResponse, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.RoleTeacher,
		Status:       model.UserStatusPending,
	}
	t := &model.TeacherProfile{
		SchoolName:         req.SchoolName,
		SubscriptionTier:   model.TierFree,
		SubscriptionStatus: model.SubscriptionActive,
		QuotaQuestions:     FreeQuotaQuestions,
		QuotaStudents:      FreeQuotaStudents,
	}

	if err := s.users.CreateTeacher(ctx, u, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create teacher: %w", err)
	}

	s.log.Info().Str("user_id", u.ID.String()).Msg("Teacher registered, awaiting approval")
	return &model.RegisterResponse{
		UserID:  u.ID,
		Message: "Registration successful. Waiting for admin approval.",
	}, nil
}

// Login verifies credentials and issues a token for active accounts.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	if u.Status != model.UserStatusActive {
		return nil, ErrAccountInactive
	}

	token, err := s.auth.GenerateToken(u)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u,
	}, nil
}

// Me returns the caller's account, with the teacher profile for teachers.
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*model.UserWithTeacher, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	out := &model.UserWithTeacher{User: u}
	if u.Role == model.RoleTeacher {
		t, err := s.teachers.GetByUserID(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get teacher profile: %w", err)
		}
		out.TeacherInfo = t
	}
	return out, nil
}

// PendingUsers lists accounts awaiting approval.
func (s *UserService) PendingUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListByStatus(ctx, model.UserStatusPending)
}

// Approve activates an account.
func (s *UserService) Approve(ctx context.Context, userID uuid.UUID) error {
	return s.setStatus(ctx, userID, model.UserStatusActive)
}

// Reject marks an account as rejected.
func (s *UserService) Reject(ctx context.Context, userID uuid.UUID) error {
	return s.setStatus(ctx, userID, model.UserStatusRejected)
}

func (s *UserService) setStatus(ctx context.Context, userID uuid.UUID, status model.UserStatus) error {
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update user status: %w", err)
	}
	s.log.Info().Str("user_id", userID.String()).Str("status", string(status)).Msg("User status changed")
	return nil
}

// AllTeachers lists every teacher account with its profile.
func (s *UserService) AllTeachers(ctx context.Context) ([]model.UserWithTeacher, error) {
	return s.users.ListTeachers(ctx)
}

// EnsureSuperadmin creates the superadmin account if no user has the email
// yet. Safe to call on every startup. Reports whether an account was created.
func (s *UserService) EnsureSuperadmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("lookup superadmin: %w", err)
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	err = s.users.Create(ctx, &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Super",
		LastName:     "Admin",
		Role:         model.RoleSuperadmin,
		Status:       model.UserStatusActive,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// Another instance won the race.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create superadmin: %w", err)
	}

	s.log.Info().Str("email", email).Msg("Superadmin created")
	return true, nil
}
