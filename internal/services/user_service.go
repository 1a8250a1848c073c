package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
)

type UserService struct {
	Repo       *repositories.UserRepository
	JWTManager *auth.JWTManager
	TOTP       *TOTPService
}

func NewUserService(repo *repositories.UserRepository, jwtManager *auth.JWTManager, totpService *TOTPService) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
		TOTP:       totpService,
	}
}

// LoginResult holds either a session or, for 2FA accounts, the pending step.
type LoginResult struct {
	Auth    *models.AuthResponse
	Pending *models.LoginStep1Response
}

var errDuplicateUser = apperror.BusinessRule("User already exists with this email or username")

// Register creates an owner account and signs them in
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	exists, err := s.Repo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, errDuplicateUser
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     username,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hashedPassword,
		Role:         models.RoleOwner,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, errDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Printf("[Auth] Registered owner %d (%s)", user.ID, user.Username)

	return s.session(user)
}

// Login authenticates by email or username. Owners with 2FA enabled get a
// short-lived pending token instead of a session.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*LoginResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}

	user, err := s.Repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.Auth("Invalid credentials")
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, apperror.Auth("Invalid credentials")
	}

	if user.TOTPEnabled {
		temp, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Pending: &models.LoginStep1Response{
			Requires2FA: true,
			TempToken:   temp,
			Message:     "Enter the code from your authenticator app",
		}}, nil
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Auth: resp}, nil
}

// CompleteLogin exchanges a pending token and a valid code for a session
func (s *UserService) CompleteLogin(ctx context.Context, req *models.TOTPLoginRequest, ipAddress string) (*models.AuthResponse, error) {
	claims, err := s.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, apperror.Auth("Verification session expired, please log in again")
	}

	if err := s.TOTP.Verify(ctx, claims.UserID, req.Code, ipAddress); err != nil {
		return nil, err
	}

	user, err := s.Repo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *UserService) Profile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.Repo.Get(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("User")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int, req *models.UpdateProfileRequest) (*models.User, error) {
	if req.Name == nil && req.Phone == nil {
		return nil, apperror.Validation("No valid fields to update")
	}
	user, err := s.Repo.UpdateProfile(ctx, userID, req.Name, req.Phone)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("User")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int, req *models.ChangePasswordRequest) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		return apperror.Validation("Current password is incorrect",
			apperror.FieldError{Field: "currentPassword", Message: "is incorrect"})
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}
	log.Printf("[Auth] Password changed for owner %d", userID)
	return nil
}

// OwnerFromToken resolves a session token to an owner id; used by the
// websocket handshake.
func (s *UserService) OwnerFromToken(token string) (int, error) {
	claims, err := s.JWTManager.ValidateToken(token)
	if err != nil {
		return 0, errors.Join(apperror.Auth("Invalid or expired token"), err)
	}
	return claims.UserID, nil
}

func (s *UserService) session(user *models.User) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}
