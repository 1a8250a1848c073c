package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"log"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
)

const (
	totpIssuer        = "RentalManager"
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

var (
	errTooManyAttempts = apperror.BusinessRule("Too many failed attempts, please try again later")
	errNoTOTPSecret    = apperror.BusinessRule("2FA setup not initiated")
	errTOTPNotEnabled  = apperror.BusinessRule("2FA is not enabled")
)

type TOTPService struct {
	userRepo *repositories.UserRepository
	totpRepo *repositories.TOTPRepository
	now      func() time.Time
}

func NewTOTPService(userRepo *repositories.UserRepository, totpRepo *repositories.TOTPRepository) *TOTPService {
	return &TOTPService{
		userRepo: userRepo,
		totpRepo: totpRepo,
		now:      time.Now,
	}
}

// Setup creates a new TOTP secret and QR code. 2FA stays off until Enable
// confirms a code generated from it.
func (s *TOTPService) Setup(ctx context.Context, userID int) (*models.TOTPSetupResponse, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperror.BusinessRule("2FA is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// Enable verifies a code against the pending secret and turns 2FA on
func (s *TOTPService) Enable(ctx context.Context, userID int, code, ipAddress string) error {
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return err
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return errNoTOTPSecret
	}

	if !s.validate(code, user.TOTPSecret) {
		s.logAttempt(ctx, userID, ipAddress, false)
		return apperror.Validation("Invalid verification code",
			apperror.FieldError{Field: "code", Message: "is invalid or expired"})
	}
	s.logAttempt(ctx, userID, ipAddress, true)

	if err := s.userRepo.EnableTOTP(ctx, userID); err != nil {
		return err
	}
	log.Printf("[2FA] Enabled for owner %d", userID)
	return nil
}

// Verify checks a login code for an owner with 2FA enabled
func (s *TOTPService) Verify(ctx context.Context, userID int, code, ipAddress string) error {
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return err
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return errTOTPNotEnabled
	}

	if !s.validate(code, user.TOTPSecret) {
		s.logAttempt(ctx, userID, ipAddress, false)
		return apperror.Auth("Invalid verification code")
	}
	s.logAttempt(ctx, userID, ipAddress, true)
	return nil
}

// Disable turns 2FA off after checking both the password and a current code
func (s *TOTPService) Disable(ctx context.Context, userID int, password, code string) error {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return errTOTPNotEnabled
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return apperror.Validation("Invalid password",
			apperror.FieldError{Field: "password", Message: "is incorrect"})
	}
	if !s.validate(code, user.TOTPSecret) {
		return apperror.Validation("Invalid verification code",
			apperror.FieldError{Field: "code", Message: "is invalid or expired"})
	}

	if err := s.userRepo.DisableTOTP(ctx, userID); err != nil {
		return err
	}
	log.Printf("[2FA] Disabled for owner %d", userID)
	return nil
}

// PruneAttempts drops attempt rows older than a day
func (s *TOTPService) PruneAttempts(ctx context.Context) (int64, error) {
	return s.totpRepo.Prune(ctx, s.now().Add(-24*time.Hour))
}

func (s *TOTPService) validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *TOTPService) checkRateLimit(ctx context.Context, userID int) error {
	failed, err := s.totpRepo.FailedSince(ctx, userID, s.now().Add(-rateLimitWindow))
	if err != nil {
		return err
	}
	if failed >= maxFailedAttempts {
		return errTooManyAttempts
	}
	return nil
}

func (s *TOTPService) logAttempt(ctx context.Context, userID int, ipAddress string, success bool) {
	if err := s.totpRepo.LogAttempt(ctx, userID, ipAddress, success); err != nil {
		log.Printf("[2FA] Failed to record attempt for owner %d: %v", userID, err)
	}
}
