package auth

import (
	"errors"
	"time"

	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypePending2FA = "2fa_pending"
	pending2FAExpiry    = 5 * time.Minute
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Claims identify the owner behind a bearer token
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.JWT.Secret),
		issuer: cfg.JWT.Issuer,
		ttl:    time.Duration(cfg.JWT.ExpirationHours) * time.Hour,
	}
}

// GenerateToken creates a session token for an owner
func (j *JWTManager) GenerateToken(user *models.User) (string, error) {
	now := timeutil.Now()

	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a session token and returns the claims.
// Pending 2FA tokens are rejected here.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := j.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TempClaims for short-lived 2FA tokens (between login step 1 and step 2)
type TempClaims struct {
	UserID int    `json:"temp_user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateTempToken creates a 5 minute token that can only be exchanged at the 2FA login step
func (j *JWTManager) GenerateTempToken(user *models.User) (string, error) {
	now := timeutil.Now()

	claims := &TempClaims{
		UserID: user.ID,
		Type:   tokenTypePending2FA,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(pending2FAExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateTempToken verifies a temporary 2FA token and returns the claims
func (j *JWTManager) ValidateTempToken(tokenString string) (*TempClaims, error) {
	claims := &TempClaims{}
	if err := j.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypePending2FA {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

func (j *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
