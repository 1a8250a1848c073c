package middleware

import (
	"context"
	"net/http"
	"strings"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"
	"rental-backend/pkg/utils"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
	RoleKey     contextKey = "role"
)

// UserLoader is the slice of the user repository the middleware needs.
type UserLoader interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLoader
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate validates the bearer token and confirms the owner still exists
// before putting their identity on the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			utils.RespondError(w, apperror.Auth("Access denied. No token provided."), false)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			utils.RespondError(w, apperror.Auth("Invalid or expired token"), false)
			return
		}

		user, err := m.users.Get(r.Context(), claims.UserID)
		if err != nil {
			utils.RespondError(w, apperror.Auth("Invalid token. User not found."), false)
			return
		}

		ctx := WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUser stores the authenticated owner on ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	ctx = context.WithValue(ctx, UsernameKey, user.Username)
	return context.WithValue(ctx, RoleKey, user.Role)
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
