package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"rental-backend/internal/models"
)

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, name, username, email, COALESCE(phone, ''), password_hash, role,
	COALESCE(totp_secret, ''), totp_enabled, totp_verified_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.TOTPSecret, &u.TOTPEnabled, &u.TOTPVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleOwner
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO users(name, username, email, phone, password_hash, role)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at, updated_at`,
		u.Name, u.Username, u.Email, u.Phone, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// GetByIdentifier finds a user by email or username.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1 OR username=$1 LIMIT 1`, identifier))
}

// ExistsByEmailOrUsername reports whether either value is already registered.
func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email=$1 OR username=$2)`,
		email, username).Scan(&exists)
	return exists, err
}

// UpdateProfile changes name and phone; nil leaves a column untouched.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, name, phone *string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`UPDATE users
         SET name = COALESCE($2, name), phone = COALESCE($3, phone), updated_at = CURRENT_TIMESTAMP
         WHERE id=$1
         RETURNING `+userColumns,
		id, name, phone))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=CURRENT_TIMESTAMP WHERE id=$1`,
		id, passwordHash)
	return err
}

// SetTOTPSecret stores a pending secret; 2FA stays disabled until verified.
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret=$2, totp_enabled=false, updated_at=CURRENT_TIMESTAMP WHERE id=$1`,
		id, secret)
	return err
}

func (r *UserRepository) EnableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_enabled=true, totp_verified_at=CURRENT_TIMESTAMP, updated_at=CURRENT_TIMESTAMP
         WHERE id=$1`, id)
	return err
}

func (r *UserRepository) DisableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_enabled=false, totp_secret=NULL, totp_verified_at=NULL, updated_at=CURRENT_TIMESTAMP
         WHERE id=$1`, id)
	return err
}
