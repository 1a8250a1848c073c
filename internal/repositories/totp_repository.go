package repositories

import (
	"context"
	"time"
)

// TOTPRepository tracks second-factor attempts so repeated wrong codes can be throttled.
type TOTPRepository struct {
	DB DBTX
}

func NewTOTPRepository(db DBTX) *TOTPRepository {
	return &TOTPRepository{DB: db}
}

func (r *TOTPRepository) LogAttempt(ctx context.Context, userID int, ipAddress string, success bool) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO totp_attempts (user_id, ip_address, success) VALUES ($1, $2, $3)`,
		userID, ipAddress, success)
	return err
}

// FailedSince counts a user's failed codes newer than since.
func (r *TOTPRepository) FailedSince(ctx context.Context, userID int, since time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM totp_attempts WHERE user_id = $1 AND success = false AND created_at > $2`,
		userID, since).Scan(&count)
	return count, err
}

// Prune removes attempts older than cutoff.
func (r *TOTPRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM totp_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
