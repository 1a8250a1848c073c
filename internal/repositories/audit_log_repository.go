package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"rental-backend/internal/models"
)

type AuditLogRepository struct {
	DB DBTX
}

func NewAuditLogRepository(db DBTX) *AuditLogRepository {
	return &AuditLogRepository{DB: db}
}

// WithTx returns a copy bound to tx so the audit row commits with the change it records.
func (r *AuditLogRepository) WithTx(tx pgx.Tx) *AuditLogRepository {
	return &AuditLogRepository{DB: tx}
}

// Create records an audit entry. Old and new values are stored as JSONB.
func (r *AuditLogRepository) Create(ctx context.Context, e models.AuditEntry) error {
	oldValues, err := marshalAuditValues(e.OldValues)
	if err != nil {
		return err
	}
	newValues, err := marshalAuditValues(e.NewValues)
	if err != nil {
		return err
	}

	var ip *string
	if e.IPAddress != "" {
		ip = &e.IPAddress
	}

	query := `
		INSERT INTO audit_logs (user_id, action, table_name, record_id, old_values, new_values, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.DB.Exec(ctx, query, e.UserID, e.Action, e.TableName, e.RecordID, oldValues, newValues, ip)
	return err
}

// ListByUser returns a user's audit trail, newest first. An empty action
// returns every action.
func (r *AuditLogRepository) ListByUser(ctx context.Context, userID, limit, offset int, action string) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, table_name, record_id, old_values, new_values, ip_address, created_at
		FROM audit_logs
		WHERE user_id = $1 AND ($2 = '' OR action = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.Query(ctx, query, userID, action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		var (
			l                    models.AuditLog
			oldValues, newValues []byte
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.TableName, &l.RecordID,
			&oldValues, &newValues, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.OldValues = oldValues
		l.NewValues = newValues
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func marshalAuditValues(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit values: %w", err)
	}
	return b, nil
}
