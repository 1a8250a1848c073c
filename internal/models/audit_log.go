package models

import (
	"encoding/json"
	"time"
)

const (
	AuditPaymentCreated  = "PAYMENT_CREATED"
	AuditTenantAssigned  = "TENANT_ASSIGNED"
	AuditTenantMovedOut  = "TENANT_MOVED_OUT"
	AuditRentUpdated     = "RENT_UPDATED"
	AuditApartmentDelete = "APARTMENT_DELETED"
)

type AuditLog struct {
	ID        int             `json:"id"`
	UserID    *int            `json:"user_id"`
	Action    string          `json:"action"`
	TableName string          `json:"table_name"`
	RecordID  *int            `json:"record_id"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	IPAddress *string         `json:"ip_address"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditEntry is what callers hand to the audit repository; values are marshalled to JSONB
type AuditEntry struct {
	UserID    int
	Action    string
	TableName string
	RecordID  int
	OldValues interface{}
	NewValues interface{}
	IPAddress string
}
