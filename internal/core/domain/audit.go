package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited façade operation.
type AuditAction string

const (
	AuditActionIncomingPayment  AuditAction = "INCOMING_PAYMENT"
	AuditActionQuote            AuditAction = "QUOTE"
	AuditActionOutgoingInitiate AuditAction = "OUTGOING_PAYMENT_INITIATE"
	AuditActionOutgoingComplete AuditAction = "OUTGOING_PAYMENT_COMPLETE"
	AuditActionTransferPrepare  AuditAction = "TRANSFER_PREPARE"
	AuditActionTransferComplete AuditAction = "TRANSFER_COMPLETE"
)

// AuditLog records a single successful write through the REST façade.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Subject      string      `json:"subject,omitempty"` // API token subject, empty when auth is off
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
