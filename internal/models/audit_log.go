package models

import "time"

// Audit actions written by the settlement jobs.
const (
	AuditRecharged = "recharged"
	AuditReserved  = "reserved"
	AuditConsumed  = "consumed"
	AuditReleased  = "released"
	AuditCorrected = "corrected"
)

type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entityType"`
	EntityID   *string        `json:"entityId"`
	ClientID   *string        `json:"clienteId,omitempty"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"` // api, webhook, sweep, backfill
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"createdAt"`
}
