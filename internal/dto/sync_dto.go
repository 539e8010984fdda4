// FILE: internal/dto/sync_dto.go
package dto

import "time"

// SyncEventMessage is one ephemeral live-sync push. It is delivered to every
// connected client of the owning user and never persisted; clients that were
// offline reconcile through the regular REST endpoints instead.
type SyncEventMessage struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}
