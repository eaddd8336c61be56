// Package audit records who did what to which document.
package audit

import (
	"context"
	"time"

	"clinicore/internal/core/id"
)

// Action identifies the kind of change being recorded.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionPost    Action = "post"
	ActionReverse Action = "reverse"
)

// Record is one audit log row. Payload is the document snapshot at the time
// of the change; the store compresses it.
type Record struct {
	ID         id.ID          `db:"id" json:"id"`
	EntityType string         `db:"entity_type" json:"entityType"`
	EntityID   id.ID          `db:"entity_id" json:"entityId"`
	Action     Action         `db:"action" json:"action"`
	UserID     string         `db:"user_id" json:"userId"`
	Payload    map[string]any `db:"-" json:"payload,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// Recorder writes audit records. Implementations must not fail the business
// transaction: they log and swallow their own errors.
type Recorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action Action, payload map[string]any)
}

// Nop is a Recorder that discards everything, for tests.
type Nop struct{}

func (Nop) Record(ctx context.Context, entityType string, entityID id.ID, action Action, payload map[string]any) {
}
