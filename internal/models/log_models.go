package models

import "time"

// Log is an append-only audit record. Entries are never mutated or deleted
// from the application layer.
type Log struct {
	ID          int64     `json:"id"`
	ActionByID  *int64    `json:"action_by_id,omitempty" db:"action_by_id"`
	ActionType  string    `json:"action_type" db:"action_type"`
	Description string    `json:"description" db:"description"`
	TargetType  *string   `json:"target_type,omitempty" db:"target_type"`
	TargetID    *int64    `json:"target_id,omitempty" db:"target_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`

	// ActionByUsername is joined for display.
	ActionByUsername *string `json:"action_by_username,omitempty"`
}
