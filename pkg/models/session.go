// Package models contains domain models for refinery.
package models

import "database/sql"

// Session represents a client-generated browsing session. The ID comes from
// the client; the server only ever stores a salted hash of the source IP.
type Session struct {
	ID             string         `db:"id" json:"id"`
	IPHash         string         `db:"ip_hash" json:"ip_hash"`
	UserAgent      sql.NullString `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt      string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64          `db:"created_at_epoch" json:"created_at_epoch"`
}

// Event kinds recorded by the analytics endpoint and the workflow steps.
const (
	EventPageView      = "page_view"
	EventOptimizeClick = "optimize_click"
	EventFinalizeClick = "finalize_click"
	EventRunModels     = "run_models"
)

// Event is an append-only analytics event tied to a session. Data holds an
// optional free-form JSON payload; immutable once created.
type Event struct {
	ID             int64          `db:"id" json:"id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	Kind           string         `db:"kind" json:"kind"`
	Data           sql.NullString `db:"data" json:"data,omitempty"`
	CreatedAt      string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64          `db:"created_at_epoch" json:"created_at_epoch"`
}
