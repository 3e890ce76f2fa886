// Package models contains domain models for refinery.
package models

import "database/sql"

// Provider identifiers used as map keys across the fan-out runner, the
// persistence layer, and the HTTP surface. Map position never matters;
// these names do.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// ProviderNames lists every known provider identifier.
var ProviderNames = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle}

// PromptRecord is one full optimization transaction: the raw prompt, the
// clarifier exchange, the optimized prompt, and (after an optional run)
// per-provider results and aggregate metrics.
type PromptRecord struct {
	ID               string         `db:"id" json:"id"`
	SessionID        sql.NullString `db:"session_id" json:"session_id,omitempty"`
	RawPrompt        string         `db:"raw_prompt" json:"raw_prompt"`
	PackKey          sql.NullString `db:"pack_key" json:"pack_key,omitempty"`
	Clarifiers       string         `db:"clarifiers" json:"clarifiers"`
	ClarifierAnswers string         `db:"clarifier_answers" json:"clarifier_answers"`
	OptimizedPrompt  string         `db:"optimized_prompt" json:"optimized_prompt"`
	RanOpenAI        bool           `db:"ran_openai" json:"ran_openai"`
	RanAnthropic     bool           `db:"ran_anthropic" json:"ran_anthropic"`
	RanGoogle        bool           `db:"ran_google" json:"ran_google"`
	ResultOpenAI     sql.NullString `db:"result_openai" json:"result_openai,omitempty"`
	ResultAnthropic  sql.NullString `db:"result_anthropic" json:"result_anthropic,omitempty"`
	ResultGoogle     sql.NullString `db:"result_google" json:"result_google,omitempty"`
	Metrics          sql.NullString `db:"metrics" json:"metrics,omitempty"`
	CreatedAt        string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch   int64          `db:"created_at_epoch" json:"created_at_epoch"`
	UpdatedAtEpoch   int64          `db:"updated_at_epoch" json:"updated_at_epoch"`
}

// RunMetrics is the aggregate attached to a PromptRecord after a model run.
// Durations are milliseconds to match what clients display.
type RunMetrics struct {
	Timings   map[string]int64  `json:"timings"`
	TotalTime int64             `json:"totalTime"`
	Errors    map[string]string `json:"errors,omitempty"`
}
