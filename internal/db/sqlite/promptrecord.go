// Package sqlite provides SQLite database operations for refinery.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/finprompt/refinery/pkg/models"
)

// ErrRecordNotFound is returned when a run targets a prompt record that was
// never created. Run results are never stored without a pre-existing record.
var ErrRecordNotFound = errors.New("prompt record not found")

// PromptRecordStore provides prompt record database operations.
type PromptRecordStore struct {
	store *Store
}

// NewPromptRecordStore creates a new prompt record store.
func NewPromptRecordStore(store *Store) *PromptRecordStore {
	return &PromptRecordStore{store: store}
}

// Create persists a new prompt record at finalize time. The caller supplies
// the ID; timestamps are filled here.
func (s *PromptRecordStore) Create(ctx context.Context, rec *models.PromptRecord) error {
	now := time.Now()
	rec.CreatedAt = now.Format(time.RFC3339)
	rec.CreatedAtEpoch = now.UnixMilli()

	const query = `
		INSERT INTO prompt_records
		(id, session_id, raw_prompt, pack_key, clarifiers, clarifier_answers,
		 optimized_prompt, created_at, created_at_epoch, updated_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.store.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.RawPrompt, rec.PackKey,
		rec.Clarifiers, rec.ClarifierAnswers, rec.OptimizedPrompt,
		rec.CreatedAt, rec.CreatedAtEpoch, rec.CreatedAtEpoch,
	)
	return err
}

// GetByID retrieves a prompt record, or nil when absent.
func (s *PromptRecordStore) GetByID(ctx context.Context, id string) (*models.PromptRecord, error) {
	const query = `
		SELECT id, session_id, raw_prompt, pack_key, clarifiers, clarifier_answers,
		       optimized_prompt, ran_openai, ran_anthropic, ran_google,
		       result_openai, result_anthropic, result_google, metrics,
		       created_at, created_at_epoch, updated_at_epoch
		FROM prompt_records
		WHERE id = ?
		LIMIT 1
	`

	var rec models.PromptRecord
	err := s.store.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.SessionID, &rec.RawPrompt, &rec.PackKey,
		&rec.Clarifiers, &rec.ClarifierAnswers, &rec.OptimizedPrompt,
		&rec.RanOpenAI, &rec.RanAnthropic, &rec.RanGoogle,
		&rec.ResultOpenAI, &rec.ResultAnthropic, &rec.ResultGoogle, &rec.Metrics,
		&rec.CreatedAt, &rec.CreatedAtEpoch, &rec.UpdatedAtEpoch,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AttachRunResults mutates a record once per run with the per-provider
// results and aggregate metrics JSON. Fails with ErrRecordNotFound when no
// such record exists.
func (s *PromptRecordStore) AttachRunResults(
	ctx context.Context,
	id string,
	ran map[string]bool,
	results map[string]*string,
	metricsJSON string,
) error {
	const query = `
		UPDATE prompt_records
		SET ran_openai = ?, ran_anthropic = ?, ran_google = ?,
		    result_openai = ?, result_anthropic = ?, result_google = ?,
		    metrics = ?, updated_at_epoch = ?
		WHERE id = ?
	`

	result, err := s.store.ExecContext(ctx, query,
		ran[models.ProviderOpenAI], ran[models.ProviderAnthropic], ran[models.ProviderGoogle],
		nullResult(results, models.ProviderOpenAI),
		nullResult(results, models.ProviderAnthropic),
		nullResult(results, models.ProviderGoogle),
		metricsJSON, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// nullResult maps a fan-out result entry to a nullable column: absent or
// failed providers store NULL, successes store their text (possibly empty).
func nullResult(results map[string]*string, provider string) sql.NullString {
	text, ok := results[provider]
	if !ok || text == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *text, Valid: true}
}
