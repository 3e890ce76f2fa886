// Package workflow implements the prompt refinement pipeline: clarifier
// generation, prompt finalization, and the multi-provider run. Handlers stay
// thin; every step's semantics live here.
package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finprompt/refinery/internal/db/sqlite"
	"github.com/finprompt/refinery/internal/metrics"
	"github.com/finprompt/refinery/internal/packs"
	"github.com/finprompt/refinery/internal/prompts"
	"github.com/finprompt/refinery/internal/provider"
	"github.com/finprompt/refinery/internal/runner"
	"github.com/finprompt/refinery/internal/tokens"
	"github.com/finprompt/refinery/pkg/models"
)

// Clarifier generation wants near-deterministic JSON, so it runs cooler and
// shorter than full-text generation.
const (
	clarifierTemperature = 0.3
	clarifierMaxTokens   = 2000
)

// ErrBadClarifierJSON marks a clarifier response that could not be parsed
// into the question schema. This is a hard failure; there is no fallback
// question set.
var ErrBadClarifierJSON = fmt.Errorf("failed to parse clarifying questions")

// Workflow drives the refine pipeline against a single generation provider
// (clarify and finalize) and the fan-out runner (run).
type Workflow struct {
	llm     provider.Provider
	records *sqlite.PromptRecordStore
	runner  *runner.Runner
	catalog *packs.Catalog
	rec     *metrics.Recorder
}

// New assembles a Workflow. llm handles clarifier generation and prompt
// finalization; the runner owns the multi-provider fan-out.
func New(
	llm provider.Provider,
	records *sqlite.PromptRecordStore,
	run *runner.Runner,
	catalog *packs.Catalog,
	rec *metrics.Recorder,
) *Workflow {
	return &Workflow{llm: llm, records: records, runner: run, catalog: catalog, rec: rec}
}

type clarifierEnvelope struct {
	Questions []models.Clarifier `json:"questions"`
}

// GenerateClarifiers asks the generation provider for clarifying questions
// about rawPrompt, optionally biased by a use-case pack. The provider must
// return the strict question JSON schema; anything else fails with
// ErrBadClarifierJSON.
func (w *Workflow) GenerateClarifiers(ctx context.Context, rawPrompt, packKey string) ([]models.Clarifier, error) {
	var pack *packs.Pack
	if packKey != "" {
		if p, ok := w.catalog.Get(packKey); ok {
			pack = p
		} else {
			log.Debug().Str("pack", packKey).Msg("Unknown pack key, generating without pack context")
		}
	}

	text, err := w.llm.Complete(ctx, prompts.BuildClarifierPrompt(rawPrompt, pack), provider.Options{
		Temperature: clarifierTemperature,
		MaxTokens:   clarifierMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var envelope clarifierEnvelope
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &envelope); err != nil {
		log.Warn().Err(err).Msg("Clarifier response was not valid JSON")
		return nil, ErrBadClarifierJSON
	}
	if len(envelope.Questions) == 0 {
		return nil, ErrBadClarifierJSON
	}
	for i := range envelope.Questions {
		if err := envelope.Questions[i].Validate(); err != nil {
			log.Warn().Err(err).Msg("Clarifier response failed schema validation")
			return nil, ErrBadClarifierJSON
		}
	}

	return envelope.Questions, nil
}

// FinalizeInput is the material for one finalization: the raw prompt, the
// clarifier exchange as the client captured it, and session attribution.
// Clarifiers and Answers are stored verbatim.
type FinalizeInput struct {
	SessionID  string
	RawPrompt  string
	PackKey    string
	Clarifiers json.RawMessage
	Answers    json.RawMessage
}

// FinalizeResult pairs the persisted record with an advisory token count of
// the optimized prompt.
type FinalizeResult struct {
	Record     *models.PromptRecord
	TokenCount int
}

// Finalize builds the optimization meta-prompt from the input, runs it
// through the generation provider, and persists the resulting record.
func (w *Workflow) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	answers := string(in.Answers)
	if answers == "" {
		answers = "{}"
	}
	clarifiers := string(in.Clarifiers)
	if clarifiers == "" {
		clarifiers = "[]"
	}

	optimized, err := w.llm.Complete(ctx,
		prompts.BuildOptimizationPrompt(in.RawPrompt, answers, in.PackKey),
		provider.Options{})
	if err != nil {
		return nil, err
	}

	rec := &models.PromptRecord{
		ID:               uuid.NewString(),
		SessionID:        nullable(in.SessionID),
		RawPrompt:        in.RawPrompt,
		PackKey:          nullable(in.PackKey),
		Clarifiers:       clarifiers,
		ClarifierAnswers: answers,
		OptimizedPrompt:  optimized,
	}
	if err := w.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist prompt record: %w", err)
	}

	return &FinalizeResult{Record: rec, TokenCount: tokens.Count(optimized)}, nil
}

// RunOutcome is what a run hands back to the client: per-provider results
// (nil entries are failures, see the Metrics errors) and the aggregate
// metrics that were attached to the record.
type RunOutcome struct {
	Results map[string]*string
	Metrics models.RunMetrics
}

// Run fans an optimized prompt out across the selected providers and
// attaches the outcome to the record. The record must already exist; runs
// never create records. An empty prompt falls back to the record's stored
// optimized prompt.
func (w *Workflow) Run(ctx context.Context, recordID, prompt string, selection map[string]bool) (*RunOutcome, error) {
	rec, err := w.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load prompt record: %w", err)
	}
	if rec == nil {
		return nil, sqlite.ErrRecordNotFound
	}
	if prompt == "" {
		prompt = rec.OptimizedPrompt
	}

	agg := w.runner.RunAll(ctx, prompt, selection)

	ran := make(map[string]bool, len(agg.Timings))
	rm := models.RunMetrics{
		Timings:   make(map[string]int64, len(agg.Timings)),
		TotalTime: agg.TotalTime.Milliseconds(),
	}
	if len(agg.Errors) > 0 {
		rm.Errors = agg.Errors
	}
	for name, elapsed := range agg.Timings {
		ran[name] = true
		rm.Timings[name] = elapsed.Milliseconds()
		if w.rec != nil {
			_, failed := agg.Errors[name]
			w.rec.ProviderCall(ctx, name, !failed, float64(elapsed.Milliseconds()))
		}
	}

	metricsJSON, err := json.Marshal(rm)
	if err != nil {
		return nil, fmt.Errorf("marshal run metrics: %w", err)
	}
	if err := w.records.AttachRunResults(ctx, recordID, ran, agg.Results, string(metricsJSON)); err != nil {
		return nil, err
	}

	return &RunOutcome{Results: agg.Results, Metrics: rm}, nil
}

// stripCodeFences removes markdown code fences that models wrap JSON in.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
