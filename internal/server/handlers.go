package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/finprompt/refinery/internal/db/sqlite"
	"github.com/finprompt/refinery/internal/identity"
	"github.com/finprompt/refinery/internal/ratelimit"
	"github.com/finprompt/refinery/internal/server/sse"
	"github.com/finprompt/refinery/internal/workflow"
	"github.com/finprompt/refinery/pkg/models"
)

// errorResponse is the uniform failure shape: success is always false, error
// is a short human-readable summary, details optionally narrows it.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

// rateLimited gates a handler behind a quota keyed by the caller's hashed
// identity. Remaining/reset headers accompany every gated response so
// clients can pace themselves before hitting the wall.
func (s *Service) rateLimited(quota ratelimit.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity.FromRequest(r, s.salt)
		result := s.limiter.Check(id, quota)

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.UnixMilli(), 10))

		if !result.Allowed {
			if s.metrics != nil {
				s.metrics.RateLimited(r.Context(), r.URL.Path)
			}
			log.Info().Str("path", r.URL.Path).Msg("Request rate limited")
			writeError(w, http.StatusTooManyRequests,
				"Rate limit exceeded. Please try again later.",
				fmt.Sprintf("Limit resets at %s", result.ResetTime.Format(time.RFC3339)))
			return
		}

		next(w, r)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       s.version,
		"uptimeSeconds": int64(time.Since(s.startTime).Seconds()),
		"sseClients":    s.broadcaster.ClientCount(),
	})
}

type analyticsRequest struct {
	SessionID string          `json:"sessionId"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// handleAnalytics upserts the caller's session and appends one event.
// Session identity fields are captured once at first sight and never
// rewritten by later events.
func (s *Service) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var req analyticsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Kind == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "sessionId and kind are required")
		return
	}

	ipHash := identity.FromRequest(r, s.salt)
	if err := s.sessions.Upsert(r.Context(), req.SessionID, ipHash, r.UserAgent()); err != nil {
		log.Error().Err(err).Msg("Failed to upsert session")
		writeError(w, http.StatusInternalServerError, "Failed to record event", "")
		return
	}
	if _, err := s.events.Append(r.Context(), req.SessionID, req.Kind, string(req.Data)); err != nil {
		log.Error().Err(err).Msg("Failed to append event")
		writeError(w, http.StatusInternalServerError, "Failed to record event", "")
		return
	}

	s.broadcaster.Publish(sse.Activity{Type: sse.ActivityEvent, SessionID: req.SessionID})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// trackEvent records a workflow-step event for sessions that identify
// themselves. Event failures never fail the step that produced them.
func (s *Service) trackEvent(r *http.Request, sessionID, kind string, payload any) {
	if sessionID == "" {
		return
	}
	var data string
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("Failed to marshal event payload")
		} else {
			data = string(encoded)
		}
	}
	ipHash := identity.FromRequest(r, s.salt)
	if err := s.sessions.Upsert(r.Context(), sessionID, ipHash, r.UserAgent()); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("Failed to upsert session for event")
		return
	}
	if _, err := s.events.Append(r.Context(), sessionID, kind, data); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("Failed to append event")
	}
}

type optimizeRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	RawPrompt string `json:"rawPrompt"`
	PackKey   string `json:"packKey,omitempty"`
}

// handleOptimize generates clarifying questions for a raw prompt.
func (s *Service) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RawPrompt == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "rawPrompt is required")
		return
	}

	questions, err := s.workflow.GenerateClarifiers(r.Context(), req.RawPrompt, req.PackKey)
	if err != nil {
		if errors.Is(err, workflow.ErrBadClarifierJSON) {
			writeError(w, http.StatusInternalServerError, "Failed to generate clarifying questions",
				"The model returned an unexpected response")
			return
		}
		log.Error().Err(err).Msg("Clarifier generation failed")
		writeError(w, http.StatusInternalServerError, "Failed to generate clarifying questions", "")
		return
	}

	s.trackEvent(r, req.SessionID, models.EventOptimizeClick, map[string]any{
		"packKey":      req.PackKey,
		"promptLength": len(req.RawPrompt),
	})
	s.broadcaster.Publish(sse.Activity{Type: sse.ActivityClarify, SessionID: req.SessionID})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"clarifiers": questions,
	})
}

type finalizeRequest struct {
	SessionID        string          `json:"sessionId,omitempty"`
	RawPrompt        string          `json:"rawPrompt"`
	PackKey          string          `json:"packKey,omitempty"`
	Clarifiers       json.RawMessage `json:"clarifiers,omitempty"`
	ClarifierAnswers json.RawMessage `json:"clarifierAnswers,omitempty"`
}

// handleFinalize produces the optimized prompt and persists its record.
func (s *Service) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RawPrompt == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "rawPrompt is required")
		return
	}

	res, err := s.workflow.Finalize(r.Context(), workflow.FinalizeInput{
		SessionID:  req.SessionID,
		RawPrompt:  req.RawPrompt,
		PackKey:    req.PackKey,
		Clarifiers: req.Clarifiers,
		Answers:    req.ClarifierAnswers,
	})
	if err != nil {
		log.Error().Err(err).Msg("Finalize failed")
		writeError(w, http.StatusInternalServerError, "Failed to generate optimized prompt", "")
		return
	}

	s.trackEvent(r, req.SessionID, models.EventFinalizeClick, map[string]any{
		"promptRecordId": res.Record.ID,
	})
	s.broadcaster.Publish(sse.Activity{
		Type:      sse.ActivityFinalize,
		SessionID: req.SessionID,
		RecordID:  res.Record.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"promptRecordId":  res.Record.ID,
		"optimizedPrompt": res.Record.OptimizedPrompt,
		"tokenCount":      res.TokenCount,
	})
}

type runRequest struct {
	SessionID       string          `json:"sessionId,omitempty"`
	OptimizedPrompt string          `json:"optimizedPrompt"`
	PromptRecordID  string          `json:"promptRecordId"`
	Models          map[string]bool `json:"models"`
}

// handleRun fans the optimized prompt out across the selected providers and
// returns per-provider results plus timings. The record must pre-exist;
// results are never stored without one.
func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OptimizedPrompt == "" || req.PromptRecordID == "" || req.Models == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields",
			"optimizedPrompt, promptRecordId and models are required")
		return
	}
	for name := range req.Models {
		if !knownProvider(name) {
			writeError(w, http.StatusBadRequest, "Unknown provider", name)
			return
		}
	}

	out, err := s.workflow.Run(r.Context(), req.PromptRecordID, req.OptimizedPrompt, req.Models)
	if err != nil {
		if errors.Is(err, sqlite.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Prompt record not found", req.PromptRecordID)
			return
		}
		log.Error().Err(err).Msg("Run failed")
		writeError(w, http.StatusInternalServerError, "Failed to run models", "")
		return
	}

	s.trackEvent(r, req.SessionID, models.EventRunModels, map[string]any{
		"models":    req.Models,
		"totalTime": out.Metrics.TotalTime,
		"hasErrors": len(out.Metrics.Errors) > 0,
	})
	s.broadcaster.Publish(sse.Activity{
		Type:      sse.ActivityRun,
		SessionID: req.SessionID,
		RecordID:  req.PromptRecordID,
	})
	resp := map[string]any{
		"success":   true,
		"results":   out.Results,
		"timings":   out.Metrics.Timings,
		"totalTime": out.Metrics.TotalTime,
	}
	if len(out.Metrics.Errors) > 0 {
		resp["errors"] = out.Metrics.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePacks lists the pack catalog, overlay included.
func (s *Service) handlePacks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"packs":   s.catalog.List(),
	})
}

func knownProvider(name string) bool {
	for _, known := range models.ProviderNames {
		if name == known {
			return true
		}
	}
	return false
}
