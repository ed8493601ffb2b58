package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/answer"
	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 64 << 10

type askRequest struct {
	Query *string `json:"query"`
}

// handleAsk answers POST /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonError(w, "request body must be JSON with a string \"query\" field", http.StatusBadRequest)
		return
	}
	if req.Query == nil {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	res, err := s.answers.Ask(ctx, *req.Query)
	switch {
	case errors.Is(err, answer.ErrInvalidQuery):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("ask failed")
		jsonError(w, answer.ErrUpstream.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
	hlog.FromRequest(r).Info().
		Bool("safe", res.Safe).
		Int("citations", len(res.Citations)).
		Dur("dur", time.Since(start)).
		Msg("answered")
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	docs, err := s.documents.ListDocuments(ctx)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list documents failed")
		jsonError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
