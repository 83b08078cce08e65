package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/db"
	"github.com/jonathan/application-agent/internal/generation"
)

// maxRequestBytes bounds a generation request body; resumes are plain text.
const maxRequestBytes = 1 << 20

// maxListLimit caps the history page size.
const maxListLimit = 100

// GenerationsResponse is the response for GET /api/generations.
type GenerationsResponse struct {
	Generations []db.Generation `json:"generations"`
	Count       int             `json:"count"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (generation.Request, bool) {
	var req generation.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

// handleGenerate runs a generation to completion and returns the result
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logFailure(err, req)
		s.errorResponse(w, HTTPStatus(err), publicMessage(err))
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleGenerateStream runs a generation and streams progress via SSE
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	if !canStream(w) {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	// Request errors are reported as plain JSON before the stream opens.
	updates, err := s.generator.Stream(ctx, req)
	if err != nil {
		s.logFailure(err, req)
		s.errorResponse(w, HTTPStatus(err), publicMessage(err))
		return
	}

	sse, err := newStreamWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	for u := range updates {
		if err := sse.WriteUpdate(u); err != nil {
			// Client went away; the run finishes and is stored regardless.
			s.logger.Debug("failed to write SSE event", zap.String("agent", u.Unit), zap.Error(err))
		}
	}
}

// handleListGenerations returns a user's most recent generations
func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.validationResponse(w, &ErrValidation{Field: "user_id", Message: "is required"})
		return
	}
	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.validationResponse(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	gens, err := s.history.ListGenerations(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("failed to list generations", zap.String("user_id", userID), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list generations")
		return
	}
	if gens == nil {
		gens = []db.Generation{}
	}
	s.jsonResponse(w, http.StatusOK, GenerationsResponse{Generations: gens, Count: len(gens)})
}

// handleGetGeneration returns one stored generation
func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		s.validationResponse(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	gen, err := s.history.GetGeneration(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get generation", zap.String("id", idStr), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get generation")
		return
	}
	if gen == nil {
		nf := &ErrNotFound{Kind: "generation", ID: idStr}
		s.errorResponse(w, HTTPStatus(nf), nf.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, gen)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) validationResponse(w http.ResponseWriter, err *ErrValidation) {
	s.errorResponse(w, HTTPStatus(err), err.Error())
}

func (s *Server) logFailure(err error, req generation.Request) {
	fields := []zap.Field{
		zap.String("document_type", string(req.DocumentType)),
		zap.String("user_id", req.UserID),
		zap.Error(err),
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		s.logger.Error("generation failed to start", fields...)
		return
	}
	s.logger.Info("generation rejected", fields...)
}
