package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/excuse-deck/internal/services/excuse"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ExcuseSource produces excuses for a free text context
type ExcuseSource interface {
	Remote(ctx context.Context, eventContext string) (string, error)
	Local() string
}

// ExcuseHandler serves the standalone excuse generator
type ExcuseHandler struct {
	excuses ExcuseSource
	logger  *zap.Logger
}

// NewExcuseHandler creates an excuse handler
func NewExcuseHandler(excuses ExcuseSource, logger *zap.Logger) *ExcuseHandler {
	return &ExcuseHandler{excuses: excuses, logger: logger}
}

type excuseRequest struct {
	Context string `json:"context" validate:"required,max=500"`
}

// ExcuseResponse carries one generated excuse
type ExcuseResponse struct {
	Excuse string `json:"excuse"`
	Source string `json:"source"`
}

// RegisterRoutes registers the excuse routes
func (h *ExcuseHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/excuses", h.Generate).Methods("POST")
}

// Generate asks the remote generator for an excuse. A failure is a 502 unless
// ?fallback=true is given, in which case the local tables answer.
func (h *ExcuseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req excuseRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	text, err := h.excuses.Remote(r.Context(), req.Context)
	if err == nil {
		respondJSON(w, http.StatusOK, ExcuseResponse{Excuse: text, Source: "remote"})
		return
	}

	h.logger.Warn("excuse_generation_failed",
		zap.String("reason", excuse.Reason(err)),
		zap.Error(err))

	if r.URL.Query().Get("fallback") == "true" {
		respondJSON(w, http.StatusOK, ExcuseResponse{Excuse: h.excuses.Local(), Source: "local"})
		return
	}
	if errors.Is(err, excuse.ErrNoRemote) {
		respondJSONError(w, http.StatusServiceUnavailable, "excuse_generator_not_configured", "No excuse generator is configured")
		return
	}
	respondRetryableError(w, http.StatusBadGateway, "excuse_generation_failed", "Failed to generate excuse")
}
