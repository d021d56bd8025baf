package handlers

import (
	"net/http"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/request"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DecisionHandler exposes the decision log of the session
type DecisionHandler struct {
	store  store.DecisionStore
	logger *zap.Logger
}

// NewDecisionHandler creates a decision handler
func NewDecisionHandler(s store.DecisionStore, logger *zap.Logger) *DecisionHandler {
	return &DecisionHandler{store: s, logger: logger}
}

// DecisionListResponse is the decision history in append order
type DecisionListResponse struct {
	Decisions []models.EventDecision `json:"decisions"`
	Count     int                    `json:"count"`
}

// RegisterRoutes registers the decision routes
func (h *DecisionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/decisions", h.List).Methods("GET")
	r.HandleFunc("/decisions", h.Clear).Methods("DELETE")
}

// List returns every decision of the session
func (h *DecisionHandler) List(w http.ResponseWriter, r *http.Request) {
	log, ok := h.log(w, r)
	if !ok {
		return
	}

	decisions, err := log.List(r.Context())
	if err != nil {
		h.logger.Error("decision_list_failed", zap.Error(err))
		respondRetryableError(w, http.StatusServiceUnavailable, "store_unavailable", "Failed to load decisions")
		return
	}
	if decisions == nil {
		decisions = []models.EventDecision{}
	}

	respondJSON(w, http.StatusOK, DecisionListResponse{Decisions: decisions, Count: len(decisions)})
}

// Clear removes every decision of the session
func (h *DecisionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	log, ok := h.log(w, r)
	if !ok {
		return
	}

	if err := log.Clear(r.Context()); err != nil {
		h.logger.Error("decision_clear_failed", zap.Error(err))
		respondRetryableError(w, http.StatusServiceUnavailable, "store_unavailable", "Failed to clear decisions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DecisionHandler) log(w http.ResponseWriter, r *http.Request) (*store.Log, bool) {
	id := request.SessionID(r)
	if id == "" {
		respondJSONError(w, http.StatusUnauthorized, "session_required", "A deck session is required")
		return nil, false
	}
	return store.Bind(h.store, id), true
}
