package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"screenpoints/internal/models"
	"screenpoints/internal/service"
)

// UsageHandler handles screen-time ingestion and ledger queries
type UsageHandler struct {
	ledgerService *service.LedgerService
	childService  *service.ChildService
	logger        *zap.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(ledgerService *service.LedgerService, childService *service.ChildService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{ledgerService: ledgerService, childService: childService, logger: logger}
}

type sessionRequest struct {
	SessionID       string    `json:"session_id"`
	ChildID         int64     `json:"child_id"`
	AppName         string    `json:"app_name"`
	Category        string    `json:"category"`
	DurationSeconds int       `json:"duration_seconds"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// RecordSession handles POST /api/usage/sessions. The usage tracker delivers
// at least once; replays of the same session ID return the same result.
func (h *UsageHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.childService.Get(parent.ID, req.ChildID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	session, balance, err := h.ledgerService.RecordEarning(service.EarningRequest{
		SessionID:       req.SessionID,
		ChildID:         req.ChildID,
		AppName:         req.AppName,
		Category:        models.ParseCategory(req.Category),
		DurationSeconds: req.DurationSeconds,
		OccurredAt:      req.OccurredAt,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, earningResponse{Session: toSessionResponse(session), Balance: balance})
}

// Balance handles GET /api/children/{id}/balance
func (h *UsageHandler) Balance(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.ownedChildID(w, r)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(childID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

// History handles GET /api/children/{id}/ledger
func (h *UsageHandler) History(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.ownedChildID(w, r)
	if !ok {
		return
	}

	entries, err := h.ledgerService.GetHistory(childID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toLedgerEntries(entries))
}

// Sessions handles GET /api/children/{id}/sessions
func (h *UsageHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.ownedChildID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := h.ledgerService.GetRecentSessions(childID, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Reconcile handles POST /api/children/{id}/reconcile
func (h *UsageHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.ownedChildID(w, r)
	if !ok {
		return
	}

	replayed, err := h.ledgerService.Reconcile(childID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"balance": replayed})
}

// Categories handles GET /api/categories
func (h *UsageHandler) Categories(w http.ResponseWriter, r *http.Request) {
	catalog := models.Categories()
	out := make([]categoryResponse, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, categoryResponse{
			Name:            string(info.Category),
			Label:           info.Label,
			PointsPerMinute: info.PointsPerMinute,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *UsageHandler) ownedChildID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	parent := ParentFromContext(r.Context())
	childID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child ID"})
		return 0, false
	}
	if _, err := h.childService.Get(parent.ID, childID); err != nil {
		respondServiceError(w, h.logger, err)
		return 0, false
	}
	return childID, true
}
