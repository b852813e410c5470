package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"screenpoints/internal/service"
)

// ChildHandler handles child profile endpoints
type ChildHandler struct {
	childService *service.ChildService
	logger       *zap.Logger
}

// NewChildHandler creates a new child handler
func NewChildHandler(childService *service.ChildService, logger *zap.Logger) *ChildHandler {
	return &ChildHandler{childService: childService, logger: logger}
}

type childRequest struct {
	Name        string `json:"name"`
	AvatarColor string `json:"avatar_color"`
}

// Create handles POST /api/children
func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	child, err := h.childService.Create(parent.ID, req.Name, req.AvatarColor)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toChildResponse(child))
}

// List handles GET /api/children
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())

	children, err := h.childService.List(parent.ID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toChildList(children))
}

// Get handles GET /api/children/{id}
func (h *ChildHandler) Get(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	childID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child ID"})
		return
	}

	child, err := h.childService.Get(parent.ID, childID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toChildResponse(child))
}

// Update handles PUT /api/children/{id}
func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	childID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child ID"})
		return
	}

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	child, err := h.childService.Update(parent.ID, childID, req.Name, req.AvatarColor)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toChildResponse(child))
}

// Stats handles GET /api/children/{id}/stats
func (h *ChildHandler) Stats(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	childID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child ID"})
		return
	}

	stats, err := h.childService.Stats(parent.ID, childID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	resp := childStatsResponse{
		childResponse:   toChildResponse(&stats.Child),
		TotalEarned:     stats.TotalEarned,
		TotalSpent:      stats.TotalSpent,
		SessionCount:    stats.SessionCount,
		RedemptionCount: stats.RedemptionCount,
	}
	respondJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
