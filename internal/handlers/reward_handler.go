package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"screenpoints/internal/service"
)

// RewardHandler handles the reward catalog endpoints
type RewardHandler struct {
	rewardService *service.RewardService
	logger        *zap.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewardService *service.RewardService, logger *zap.Logger) *RewardHandler {
	return &RewardHandler{rewardService: rewardService, logger: logger}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
}

// Create handles POST /api/rewards
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reward, err := h.rewardService.Create(parent.ID, req.Title, req.Description, req.PointCost)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toRewardResponse(reward))
}

// List handles GET /api/rewards. By default only active rewards are returned;
// ?all=true includes deactivated ones.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	activeOnly := r.URL.Query().Get("all") != "true"

	rewards, err := h.rewardService.List(parent.ID, activeOnly)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	out := make([]rewardResponse, 0, len(rewards))
	for i := range rewards {
		out = append(out, toRewardResponse(&rewards[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/rewards/{id}
func (h *RewardHandler) Get(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	rewardID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid reward ID"})
		return
	}

	reward, err := h.rewardService.Get(rewardID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if reward.ParentID != parent.ID {
		respondServiceError(w, h.logger, service.ErrRewardUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, toRewardResponse(reward))
}

// Update handles PUT /api/rewards/{id}
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	rewardID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid reward ID"})
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reward, err := h.rewardService.Update(parent.ID, rewardID, req.Title, req.Description, req.PointCost)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toRewardResponse(reward))
}

// Deactivate handles DELETE /api/rewards/{id}. Rewards are never hard-deleted;
// past redemptions keep pointing at them.
func (h *RewardHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	rewardID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid reward ID"})
		return
	}

	if err := h.rewardService.Deactivate(parent.ID, rewardID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
