package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"screenpoints/internal/service"
)

// RedemptionHandler handles reward redemption endpoints
type RedemptionHandler struct {
	redemptionService *service.RedemptionService
	childService      *service.ChildService
	logger            *zap.Logger
}

// NewRedemptionHandler creates a new redemption handler
func NewRedemptionHandler(redemptionService *service.RedemptionService, childService *service.ChildService, logger *zap.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: redemptionService,
		childService:      childService,
		logger:            logger,
	}
}

type redeemRequest struct {
	ChildID  int64 `json:"child_id"`
	RewardID int64 `json:"reward_id"`
}

// Redeem handles POST /api/redemptions
func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.childService.Get(parent.ID, req.ChildID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	redemption, err := h.redemptionService.Redeem(req.ChildID, req.RewardID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toRedemptionResponse(redemption))
}

// History handles GET /api/children/{id}/redemptions
func (h *RedemptionHandler) History(w http.ResponseWriter, r *http.Request) {
	parent := ParentFromContext(r.Context())
	childID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child ID"})
		return
	}

	if _, err := h.childService.Get(parent.ID, childID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	redemptions, err := h.redemptionService.History(childID, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	out := make([]redemptionResponse, 0, len(redemptions))
	for i := range redemptions {
		out = append(out, toRedemptionResponse(&redemptions[i]))
	}
	respondJSON(w, http.StatusOK, out)
}
