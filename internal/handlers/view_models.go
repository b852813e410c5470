package handlers

import (
	"time"

	"screenpoints/internal/models"
)

type parentResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	Token  string         `json:"token"`
	Parent parentResponse `json:"parent"`
}

type childResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	AvatarColor  string    `json:"avatar_color"`
	PointBalance int       `json:"point_balance"`
	CreatedAt    time.Time `json:"created_at"`
}

type childStatsResponse struct {
	childResponse
	TotalEarned     int `json:"total_earned"`
	TotalSpent      int `json:"total_spent"`
	SessionCount    int `json:"session_count"`
	RedemptionCount int `json:"redemption_count"`
}

type sessionResponse struct {
	ID              string    `json:"id"`
	ChildID         int64     `json:"child_id"`
	AppName         string    `json:"app_name"`
	Category        string    `json:"category"`
	DurationSeconds int       `json:"duration_seconds"`
	PointsEarned    int       `json:"points_earned"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type earningResponse struct {
	Session sessionResponse `json:"session"`
	Balance int             `json:"balance"`
}

type ledgerEntryResponse struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Points    int       `json:"points"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

type rewardResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PointCost   int       `json:"point_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type redemptionResponse struct {
	ID           int64     `json:"id"`
	ReferenceKey string    `json:"reference_key"`
	ChildID      int64     `json:"child_id"`
	RewardID     int64     `json:"reward_id"`
	PointCost    int       `json:"point_cost"`
	BalanceAfter int       `json:"balance_after"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

type categoryResponse struct {
	Name            string `json:"name"`
	Label           string `json:"label"`
	PointsPerMinute int    `json:"points_per_minute"`
}

func toParentResponse(p *models.Parent) parentResponse {
	return parentResponse{ID: p.ID, Email: p.Email, Name: p.Name}
}

func toChildResponse(c *models.Child) childResponse {
	return childResponse{
		ID:           c.ID,
		Name:         c.Name,
		AvatarColor:  c.AvatarColor,
		PointBalance: c.PointBalance,
		CreatedAt:    c.CreatedAt,
	}
}

func toChildList(children []models.Child) []childResponse {
	out := make([]childResponse, 0, len(children))
	for i := range children {
		out = append(out, toChildResponse(&children[i]))
	}
	return out
}

func toSessionResponse(s *models.ScreenTimeSession) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		ChildID:         s.ChildID,
		AppName:         s.AppName,
		Category:        string(s.Category),
		DurationSeconds: s.DurationSeconds,
		PointsEarned:    s.PointsEarned,
		OccurredAt:      s.OccurredAt,
	}
}

func toLedgerEntries(entries []models.LedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Points:    e.Points,
			Reference: e.Reference,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func toRewardResponse(r *models.Reward) rewardResponse {
	return rewardResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		PointCost:   r.PointCost,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
	}
}

func toRedemptionResponse(r *models.Redemption) redemptionResponse {
	return redemptionResponse{
		ID:           r.ID,
		ReferenceKey: r.ReferenceKey,
		ChildID:      r.ChildID,
		RewardID:     r.RewardID,
		PointCost:    r.PointCost,
		BalanceAfter: r.BalanceAfter,
		RedeemedAt:   r.RedeemedAt,
	}
}
