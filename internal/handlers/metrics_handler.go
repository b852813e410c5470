package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"screenpoints/internal/models"
	"screenpoints/internal/repository"
)

// MetricsHandler serves aggregated analytics records
type MetricsHandler struct {
	metricsRepo *repository.MetricsRepository
	logger      *zap.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsRepo *repository.MetricsRepository, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{metricsRepo: metricsRepo, logger: logger}
}

type aggregateResponse struct {
	WindowKind   string                    `json:"window_kind"`
	WindowStart  time.Time                 `json:"window_start"`
	WindowEnd    time.Time                 `json:"window_end"`
	EventCount   int                       `json:"event_count"`
	FeatureUsage map[string]int            `json:"feature_usage"`
	Retention    models.RetentionMetrics   `json:"retention"`
	Performance  models.PerformanceMetrics `json:"performance"`
	ComputedAt   time.Time                 `json:"computed_at"`
}

// Aggregates handles GET /api/metrics/aggregates?kind=day&from=...&to=...
// Dates are YYYY-MM-DD in UTC; the range defaults to the last 30 days.
func (h *MetricsHandler) Aggregates(w http.ResponseWriter, r *http.Request) {
	kind := models.WindowKind(r.URL.Query().Get("kind"))
	switch kind {
	case models.WindowDay, models.WindowWeek, models.WindowMonth:
	case "":
		kind = models.WindowDay
	default:
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid window kind"})
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid from date"})
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid to date"})
			return
		}
	}

	records, err := h.metricsRepo.ListMetrics(kind, from, to)
	if err != nil {
		respondError(w, h.logger, http.StatusInternalServerError, "failed to load metrics", err)
		return
	}

	out := make([]aggregateResponse, 0, len(records))
	for _, m := range records {
		out = append(out, aggregateResponse{
			WindowKind:   string(m.Window.Kind),
			WindowStart:  m.Window.Start,
			WindowEnd:    m.Window.End(),
			EventCount:   m.EventCount,
			FeatureUsage: m.FeatureUsage,
			Retention:    m.Retention,
			Performance:  m.Performance,
			ComputedAt:   m.ComputedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
