package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/service/stats"
)

// StatsService is the subset of the stats service the handler needs.
type StatsService interface {
	ReviewActivity(
		ctx context.Context,
		accountID uuid.UUID,
		deckID *uuid.UUID,
		referenceInstant time.Time,
		days int,
	) ([]stats.DailyPoint, error)
	DueForecast(
		ctx context.Context,
		accountID uuid.UUID,
		deckID *uuid.UUID,
		referenceInstant time.Time,
		days int,
	) ([]stats.DailyPoint, error)
	MaturityBreakdown(
		ctx context.Context,
		accountID uuid.UUID,
		deckID *uuid.UUID,
	) (map[stats.MaturityBucket]int, error)
}

// DailySeriesResponse is a fixed-length daily series.
type DailySeriesResponse struct {
	Points []stats.DailyPoint `json:"points"`
}

// MaturityResponse is the maturity histogram keyed by bucket name.
type MaturityResponse struct {
	Buckets map[string]int `json:"buckets"`
}

// StatsHandler handles read-only statistics requests.
type StatsHandler struct {
	stats  StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats StatsService, logger *slog.Logger) *StatsHandler {
	if stats == nil {
		panic("stats cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StatsHandler{
		stats:  stats,
		logger: logger.With(slog.String("component", "stats_handler")),
	}
}

// ReviewActivity handles GET /accounts/{accountID}/stats/activity requests.
// Optional query parameters: deck_id (UUID), days (1-365, default 30).
func (h *StatsHandler) ReviewActivity(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, deckID, days, ok := h.parseScope(w, r)
	if !ok {
		return
	}

	window, err := h.stats.ReviewActivity(r.Context(), accountID, deckID, time.Now().UTC(), days)
	if err != nil {
		log.Error("review activity query failed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		RespondWithError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, DailySeriesResponse{Points: window})
}

// DueForecast handles GET /accounts/{accountID}/stats/forecast requests.
func (h *StatsHandler) DueForecast(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, deckID, days, ok := h.parseScope(w, r)
	if !ok {
		return
	}

	window, err := h.stats.DueForecast(r.Context(), accountID, deckID, time.Now().UTC(), days)
	if err != nil {
		log.Error("due forecast query failed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		RespondWithError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, DailySeriesResponse{Points: window})
}

// MaturityBreakdown handles GET /accounts/{accountID}/stats/maturity requests.
func (h *StatsHandler) MaturityBreakdown(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, deckID, _, ok := h.parseScope(w, r)
	if !ok {
		return
	}

	histogram, err := h.stats.MaturityBreakdown(r.Context(), accountID, deckID)
	if err != nil {
		log.Error("maturity breakdown query failed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		RespondWithError(w, err)
		return
	}

	buckets := make(map[string]int, len(histogram))
	for bucket, count := range histogram {
		buckets[bucket.String()] = count
	}
	RespondWithJSON(w, http.StatusOK, MaturityResponse{Buckets: buckets})
}

// parseScope extracts the account ID path parameter and the optional deck_id
// and days query parameters, writing an error response on invalid input.
func (h *StatsHandler) parseScope(
	w http.ResponseWriter,
	r *http.Request,
) (accountID uuid.UUID, deckID *uuid.UUID, days int, ok bool) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid account ID"})
		return uuid.Nil, nil, 0, false
	}

	if raw := r.URL.Query().Get("deck_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid deck ID"})
			return uuid.Nil, nil, 0, false
		}
		deckID = &id
	}

	days = stats.DefaultWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid days parameter"})
			return uuid.Nil, nil, 0, false
		}
		days = parsed
	}

	return accountID, deckID, days, true
}
