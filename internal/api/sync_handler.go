package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/service/health"
)

// SyncResponse reports whether a lazy health sync actually ran. Clients
// re-read their cached aggregates when Synced is true.
type SyncResponse struct {
	Synced bool `json:"synced"`
}

// SyncHandler handles the session-touch endpoint that drives the lazy
// health-sync policy.
type SyncHandler struct {
	synchronizer health.Synchronizer
	logger       *slog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(synchronizer health.Synchronizer, logger *slog.Logger) *SyncHandler {
	if synchronizer == nil {
		panic("synchronizer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncHandler{
		synchronizer: synchronizer,
		logger:       logger.With(slog.String("component", "sync_handler")),
	}
}

// TouchSession handles POST /accounts/{accountID}/sync requests. Called on
// ordinary read access (session or page load); at most one full resync per
// account per local day actually runs.
func (h *SyncHandler) TouchSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid account ID"})
		return
	}

	synced, err := h.synchronizer.MaybeSyncUserHealth(r.Context(), accountID, time.Now().UTC())
	if err != nil {
		log.Error("lazy health sync failed",
			slog.String("error", err.Error()),
			slog.String("account_id", accountID.String()))
		RespondWithError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, SyncResponse{Synced: synced})
}
