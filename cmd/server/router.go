package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnemo-app/mnemo/internal/api"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	statsHandler := api.NewStatsHandler(app.stats, app.logger)
	syncHandler := api.NewSyncHandler(app.synchronizer, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			// Session touch: brings a returning account's health up to date
			// once per local day.
			r.Post("/sync", syncHandler.TouchSession)

			r.Get("/stats/activity", statsHandler.ReviewActivity)
			r.Get("/stats/forecast", statsHandler.DueForecast)
			r.Get("/stats/maturity", statsHandler.MaturityBreakdown)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
