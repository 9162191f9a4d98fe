package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/api/handlers"
	custommiddleware "github.com/whalewatch/whale-watcher/internal/api/middleware"
	"github.com/whalewatch/whale-watcher/internal/config"
	"github.com/whalewatch/whale-watcher/internal/service"
)

// NewRouter creates and configures the HTTP router for the read-only
// query API.
func NewRouter(
	db *sql.DB,
	filerService *service.FilerService,
	changeService *service.PositionChangeService,
	cfg *config.Config,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.NewCORS(cfg.Server.CORSOrigins))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
		})

		filerHandler := handlers.NewFilerHandler(filerService)
		changeHandler := handlers.NewPositionChangeHandler(changeService)

		r.Route("/filers", func(r chi.Router) {
			r.Get("/", filerHandler.Filers)
			r.Get("/{cik}", filerHandler.Filer)
			r.Get("/{cik}/filings", filerHandler.Filings)
			r.Get("/{cik}/changes", changeHandler.ChangesByFiler)
			r.Get("/{cik}/changes/top", changeHandler.TopMovers)
		})

		r.Route("/filings", func(r chi.Router) {
			r.Get("/{id}/holdings", filerHandler.Holdings)
			r.Get("/{id}/changes", changeHandler.ChangesByFiling)
		})
	})

	return r
}
