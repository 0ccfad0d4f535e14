// Package api exposes the posting engine and report queries over HTTP. The
// transport is deliberately thin: handlers parse, call the engine, and map
// errors to statuses.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/reports"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// Server holds the handler dependencies.
type Server struct {
	engine   *engine.Engine
	reports  *reports.Service
	cows     herd.Repository
	journal  ledger.Repository
	settings settings.Repository
	log      zerolog.Logger
}

// Options configures the router middleware.
type Options struct {
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

// NewServer creates the HTTP server facade.
func NewServer(eng *engine.Engine, reportsSvc *reports.Service, cows herd.Repository, journal ledger.Repository, settingsRepo settings.Repository, log zerolog.Logger) *Server {
	return &Server{
		engine:   eng,
		reports:  reportsSvc,
		cows:     cows,
		journal:  journal,
		settings: settingsRepo,
		log:      log,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", tenantHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.RateLimit > 0 {
		r.Use(rateLimiter(opts.RateLimit, opts.RateBurst))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireTenant)

		r.Route("/cows", func(r chi.Router) {
			r.Post("/", s.handleRegisterCow)
			r.Get("/", s.handleListCows)
			r.Get("/{cowID}", s.handleGetCow)
			r.Post("/{cowID}/acquisition", s.handlePostAcquisition)
			r.Post("/{cowID}/catch-up", s.handleCatchUp)
		})

		r.Route("/dispositions", func(r chi.Router) {
			r.Post("/", s.handleRecordDisposition)
			r.Get("/{dispositionID}", s.handleGetDisposition)
			r.Post("/{dispositionID}/post", s.handlePostDisposition)
			r.Post("/{dispositionID}/reinstate", s.handleReinstateDisposition)
		})

		r.Route("/journal", func(r chi.Router) {
			r.Post("/monthly", s.handlePostMonthly)
			r.Get("/entries/{entryID}", s.handleGetEntry)
			r.Post("/entries/{entryID}/reverse", s.handleReverseEntry)
			r.Get("/processing-log", s.handleProcessingLog)
		})

		r.Route("/process", func(r chi.Router) {
			r.Post("/historical", s.handleProcessHistorical)
			r.Post("/missing-journals", s.handleProcessMissing)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/reconciliation", s.handleReconciliation)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handlePutSettings)
			r.Get("/accounts", s.handleGetAccounts)
			r.Put("/accounts", s.handlePutAccount)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
