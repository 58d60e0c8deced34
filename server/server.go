package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"

	"github.com/streamraffle/go-raffle/models"
	"github.com/streamraffle/go-raffle/services"
)

// Server exposes the webhook callback, the live SSE stream, and the
// provisioning/admin collaborator endpoints.
type Server struct {
	httpServer    *http.Server
	verifier      *services.SignatureVerifier
	dispatcher    *services.DispatchService
	sessions      models.SessionRepository
	campaigns     models.CampaignRepository
	hub           models.ConnectionHub
	metricService models.MetricService
	logger        models.Logger
	validator     *validator.Validate
}

func NewServer(
	addr string,
	verifier *services.SignatureVerifier,
	dispatcher *services.DispatchService,
	sessions models.SessionRepository,
	campaigns models.CampaignRepository,
	hub models.ConnectionHub,
	metricService models.MetricService,
	logger models.Logger,
) *Server {
	s := &Server{
		verifier:      verifier,
		dispatcher:    dispatcher,
		sessions:      sessions,
		campaigns:     campaigns,
		hub:           hub,
		metricService: metricService,
		logger:        logger,
		validator:     validator.New(),
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.routes()}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Post("/eventsub/callback", s.handleWebhook)
	r.Get("/live/{channelID}", s.handleLive)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handlePutSession)
		r.Get("/{channelID}", s.handleGetSession)
		r.Delete("/{channelID}", s.handleDeleteSession)
	})
	r.Route("/campaigns/{channelID}", func(r chi.Router) {
		r.Post("/start", s.handleStartCampaign)
		r.Post("/stop", s.handleStopCampaign)
		r.Post("/clear", s.handleClearCampaign)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugw("http: request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}
