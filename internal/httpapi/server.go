package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/omerlevi/horizon/internal/cache"
	"github.com/omerlevi/horizon/internal/config"
	"github.com/omerlevi/horizon/internal/conversation"
	"github.com/omerlevi/horizon/internal/observability"
	"github.com/omerlevi/horizon/internal/store"
)

type Server struct {
	cfg          config.Config
	orchestrator *conversation.Orchestrator
	stores       store.Store
	drafts       *cache.Cache
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, orchestrator *conversation.Orchestrator, stores store.Store, drafts *cache.Cache, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		stores:       stores,
		drafts:       drafts,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Non-browser clients
				// often omit Origin; allow them.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/vision", s.handleGetVision)
	r.Post("/v1/vision/messages", s.handleSendMessage)
	r.Post("/v1/vision/save", s.handleSaveVision)
	r.Post("/v1/vision/restart", s.handleRestartVision)
	r.Get("/v1/vision/ws", s.handleVisionWS)

	r.Put("/v1/onboarding/draft/{key}", s.handleSaveDraft)
	r.Get("/v1/onboarding/draft/{key}", s.handleLoadDraft)
	r.Delete("/v1/onboarding/draft", s.handleClearDrafts)

	r.Post("/v1/plans", s.handleCreatePlan)
	r.Get("/v1/plans/active", s.handleActivePlan)
	r.Put("/v1/plans/{id}/checks", s.handleUpsertCheck)
	r.Get("/v1/plans/{id}/checks", s.handleListChecks)
	r.Get("/v1/plans/{id}/summary", s.handlePlanSummary)

	r.Post("/v1/feedback/requests", s.handleCreateFeedbackRequest)
	r.Get("/v1/feedback/{token}", s.handleGetFeedbackForm)
	r.Post("/v1/feedback/{token}/responses", s.handleSubmitFeedback)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, Code: code})
}

// userIDParam reads the user identity from the query string. Authentication
// itself is delegated to the fronting auth provider; by the time requests
// reach this service the identity is trusted.
func userIDParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}
