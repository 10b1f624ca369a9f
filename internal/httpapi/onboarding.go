package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/omerlevi/horizon/internal/cache"
)

// Draft keys are the fixed set the onboarding screens stage before a plan
// exists. Anything else is rejected rather than silently cached.
var draftKeys = map[string]bool{
	cache.KeyQuestionnaire: true,
	cache.KeyBigRocksOrder: true,
	cache.KeyOnboarding:    true,
}

func draftCacheKey(userID, key string) string {
	return userID + "/" + key
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}
	key := chi.URLParam(r, "key")
	if !draftKeys[key] {
		respondError(w, http.StatusBadRequest, "unknown_draft_key", "unsupported draft key "+key)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	defer r.Body.Close()
	if len(body) == 0 || !json.Valid(body) {
		respondError(w, http.StatusBadRequest, "invalid_body", "draft body must be JSON")
		return
	}

	ttl := s.cfg.DraftTTL
	if raw := strings.TrimSpace(r.URL.Query().Get("ttl")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_ttl", "ttl must be a positive duration")
			return
		}
		ttl = d
	}

	s.drafts.Save(draftCacheKey(userID, key), body, ttl)
	s.metrics.DraftOps.WithLabelValues("save", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"key":        key,
		"expires_at": time.Now().UTC().Add(ttl),
	})
}

func (s *Server) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}
	key := chi.URLParam(r, "key")
	if !draftKeys[key] {
		respondError(w, http.StatusBadRequest, "unknown_draft_key", "unsupported draft key "+key)
		return
	}

	value, ok := s.drafts.Load(draftCacheKey(userID, key))
	if !ok {
		// Absence (including lazy TTL eviction) is not an error condition.
		s.metrics.DraftOps.WithLabelValues("load", "miss").Inc()
		respondError(w, http.StatusNotFound, "draft_not_found", "no draft for key "+key)
		return
	}
	s.metrics.DraftOps.WithLabelValues("load", "hit").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

func (s *Server) handleClearDrafts(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}
	for key := range draftKeys {
		s.drafts.Delete(draftCacheKey(userID, key))
	}
	s.metrics.DraftOps.WithLabelValues("clear", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
