package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omerlevi/horizon/internal/store"
)

type createFeedbackRequest struct {
	UserID      string `json:"user_id"`
	ManagerName string `json:"manager_name"`
}

func (s *Server) handleCreateFeedbackRequest(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	record := store.FeedbackRequest{
		UserID:      req.UserID,
		ManagerName: strings.TrimSpace(req.ManagerName),
		Token:       uuid.NewString(),
		ExpiresAt:   time.Now().UTC().Add(s.cfg.FeedbackLinkTTL),
	}
	id, err := s.stores.Feedback().InsertRequest(r.Context(), record)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "feedback_create_failed", err.Error())
		return
	}
	record.ID = id
	s.metrics.FeedbackEvents.WithLabelValues("request_created").Inc()
	respondJSON(w, http.StatusCreated, record)
}

// feedbackForm is the public view of a request. It exposes only what an
// anonymous respondent needs; the user id stays private.
type feedbackForm struct {
	ManagerName string    `json:"manager_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Server) handleGetFeedbackForm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	req, err := s.stores.Feedback().RequestByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "feedback_not_found", "unknown feedback link")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "feedback_load_failed", err.Error())
		return
	}
	if req.Expired(time.Now().UTC()) {
		s.metrics.FeedbackEvents.WithLabelValues("link_expired").Inc()
		respondError(w, http.StatusGone, "feedback_expired", "this feedback link has expired")
		return
	}
	respondJSON(w, http.StatusOK, feedbackForm{ManagerName: req.ManagerName, ExpiresAt: req.ExpiresAt})
}

type submitFeedbackRequest struct {
	Ratings      map[string]int `json:"ratings"`
	OpenFeedback string         `json:"open_feedback"`
	Strengths    string         `json:"strengths"`
	Improvements string         `json:"improvements"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req submitFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	for q, v := range req.Ratings {
		if v < 1 || v > 5 {
			respondError(w, http.StatusBadRequest, "invalid_rating", "rating for "+q+" must be 1-5")
			return
		}
	}

	request, err := s.stores.Feedback().RequestByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "feedback_not_found", "unknown feedback link")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "feedback_load_failed", err.Error())
		return
	}
	if request.Expired(time.Now().UTC()) {
		s.metrics.FeedbackEvents.WithLabelValues("link_expired").Inc()
		respondError(w, http.StatusGone, "feedback_expired", "this feedback link has expired")
		return
	}

	// Responses are anonymous: only the request linkage is stored.
	if _, err := s.stores.Feedback().InsertResponse(r.Context(), store.FeedbackResponse{
		RequestID:    request.ID,
		Ratings:      req.Ratings,
		OpenFeedback: req.OpenFeedback,
		Strengths:    req.Strengths,
		Improvements: req.Improvements,
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "feedback_save_failed", err.Error())
		return
	}
	s.metrics.FeedbackEvents.WithLabelValues("response_submitted").Inc()
	respondJSON(w, http.StatusCreated, map[string]any{"submitted": true})
}
