package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/omerlevi/horizon/internal/conversation"
	"github.com/omerlevi/horizon/internal/interview"
)

type visionState struct {
	VisionID          string              `json:"vision_id,omitempty"`
	HasExistingVision bool                `json:"has_existing_vision"`
	Messages          []interview.Message `json:"messages"`
	Phase             interview.Phase     `json:"phase"`
	Progress          int                 `json:"progress"`
	IsComplete        bool                `json:"is_complete"`
	UserName          string              `json:"user_name,omitempty"`
	UserGender        interview.Gender    `json:"user_gender,omitempty"`
	Narrative         string              `json:"narrative,omitempty"`
	Tiles             []interview.Tile    `json:"tiles,omitempty"`
}

// stateOf renders a session snapshot; handlers never read live session
// fields, a turn may be mutating them concurrently.
func stateOf(st conversation.SessionState) visionState {
	return visionState{
		VisionID:          st.VisionID,
		HasExistingVision: st.HasExistingVision,
		Messages:          st.Messages,
		Phase:             st.Phase,
		Progress:          st.Progress(),
		IsComplete:        st.Phase == interview.PhaseComplete,
		UserName:          st.UserName,
		UserGender:        st.UserGender,
		Narrative:         st.Narrative,
		Tiles:             st.Tiles,
	}
}

func (s *Server) handleGetVision(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}

	sess, err := s.orchestrator.Session(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "vision_load_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stateOf(sess.Snapshot()))
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	Reply     interview.Message `json:"reply"`
	Phase     interview.Phase   `json:"phase"`
	Progress  int               `json:"progress"`
	Completed bool              `json:"completed"`
	Narrative string            `json:"narrative,omitempty"`
	Tiles     []interview.Tile  `json:"tiles,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	sess, err := s.orchestrator.Session(r.Context(), req.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "vision_load_failed", err.Error())
		return
	}

	res, err := s.orchestrator.SendMessage(r.Context(), sess, req.Text)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", "text must not be blank")
		return
	case errors.Is(err, conversation.ErrBusy):
		respondError(w, http.StatusConflict, "turn_in_flight", "a turn is already being processed")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	out := sendMessageResponse{
		Reply:     res.Reply,
		Phase:     res.Phase,
		Progress:  res.Progress,
		Completed: res.Completed,
	}
	if res.Output != nil {
		out.Narrative = res.Output.Narrative
		out.Tiles = res.Output.Tiles
	}
	respondJSON(w, http.StatusOK, out)
}

type saveVisionRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleSaveVision(w http.ResponseWriter, r *http.Request) {
	var req saveVisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	sess, err := s.orchestrator.Session(r.Context(), req.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "vision_load_failed", err.Error())
		return
	}
	if err := s.orchestrator.Save(r.Context(), sess); err != nil {
		respondError(w, http.StatusInternalServerError, "vision_save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"vision_id": sess.Snapshot().VisionID, "saved": true})
}

// handleRestartVision drops the in-memory session so the next load starts a
// fresh interview. This is the UI-level "edit" reset; it never rewinds the
// phase of a persisted record.
func (s *Server) handleRestartVision(w http.ResponseWriter, r *http.Request) {
	var req saveVisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	sess := s.orchestrator.Reset(req.UserID)
	respondJSON(w, http.StatusOK, stateOf(sess.Snapshot()))
}
