package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/omerlevi/horizon/internal/conversation"
	"github.com/omerlevi/horizon/internal/interview"
	"github.com/omerlevi/horizon/internal/protocol"
)

// handleVisionWS drives the interview over a websocket. The client sends
// user_message / save_vision envelopes; the server responds with assistant
// messages, phase changes, and the final extracted output. Turn processing is
// sequential: one inbound message is handled at a time, matching the
// orchestrator's single in-flight turn rule.
func (s *Server) handleVisionWS(w http.ResponseWriter, r *http.Request) {
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

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writeJSON := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			cancel()
			return false
		}
		return true
	}

	// Replay the latest assistant turn so a reconnecting client resumes
	// mid-interview. Read a snapshot: a REST turn for the same user may be
	// running.
	snap := sess.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		m := snap.Messages[i]
		if m.Role != interview.RoleAssistant {
			continue
		}
		if !writeJSON(protocol.AssistantMessage{
			Type:     protocol.TypeAssistantMessage,
			Text:     m.Content,
			Phase:    string(snap.Phase),
			Progress: snap.Progress(),
		}) {
			return
		}
		break
	}

	conn.SetReadLimit(1 << 20)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			code := "invalid_client_message"
			if errors.Is(err, protocol.ErrUnsupportedType) {
				code = "unsupported_message_type"
			}
			if !writeJSON(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: code, Detail: err.Error()}) {
				return
			}
			continue
		}

		switch msg := parsed.(type) {
		case protocol.UserMessage:
			priorPhase := sess.Snapshot().Phase
			res, err := s.orchestrator.SendMessage(ctx, sess, msg.Text)
			switch {
			case errors.Is(err, conversation.ErrBusy):
				if !writeJSON(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "turn_in_flight", Detail: "a turn is already being processed"}) {
					return
				}
				continue
			case errors.Is(err, conversation.ErrEmptyMessage):
				if !writeJSON(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "empty_message", Detail: "text must not be blank"}) {
					return
				}
				continue
			case err != nil:
				if !writeJSON(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "turn_failed", Detail: err.Error()}) {
					return
				}
				continue
			}

			if !writeJSON(protocol.AssistantMessage{
				Type:     protocol.TypeAssistantMessage,
				Text:     res.Reply.Content,
				Phase:    string(res.Phase),
				Progress: res.Progress,
			}) {
				return
			}
			if res.Phase != priorPhase {
				if !writeJSON(protocol.PhaseChanged{Type: protocol.TypePhaseChanged, Phase: string(res.Phase), Progress: res.Progress}) {
					return
				}
			}
			if res.Completed && res.Output != nil {
				if !writeJSON(protocol.VisionComplete{Type: protocol.TypeVisionComplete, Narrative: res.Output.Narrative, Tiles: res.Output.Tiles}) {
					return
				}
			}

		case protocol.SaveVision:
			if err := s.orchestrator.Save(ctx, sess); err != nil {
				if !writeJSON(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "vision_save_failed", Detail: err.Error()}) {
					return
				}
				continue
			}
			st := sess.Snapshot()
			if !writeJSON(protocol.PhaseChanged{Type: protocol.TypePhaseChanged, Phase: string(st.Phase), Progress: st.Progress()}) {
				return
			}
		}
	}
}
