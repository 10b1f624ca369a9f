package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/omerlevi/horizon/internal/interview"
	"github.com/omerlevi/horizon/internal/protocol"
)

func readEvent(t *testing.T, conn *websocket.Conn) (protocol.Envelope, []byte) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope %q: %v", data, err)
	}
	return env, data
}

func TestVisionWebSocket(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/vision/ws?user_id=user-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The greeting is replayed on connect.
	env, data := readEvent(t, conn)
	if env.Type != protocol.TypeAssistantMessage {
		t.Fatalf("first event = %q, want assistant_message", env.Type)
	}
	var greeting protocol.AssistantMessage
	if err := json.Unmarshal(data, &greeting); err != nil {
		t.Fatalf("decode greeting: %v", err)
	}
	if greeting.Phase != string(interview.PhasePersonalization) {
		t.Fatalf("greeting phase = %q", greeting.Phase)
	}
	if greeting.Text != interview.PersonalizationPrompt {
		t.Fatalf("greeting text = %q", greeting.Text)
	}

	// An introduction advances to the narrative phase: assistant_message
	// followed by phase_changed.
	if err := conn.WriteJSON(protocol.UserMessage{Type: protocol.TypeUserMessage, Text: "אני יואב, בזכר"}); err != nil {
		t.Fatalf("write user_message: %v", err)
	}
	env, data = readEvent(t, conn)
	if env.Type != protocol.TypeAssistantMessage {
		t.Fatalf("turn event = %q, want assistant_message", env.Type)
	}
	var reply protocol.AssistantMessage
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Phase != string(interview.PhaseNarrative) || reply.Text == "" {
		t.Fatalf("reply = %+v", reply)
	}
	env, _ = readEvent(t, conn)
	if env.Type != protocol.TypePhaseChanged {
		t.Fatalf("follow-up event = %q, want phase_changed", env.Type)
	}

	// Server-only types coming from the client are rejected in-band.
	if err := conn.WriteJSON(protocol.PhaseChanged{Type: protocol.TypePhaseChanged, Phase: "complete"}); err != nil {
		t.Fatalf("write bogus envelope: %v", err)
	}
	env, data = readEvent(t, conn)
	if env.Type != protocol.TypeErrorEvent {
		t.Fatalf("bogus envelope event = %q, want error_event", env.Type)
	}
	var errEvent protocol.ErrorEvent
	if err := json.Unmarshal(data, &errEvent); err != nil {
		t.Fatalf("decode error event: %v", err)
	}
	if errEvent.Code != "unsupported_message_type" {
		t.Fatalf("error code = %q", errEvent.Code)
	}

	// Explicit save acks with the current phase.
	if err := conn.WriteJSON(protocol.SaveVision{Type: protocol.TypeSaveVision}); err != nil {
		t.Fatalf("write save_vision: %v", err)
	}
	env, _ = readEvent(t, conn)
	if env.Type != protocol.TypePhaseChanged {
		t.Fatalf("save ack = %q, want phase_changed", env.Type)
	}
}
