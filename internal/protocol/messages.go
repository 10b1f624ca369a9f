// Package protocol defines the websocket envelopes exchanged on the
// interview chat socket.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage      MessageType = "user_message"
	TypeSaveVision       MessageType = "save_vision"
	TypeAssistantMessage MessageType = "assistant_message"
	TypePhaseChanged     MessageType = "phase_changed"
	TypeVisionComplete   MessageType = "vision_complete"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage carries one user turn into the interview.
type UserMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// SaveVision asks the orchestrator to persist current progress without
// sending a turn.
type SaveVision struct {
	Type MessageType `json:"type"`
}

// AssistantMessage carries one assistant reply plus presentation state.
type AssistantMessage struct {
	Type     MessageType `json:"type"`
	Text     string      `json:"text"`
	Phase    string      `json:"phase"`
	Progress int         `json:"progress"`
}

// PhaseChanged announces an interview phase transition.
type PhaseChanged struct {
	Type     MessageType `json:"type"`
	Phase    string      `json:"phase"`
	Progress int         `json:"progress"`
}

// VisionComplete delivers the extracted final output.
type VisionComplete struct {
	Type      MessageType `json:"type"`
	Narrative string      `json:"narrative"`
	Tiles     any         `json:"tiles"`
}

// ErrorEvent reports a handled failure without closing the socket.
type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound client envelope.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid user_message: empty text")
		}
		return msg, nil
	case TypeSaveVision:
		var msg SaveVision
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
