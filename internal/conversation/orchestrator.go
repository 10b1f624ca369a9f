// Package conversation owns the vision-interview state machine: conversation
// history, phase progression, gateway calls, and persistence of progress.
package conversation

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/omerlevi/horizon/internal/ai"
	"github.com/omerlevi/horizon/internal/interview"
	"github.com/omerlevi/horizon/internal/observability"
	"github.com/omerlevi/horizon/internal/store"
)

// In-band assistant messages for contained failures. Errors surface inside
// the conversation thread, not as transport errors.
const (
	errorReply     = `מצטער, הייתה שגיאה. אפשר לנסות שוב?`
	rateLimitReply = `נראה שיש עומס רגעי על השירות. אפשר לנסות שוב בעוד רגע?`
)

// ErrBusy is returned when a turn is already in flight for the session. The
// second call is dropped, not queued.
var ErrBusy = errors.New("interview turn already in flight")

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("empty message")

// Session is the in-memory interview state for one user. All mutation goes
// through the Orchestrator under mu; concurrent readers must go through
// Snapshot.
type Session struct {
	UserID            string
	Messages          []interview.Message
	Phase             interview.Phase
	VisionID          string
	HasExistingVision bool
	UserName          string
	UserGender        interview.Gender
	Narrative         string
	Tiles             []interview.Tile

	mu       sync.Mutex
	inFlight bool
}

// SessionState is a point-in-time copy of a session. Handlers read it freely
// while a turn is still in flight.
type SessionState struct {
	UserID            string
	VisionID          string
	HasExistingVision bool
	Messages          []interview.Message
	Phase             interview.Phase
	UserName          string
	UserGender        interview.Gender
	Narrative         string
	Tiles             []interview.Tile
}

// Progress returns the presentational 0-100 progress value.
func (st SessionState) Progress() int {
	return interview.Progress(st.Phase, len(st.Messages))
}

// Snapshot clones the session under its lock. The messages and tiles slices
// are copied so the caller never aliases state a concurrent turn appends to.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		UserID:            s.UserID,
		VisionID:          s.VisionID,
		HasExistingVision: s.HasExistingVision,
		Messages:          append([]interview.Message(nil), s.Messages...),
		Phase:             s.Phase,
		UserName:          s.UserName,
		UserGender:        s.UserGender,
		Narrative:         s.Narrative,
		Tiles:             append([]interview.Tile(nil), s.Tiles...),
	}
}

// TurnResult is the outcome of one SendMessage call. A contained gateway
// failure still yields a normal result whose Reply is the apology turn.
type TurnResult struct {
	Reply     interview.Message
	Phase     interview.Phase
	Progress  int
	Completed bool
	Output    *interview.Output
}

// Orchestrator drives interviews for all users. It keeps one Session per
// user, calls the AI gateway, detects phase transitions, extracts the final
// output, and auto-saves progress after every exchange.
type Orchestrator struct {
	visions store.VisionStore
	adapter ai.Adapter
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewOrchestrator(visions store.VisionStore, adapter ai.Adapter, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		visions:  visions,
		adapter:  adapter,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Session returns the in-memory session for userID, loading persisted state
// on first access. A fresh user gets the personalization greeting as the
// opening assistant turn.
func (o *Orchestrator) Session(ctx context.Context, userID string) (*Session, error) {
	o.mu.Lock()
	if s, ok := o.sessions[userID]; ok {
		o.mu.Unlock()
		return s, nil
	}
	o.mu.Unlock()

	s, err := o.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	// Another request may have loaded concurrently; keep the first.
	if existing, ok := o.sessions[userID]; ok {
		return existing, nil
	}
	o.sessions[userID] = s
	return s, nil
}

// Reset replaces the user's session with a fresh personalization greeting.
// This is the UI-level restart: the old persisted vision stays as history and
// the next auto-save inserts a new record, which then becomes the latest.
func (o *Orchestrator) Reset(userID string) *Session {
	s := &Session{
		UserID: userID,
		Phase:  interview.PhasePersonalization,
		Messages: []interview.Message{{
			Role:      interview.RoleAssistant,
			Content:   interview.PersonalizationPrompt,
			Timestamp: o.now().UTC(),
		}},
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[userID] = s
	return s
}

func (o *Orchestrator) load(ctx context.Context, userID string) (*Session, error) {
	v, err := o.visions.LatestByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		s := &Session{
			UserID: userID,
			Phase:  interview.PhasePersonalization,
			Messages: []interview.Message{{
				Role:      interview.RoleAssistant,
				Content:   interview.PersonalizationPrompt,
				Timestamp: o.now().UTC(),
			}},
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	s := &Session{
		UserID:            userID,
		VisionID:          v.ID,
		HasExistingVision: true,
		Messages:          v.ConversationHistory,
		Narrative:         v.Narrative,
		UserName:          v.UserName,
		UserGender:        v.UserGender,
		Phase:             restoredPhase(v),
	}
	return s, nil
}

// restoredPhase trusts the stored phase when it is a known value, and forces
// complete whenever goals were already extracted.
func restoredPhase(v store.Vision) interview.Phase {
	if len(v.Goals) > 0 {
		return interview.PhaseComplete
	}
	switch v.Phase {
	case interview.PhasePersonalization, interview.PhaseNarrative,
		interview.PhaseClustering, interview.PhaseHardening, interview.PhaseComplete:
		return v.Phase
	default:
		return interview.PhasePersonalization
	}
}

// SendMessage runs one interview turn: append the user message, route it
// through the personalization or interview branch, and auto-save. Gateway
// failures are contained as an in-band apology turn with the phase unchanged.
// Blank input returns ErrEmptyMessage; a turn already in flight returns
// ErrBusy.
func (o *Orchestrator) SendMessage(ctx context.Context, s *Session, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	started := o.now()

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return TurnResult{}, ErrBusy
	}
	s.inFlight = true
	s.Messages = append(s.Messages, interview.Message{
		Role:      interview.RoleUser,
		Content:   text,
		Timestamp: started.UTC(),
	})
	phase := s.Phase
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	var reply interview.Message
	if phase == interview.PhasePersonalization {
		reply = o.personalizationTurn(ctx, s, text)
	} else {
		reply = o.interviewTurn(ctx, s)
	}

	s.mu.Lock()
	s.Messages = append(s.Messages, reply)
	res := TurnResult{
		Reply:     reply,
		Phase:     s.Phase,
		Progress:  interview.Progress(s.Phase, len(s.Messages)),
		Completed: s.Phase == interview.PhaseComplete,
	}
	if res.Completed {
		res.Output = &interview.Output{
			Narrative: s.Narrative,
			Tiles:     append([]interview.Tile(nil), s.Tiles...),
		}
	}
	s.mu.Unlock()

	o.persistBestEffort(ctx, s)
	o.metrics.ObserveTurnLatency(o.now().Sub(started))
	return res, nil
}

// personalizationTurn parses the introduction and, on success, opens the
// interview with the full system prompt. An unparsable introduction yields a
// static re-ask with the phase unchanged.
func (o *Orchestrator) personalizationTurn(ctx context.Context, s *Session, text string) interview.Message {
	name, gender, ok := interview.ParsePersonalization(text)
	if !ok {
		o.metrics.InterviewTurns.WithLabelValues("reask").Inc()
		return o.assistantMessage(interview.RetryPersonalizationPrompt)
	}

	s.mu.Lock()
	s.UserName = name
	s.UserGender = gender
	s.mu.Unlock()

	systemPrompt := interview.BuildSystemPrompt(name, gender)
	// The opening call sends a single synthetic declaration turn, not the raw
	// introduction: the prompt already carries everything the model needs.
	resp, err := o.adapter.Complete(ctx, ai.ChatRequest{
		UserID: s.UserID,
		Messages: []ai.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: interview.IntroductionTurn(name, gender)},
		},
	})
	if err != nil {
		return o.containGatewayFailure(err)
	}

	s.mu.Lock()
	s.Phase = interview.PhaseNarrative
	s.mu.Unlock()
	o.metrics.PhaseTransitions.WithLabelValues(string(interview.PhaseNarrative)).Inc()
	o.metrics.InterviewTurns.WithLabelValues("ok").Inc()
	return o.assistantMessage(resp.Text)
}

// interviewTurn sends the full history with the system prompt, detects phase
// transitions from the reply, and extracts the final output on completion.
func (o *Orchestrator) interviewTurn(ctx context.Context, s *Session) interview.Message {
	st := s.Snapshot()
	req := ai.ChatRequest{UserID: st.UserID}
	if st.UserName != "" && st.UserGender != "" {
		req.Messages = append(req.Messages, ai.ChatMessage{
			Role:    "system",
			Content: interview.BuildSystemPrompt(st.UserName, st.UserGender),
		})
	}
	for _, m := range st.Messages {
		req.Messages = append(req.Messages, ai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := o.adapter.Complete(ctx, req)
	if err != nil {
		return o.containGatewayFailure(err)
	}

	next := interview.DetectPhase(st.Phase, resp.Text)
	if next != st.Phase {
		o.metrics.PhaseTransitions.WithLabelValues(string(next)).Inc()
	}

	s.mu.Lock()
	if next == interview.PhaseComplete && s.Phase != interview.PhaseComplete {
		out := interview.Extract(resp.Text)
		s.Narrative = out.Narrative
		s.Tiles = out.Tiles
	}
	s.Phase = next
	s.mu.Unlock()

	o.metrics.InterviewTurns.WithLabelValues("ok").Inc()
	return o.assistantMessage(resp.Text)
}

// containGatewayFailure converts a gateway error into an in-band assistant
// apology. The phase never changes and the user message stays in history.
func (o *Orchestrator) containGatewayFailure(err error) interview.Message {
	kind := "transport"
	text := errorReply
	if ai.IsRateLimited(err) {
		kind = "rate_limited"
		text = rateLimitReply
	} else {
		var se *ai.StatusError
		if errors.As(err, &se) {
			kind = "http"
		}
	}
	o.metrics.GatewayErrors.WithLabelValues(kind).Inc()
	o.metrics.InterviewTurns.WithLabelValues("gateway_error").Inc()
	log.Printf("interview gateway call failed: %v", err)
	return o.assistantMessage(text)
}

func (o *Orchestrator) assistantMessage(text string) interview.Message {
	return interview.Message{
		Role:      interview.RoleAssistant,
		Content:   text,
		Timestamp: o.now().UTC(),
	}
}

// Save persists the session state without sending a message. Used when the
// user accepts the summary or navigates away; callers await the error.
func (o *Orchestrator) Save(ctx context.Context, s *Session) error {
	return o.persist(ctx, s)
}

// persistBestEffort saves progress after a turn. A failed save is logged and
// counted but never rolls back in-memory state; the user keeps chatting.
func (o *Orchestrator) persistBestEffort(ctx context.Context, s *Session) {
	if err := o.persist(ctx, s); err != nil {
		o.metrics.VisionSaves.WithLabelValues("error").Inc()
		log.Printf("vision save failed for user %s: %v", s.UserID, err)
		return
	}
	o.metrics.VisionSaves.WithLabelValues("ok").Inc()
}

func (o *Orchestrator) persist(ctx context.Context, s *Session) error {
	st := s.Snapshot()
	goals := make([]string, 0, len(st.Tiles))
	for _, t := range st.Tiles {
		goals = append(goals, t.Name)
	}

	v := store.Vision{
		ID:                  st.VisionID,
		UserID:              st.UserID,
		ConversationHistory: st.Messages,
		Goals:               goals,
		Narrative:           st.Narrative,
		Phase:               st.Phase,
		UserName:            st.UserName,
		UserGender:          st.UserGender,
		IsComplete:          st.Phase == interview.PhaseComplete,
	}

	if st.VisionID == "" {
		id, err := o.visions.Insert(ctx, v)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.VisionID = id
		s.mu.Unlock()
		return nil
	}
	return o.visions.Update(ctx, v)
}
