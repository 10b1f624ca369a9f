package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/omerlevi/horizon/internal/ai"
	"github.com/omerlevi/horizon/internal/interview"
	"github.com/omerlevi/horizon/internal/observability"
	"github.com/omerlevi/horizon/internal/store"
)

// promauto registers on the process-global registry, so every test gets its
// own namespace.
var metricsSeq atomic.Int64

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_conversation_%d", metricsSeq.Add(1)))
}

// fakeAdapter returns scripted replies in order and records every request.
type fakeAdapter struct {
	mu       sync.Mutex
	requests []ai.ChatRequest
	replies  []string
	err      error
}

func (f *fakeAdapter) Complete(_ context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return ai.ChatResponse{}, f.err
	}
	if len(f.replies) == 0 {
		return ai.ChatResponse{Text: "בסדר, ספר לי עוד."}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return ai.ChatResponse{Text: reply}, nil
}

func (f *fakeAdapter) calls() []ai.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.ChatRequest(nil), f.requests...)
}

const finalReply = `**[חלק 1: נרטיב אישי]**
אני חי חיים שבחרתי בעצמי.

**[חלק 2: Vision Board תפעולי]**

**[קריירה]**
- תמונת מצב: עובד על מה שחשוב לי
- פעולה 1: שיחת לקוח שבועית
- שגרה קבועה: שעת כתיבה כל בוקר

**[בריאות]**
- תמונת מצב: גוף חזק ויציב
- פעולה 1: אימון שלוש פעמים בשבוע`

func newTestOrchestrator(adapter ai.Adapter) (*Orchestrator, store.VisionStore) {
	visions := store.NewInMemory().Visions()
	return NewOrchestrator(visions, adapter, newTestMetrics()), visions
}

func TestFreshSessionGreeting(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeAdapter{})

	s, err := o.Session(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Session error = %v", err)
	}
	if s.Phase != interview.PhasePersonalization {
		t.Fatalf("phase = %v, want personalization", s.Phase)
	}
	if len(s.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(s.Messages))
	}
	greeting := s.Messages[0]
	if greeting.Role != interview.RoleAssistant {
		t.Fatalf("greeting role = %v", greeting.Role)
	}
	if greeting.Content != interview.PersonalizationPrompt {
		t.Fatalf("greeting = %q", greeting.Content)
	}
}

func TestPersonalizationTurn(t *testing.T) {
	adapter := &fakeAdapter{replies: []string{"נעים מאוד יואב! איפה אתה רואה את עצמך בעוד 3 שנים?"}}
	o, visions := newTestOrchestrator(adapter)

	ctx := context.Background()
	s, err := o.Session(ctx, "user-1")
	if err != nil {
		t.Fatalf("Session error = %v", err)
	}

	res, err := o.SendMessage(ctx, s, "אני יואב, בזכר")
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}

	if s.UserName != "יואב" || s.UserGender != interview.GenderMale {
		t.Fatalf("personalization = %q/%q", s.UserName, s.UserGender)
	}
	if res.Phase != interview.PhaseNarrative {
		t.Fatalf("phase = %v, want narrative", res.Phase)
	}
	if res.Completed {
		t.Fatalf("Completed = true after first turn")
	}

	calls := adapter.calls()
	if len(calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(calls))
	}
	// The opening call carries the system prompt plus one synthetic
	// declaration turn, not the raw introduction text.
	msgs := calls[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("opening call messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "יואב") {
		t.Fatalf("system message = %+v", msgs[0])
	}
	if msgs[1] != (ai.ChatMessage{Role: "user", Content: interview.IntroductionTurn("יואב", interview.GenderMale)}) {
		t.Fatalf("declaration turn = %+v", msgs[1])
	}

	v, err := visions.LatestByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("LatestByUser error = %v", err)
	}
	if v.Phase != interview.PhaseNarrative || v.UserName != "יואב" {
		t.Fatalf("persisted vision = phase %v name %q", v.Phase, v.UserName)
	}
	if len(v.ConversationHistory) != 3 {
		t.Fatalf("persisted history length = %d, want 3", len(v.ConversationHistory))
	}
}

func TestPersonalizationReask(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _ := newTestOrchestrator(adapter)

	ctx := context.Background()
	s, _ := o.Session(ctx, "user-1")

	res, err := o.SendMessage(ctx, s, "בזכר")
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	if res.Reply.Content != interview.RetryPersonalizationPrompt {
		t.Fatalf("reply = %q, want re-ask", res.Reply.Content)
	}
	if res.Phase != interview.PhasePersonalization {
		t.Fatalf("phase = %v, want personalization", res.Phase)
	}
	if len(adapter.calls()) != 0 {
		t.Fatalf("gateway calls = %d, want 0", len(adapter.calls()))
	}
}

func TestRateLimitContainedInBand(t *testing.T) {
	adapter := &fakeAdapter{replies: []string{"נעים מאוד!"}}
	o, _ := newTestOrchestrator(adapter)

	ctx := context.Background()
	s, _ := o.Session(ctx, "user-1")
	if _, err := o.SendMessage(ctx, s, "אני דנה, בנקבה"); err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}

	adapter.mu.Lock()
	adapter.err = &ai.StatusError{Status: 429, Message: "rate limit"}
	adapter.mu.Unlock()

	res, err := o.SendMessage(ctx, s, "אני רוצה לדבר על קריירה")
	if err != nil {
		t.Fatalf("SendMessage error = %v, want contained failure", err)
	}
	if res.Reply.Content != rateLimitReply {
		t.Fatalf("reply = %q, want rate-limit apology", res.Reply.Content)
	}
	if res.Phase != interview.PhaseNarrative {
		t.Fatalf("phase = %v, want unchanged narrative", res.Phase)
	}

	// The guard must be released for the retry.
	adapter.mu.Lock()
	adapter.err = errors.New("connection refused")
	adapter.mu.Unlock()
	res, err = o.SendMessage(ctx, s, "ננסה שוב")
	if err != nil {
		t.Fatalf("retry SendMessage error = %v", err)
	}
	if res.Reply.Content != errorReply {
		t.Fatalf("reply = %q, want generic apology", res.Reply.Content)
	}
}

func TestCompletionExtractsOutput(t *testing.T) {
	adapter := &fakeAdapter{replies: []string{"נעים מאוד!", finalReply}}
	o, visions := newTestOrchestrator(adapter)

	ctx := context.Background()
	s, _ := o.Session(ctx, "user-1")
	if _, err := o.SendMessage(ctx, s, "אני דנה, בנקבה"); err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}

	res, err := o.SendMessage(ctx, s, "כן, זה מדויק")
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	if !res.Completed || res.Phase != interview.PhaseComplete {
		t.Fatalf("Completed = %v phase = %v, want complete", res.Completed, res.Phase)
	}
	if res.Progress != 100 {
		t.Fatalf("progress = %d, want 100", res.Progress)
	}
	if res.Output == nil {
		t.Fatalf("Output = nil on completion")
	}
	if len(res.Output.Tiles) != 2 {
		t.Fatalf("tiles = %d, want 2", len(res.Output.Tiles))
	}
	if !strings.Contains(res.Output.Narrative, "חיים שבחרתי") {
		t.Fatalf("narrative = %q", res.Output.Narrative)
	}

	v, err := visions.LatestByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("LatestByUser error = %v", err)
	}
	if !v.IsComplete {
		t.Fatalf("persisted IsComplete = false")
	}
	wantGoals := []string{"קריירה", "בריאות"}
	if len(v.Goals) != len(wantGoals) || v.Goals[0] != wantGoals[0] || v.Goals[1] != wantGoals[1] {
		t.Fatalf("persisted goals = %v, want %v", v.Goals, wantGoals)
	}
}

// blockingAdapter parks inside Complete until released, holding a turn
// in flight so readers can be exercised against it.
type blockingAdapter struct {
	entered chan struct{}
	release chan struct{}
}

func (a *blockingAdapter) Complete(_ context.Context, _ ai.ChatRequest) (ai.ChatResponse, error) {
	close(a.entered)
	<-a.release
	return ai.ChatResponse{Text: "נעים מאוד!"}, nil
}

func TestSnapshotDuringInFlightTurn(t *testing.T) {
	adapter := &blockingAdapter{entered: make(chan struct{}), release: make(chan struct{})}
	o, _ := newTestOrchestrator(adapter)

	ctx := context.Background()
	s, _ := o.Session(ctx, "user-1")

	done := make(chan TurnResult, 1)
	go func() {
		res, err := o.SendMessage(ctx, s, "אני יואב, בזכר")
		if err != nil {
			t.Errorf("SendMessage error = %v", err)
		}
		done <- res
	}()
	<-adapter.entered

	// The turn is parked inside the gateway call; snapshots taken now must
	// see the optimistic user append and the parsed name, with the phase not
	// yet advanced.
	snap := s.Snapshot()
	if snap.Phase != interview.PhasePersonalization {
		t.Fatalf("mid-turn phase = %v, want personalization", snap.Phase)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("mid-turn messages = %d, want 2", len(snap.Messages))
	}
	if snap.UserName != "יואב" {
		t.Fatalf("mid-turn name = %q", snap.UserName)
	}

	close(adapter.release)
	res := <-done
	if res.Phase != interview.PhaseNarrative {
		t.Fatalf("final phase = %v, want narrative", res.Phase)
	}

	after := s.Snapshot()
	if len(after.Messages) != 3 {
		t.Fatalf("final messages = %d, want 3", len(after.Messages))
	}
	// Snapshots are copies; mutating one must not touch the live session.
	after.Messages[0].Content = "changed"
	if got := s.Snapshot().Messages[0].Content; got == "changed" {
		t.Fatalf("snapshot aliases live session messages")
	}
}

func TestSendMessageValidation(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeAdapter{})
	ctx := context.Background()
	s, _ := o.Session(ctx, "user-1")

	if _, err := o.SendMessage(ctx, s, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("blank input error = %v, want ErrEmptyMessage", err)
	}

	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()
	if _, err := o.SendMessage(ctx, s, "שלום"); !errors.Is(err, ErrBusy) {
		t.Fatalf("in-flight error = %v, want ErrBusy", err)
	}
}

func TestSessionRestoresCompletedVision(t *testing.T) {
	visions := store.NewInMemory().Visions()
	id, err := visions.Insert(context.Background(), store.Vision{
		UserID:   "user-1",
		Goals:    []string{"קריירה"},
		Phase:    interview.PhaseNarrative, // stale phase, goals win
		UserName: "דנה",
	})
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}

	o := NewOrchestrator(visions, &fakeAdapter{}, newTestMetrics())
	s, err := o.Session(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Session error = %v", err)
	}
	if s.Phase != interview.PhaseComplete {
		t.Fatalf("restored phase = %v, want complete", s.Phase)
	}
	if s.VisionID != id {
		t.Fatalf("restored vision id = %q, want %q", s.VisionID, id)
	}
	if !s.HasExistingVision {
		t.Fatalf("HasExistingVision = false")
	}
}

func TestResetStartsOver(t *testing.T) {
	adapter := &fakeAdapter{replies: []string{"נעים מאוד!"}}
	o, visions := newTestOrchestrator(adapter)

	ctx := context.Background()
	s, _ := o.Session(ctx, "user-1")
	if _, err := o.SendMessage(ctx, s, "אני יואב, בזכר"); err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	oldID := s.VisionID
	if oldID == "" {
		t.Fatalf("no vision persisted before reset")
	}

	fresh := o.Reset("user-1")
	if fresh.Phase != interview.PhasePersonalization {
		t.Fatalf("reset phase = %v", fresh.Phase)
	}
	if fresh.VisionID != "" {
		t.Fatalf("reset vision id = %q, want empty", fresh.VisionID)
	}
	if len(fresh.Messages) != 1 || fresh.Messages[0].Content != interview.PersonalizationPrompt {
		t.Fatalf("reset messages = %+v", fresh.Messages)
	}

	// Session must hand back the fresh state, not reload the old record.
	again, err := o.Session(ctx, "user-1")
	if err != nil {
		t.Fatalf("Session error = %v", err)
	}
	if again != fresh {
		t.Fatalf("Session returned a different session after reset")
	}

	// The old record survives as history.
	if _, err := visions.LatestByUser(ctx, "user-1"); err != nil {
		t.Fatalf("old vision lost: %v", err)
	}
}
