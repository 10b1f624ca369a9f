package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omerlevi/horizon/internal/interview"
)

func TestVisionsLatestByUser(t *testing.T) {
	s := NewInMemory().Visions()
	ctx := context.Background()

	if _, err := s.LatestByUser(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fresh lookup error = %v, want ErrNotFound", err)
	}

	first, err := s.Insert(ctx, Vision{
		UserID:    "user-1",
		Phase:     interview.PhaseNarrative,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	second, err := s.Insert(ctx, Vision{
		UserID:    "user-1",
		Phase:     interview.PhaseComplete,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	if first == second {
		t.Fatalf("duplicate vision ids")
	}

	latest, err := s.LatestByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("LatestByUser error = %v", err)
	}
	if latest.ID != second {
		t.Fatalf("latest id = %q, want %q", latest.ID, second)
	}
}

func TestVisionsUpdate(t *testing.T) {
	s := NewInMemory().Visions()
	ctx := context.Background()

	id, err := s.Insert(ctx, Vision{UserID: "user-1", Phase: interview.PhaseNarrative})
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}

	if err := s.Update(ctx, Vision{
		ID:     id,
		UserID: "user-1",
		Phase:  interview.PhaseComplete,
		Goals:  []string{"קריירה"},
	}); err != nil {
		t.Fatalf("Update error = %v", err)
	}

	v, err := s.LatestByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("LatestByUser error = %v", err)
	}
	if v.Phase != interview.PhaseComplete || len(v.Goals) != 1 {
		t.Fatalf("updated vision = %+v", v)
	}
	if v.CreatedAt.IsZero() {
		t.Fatalf("update lost CreatedAt")
	}

	if err := s.Update(ctx, Vision{ID: "missing", UserID: "user-1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing error = %v, want ErrNotFound", err)
	}
}

func TestPlansInsertArchivesPrevious(t *testing.T) {
	s := NewInMemory().Plans()
	ctx := context.Background()

	firstID, err := s.Insert(ctx, FocusPlan{UserID: "user-1", FocusArea: "קריירה"})
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	secondID, err := s.Insert(ctx, FocusPlan{UserID: "user-1", FocusArea: "בריאות"})
	if err != nil {
		t.Fatalf("Insert error = %v", err)
	}

	active, err := s.ActiveByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ActiveByUser error = %v", err)
	}
	if active.ID != secondID {
		t.Fatalf("active plan = %q, want %q", active.ID, secondID)
	}

	if err := s.UpdateStatus(ctx, secondID, "completed"); err != nil {
		t.Fatalf("UpdateStatus error = %v", err)
	}
	if _, err := s.ActiveByUser(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after completion error = %v, want ErrNotFound (first plan %q stays archived)", err, firstID)
	}
}

func TestChecksCompositeKeyUpsert(t *testing.T) {
	s := NewInMemory().Checks()
	ctx := context.Background()

	base := WeeklyCheck{FocusPlanID: "plan-1", WeekNumber: 10, Year: 2026, MinutesFocused: 100}
	if err := s.Upsert(ctx, base); err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	stored, err := s.ByWeek(ctx, "plan-1", 10, 2026)
	if err != nil {
		t.Fatalf("ByWeek error = %v", err)
	}

	base.MinutesFocused = 250
	if err := s.Upsert(ctx, base); err != nil {
		t.Fatalf("second Upsert error = %v", err)
	}
	updated, err := s.ByWeek(ctx, "plan-1", 10, 2026)
	if err != nil {
		t.Fatalf("ByWeek error = %v", err)
	}
	if updated.ID != stored.ID {
		t.Fatalf("upsert changed id: %q -> %q", stored.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(stored.CreatedAt) {
		t.Fatalf("upsert changed CreatedAt")
	}
	if updated.MinutesFocused != 250 {
		t.Fatalf("minutes = %d, want 250", updated.MinutesFocused)
	}

	if _, err := s.ByWeek(ctx, "plan-1", 11, 2026); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing week error = %v, want ErrNotFound", err)
	}
}

func TestChecksByPlanOrdering(t *testing.T) {
	s := NewInMemory().Checks()
	ctx := context.Background()

	for _, c := range []WeeklyCheck{
		{FocusPlanID: "plan-1", WeekNumber: 2, Year: 2026},
		{FocusPlanID: "plan-1", WeekNumber: 52, Year: 2025},
		{FocusPlanID: "plan-1", WeekNumber: 1, Year: 2026},
		{FocusPlanID: "plan-2", WeekNumber: 1, Year: 2026},
	} {
		if err := s.Upsert(ctx, c); err != nil {
			t.Fatalf("Upsert error = %v", err)
		}
	}

	checks, err := s.ByPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("ByPlan error = %v", err)
	}
	if len(checks) != 3 {
		t.Fatalf("checks = %d, want 3", len(checks))
	}
	want := []struct{ week, year int }{{52, 2025}, {1, 2026}, {2, 2026}}
	for i, w := range want {
		if checks[i].WeekNumber != w.week || checks[i].Year != w.year {
			t.Fatalf("checks[%d] = week %d year %d, want week %d year %d",
				i, checks[i].WeekNumber, checks[i].Year, w.week, w.year)
		}
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	s := NewInMemory().Feedback()
	ctx := context.Background()

	id, err := s.InsertRequest(ctx, FeedbackRequest{
		UserID:      "user-1",
		ManagerName: "רונית",
		Token:       "tok-1",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("InsertRequest error = %v", err)
	}

	req, err := s.RequestByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("RequestByToken error = %v", err)
	}
	if req.ID != id || req.ManagerName != "רונית" {
		t.Fatalf("request = %+v", req)
	}
	if _, err := s.RequestByToken(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing token error = %v, want ErrNotFound", err)
	}

	if _, err := s.InsertResponse(ctx, FeedbackResponse{
		RequestID: id,
		Ratings:   map[string]int{"leadership": 4},
	}); err != nil {
		t.Fatalf("InsertResponse error = %v", err)
	}
	if _, err := s.InsertResponse(ctx, FeedbackResponse{
		RequestID: "other",
		Ratings:   map[string]int{"leadership": 2},
	}); err != nil {
		t.Fatalf("InsertResponse error = %v", err)
	}

	responses, err := s.ResponsesByRequest(ctx, id)
	if err != nil {
		t.Fatalf("ResponsesByRequest error = %v", err)
	}
	if len(responses) != 1 || responses[0].Ratings["leadership"] != 4 {
		t.Fatalf("responses = %+v", responses)
	}
}

func TestFactorySelectsBackend(t *testing.T) {
	s, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*InMemory); !ok {
		t.Fatalf("empty DATABASE_URL backend = %T, want in-memory", s)
	}
}
