package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory is a process-local store for local/dev use and tests. It mirrors
// the Postgres repositories' semantics, including ErrNotFound and the weekly
// check composite-key upsert.
type InMemory struct {
	visions  *memVisions
	plans    *memPlans
	checks   *memChecks
	feedback *memFeedback
}

func NewInMemory() *InMemory {
	return &InMemory{
		visions:  &memVisions{},
		plans:    &memPlans{},
		checks:   &memChecks{byKey: make(map[checkKey]WeeklyCheck)},
		feedback: &memFeedback{byToken: make(map[string]FeedbackRequest)},
	}
}

func (s *InMemory) Visions() VisionStore    { return s.visions }
func (s *InMemory) Plans() PlanStore        { return s.plans }
func (s *InMemory) Checks() CheckStore      { return s.checks }
func (s *InMemory) Feedback() FeedbackStore { return s.feedback }
func (s *InMemory) Close() error            { return nil }

type memVisions struct {
	mu      sync.RWMutex
	records []Vision
}

func (s *memVisions) LatestByUser(_ context.Context, userID string) (Vision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found  bool
		latest Vision
	)
	for _, v := range s.records {
		if v.UserID != userID {
			continue
		}
		if !found || v.CreatedAt.After(latest.CreatedAt) {
			latest = v
			found = true
		}
	}
	if !found {
		return Vision{}, ErrNotFound
	}
	return latest, nil
}

func (s *memVisions) Insert(_ context.Context, v Vision) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	s.records = append(s.records, v)
	return v.ID, nil
}

func (s *memVisions) Update(_ context.Context, v Vision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == v.ID {
			v.CreatedAt = s.records[i].CreatedAt
			v.UpdatedAt = time.Now().UTC()
			s.records[i] = v
			return nil
		}
	}
	return ErrNotFound
}

type memPlans struct {
	mu      sync.RWMutex
	records []FocusPlan
}

func (s *memPlans) ActiveByUser(_ context.Context, userID string) (FocusPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		p := s.records[i]
		if p.UserID == userID && p.Status == "active" {
			return p, nil
		}
	}
	return FocusPlan{}, ErrNotFound
}

func (s *memPlans) Insert(_ context.Context, p FocusPlan) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = "active"
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	for i := range s.records {
		if s.records[i].UserID == p.UserID && s.records[i].Status == "active" {
			s.records[i].Status = "archived"
			s.records[i].UpdatedAt = now
		}
	}
	s.records = append(s.records, p)
	return p.ID, nil
}

func (s *memPlans) UpdateStatus(_ context.Context, planID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == planID {
			s.records[i].Status = status
			s.records[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

type checkKey struct {
	planID string
	week   int
	year   int
}

type memChecks struct {
	mu    sync.RWMutex
	byKey map[checkKey]WeeklyCheck
}

func (s *memChecks) Upsert(_ context.Context, c WeeklyCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := checkKey{c.FocusPlanID, c.WeekNumber, c.Year}
	now := time.Now().UTC()
	if prev, ok := s.byKey[key]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	} else {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.byKey[key] = c
	return nil
}

func (s *memChecks) ByWeek(_ context.Context, planID string, week, year int) (WeeklyCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKey[checkKey{planID, week, year}]
	if !ok {
		return WeeklyCheck{}, ErrNotFound
	}
	return c, nil
}

func (s *memChecks) ByPlan(_ context.Context, planID string) ([]WeeklyCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WeeklyCheck
	for _, c := range s.byKey {
		if c.FocusPlanID == planID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].WeekNumber < out[j].WeekNumber
	})
	return out, nil
}

type memFeedback struct {
	mu        sync.RWMutex
	byToken   map[string]FeedbackRequest
	responses []FeedbackResponse
}

func (s *memFeedback) InsertRequest(_ context.Context, r FeedbackRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.byToken[r.Token] = r
	return r.ID, nil
}

func (s *memFeedback) RequestByToken(_ context.Context, token string) (FeedbackRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byToken[token]
	if !ok {
		return FeedbackRequest{}, ErrNotFound
	}
	return r, nil
}

func (s *memFeedback) InsertResponse(_ context.Context, resp FeedbackResponse) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	s.responses = append(s.responses, resp)
	return resp.ID, nil
}

func (s *memFeedback) ResponsesByRequest(_ context.Context, requestID string) ([]FeedbackResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []FeedbackResponse
	for _, r := range s.responses {
		if r.RequestID == requestID {
			out = append(out, r)
		}
	}
	return out, nil
}
