package store

import (
	"context"
	"errors"
	"time"

	"github.com/omerlevi/horizon/internal/interview"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Vision is the persisted state of one interview, complete or in progress.
// One most-recent vision per user is surfaced; older rows are kept but never
// loaded by this service.
type Vision struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"user_id"`
	ConversationHistory []interview.Message `json:"conversation_history"`
	Goals               []string            `json:"goals"`
	Narrative           string              `json:"narrative"`
	Phase               interview.Phase     `json:"phase"`
	UserName            string              `json:"user_name"`
	UserGender          interview.Gender    `json:"user_gender"`
	IsComplete          bool                `json:"is_complete"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// FocusPlan is a user's active 12-week execution plan.
type FocusPlan struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FocusArea       string    `json:"focus_area"`
	Goal            string    `json:"goal"`
	WeeklyWorkHours int       `json:"weekly_work_hours"`
	Tasks           []string  `json:"tasks"`
	BigRocks        []BigRock `json:"big_rocks"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BigRock is a prioritized focus area inside a plan. Order is the user's
// drag-sorted priority, 0 first.
type BigRock struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Order          int      `json:"order"`
	Practices      []string `json:"practices,omitempty"`
	IsBreakthrough bool     `json:"is_breakthrough,omitempty"`
}

// WeeklyCheck is one weekly self-report, keyed by (plan, week, year).
type WeeklyCheck struct {
	ID             string    `json:"id"`
	FocusPlanID    string    `json:"focus_plan_id"`
	WeekNumber     int       `json:"week_number"`
	Year           int       `json:"year"`
	MinutesFocused int       `json:"minutes_focused"`
	TasksCompleted []string  `json:"tasks_completed"`
	EnergyLevel    int       `json:"energy_level"`
	PassionLevel   int       `json:"passion_level"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FeedbackRequest is a tokenized public link inviting a stakeholder to leave
// anonymous 360° feedback.
type FeedbackRequest struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ManagerName string    `json:"manager_name"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether the request's public link has lapsed.
func (r FeedbackRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// FeedbackResponse is one anonymous submission against a request. No
// identity is captured beyond the request linkage.
type FeedbackResponse struct {
	ID           string         `json:"id"`
	RequestID    string         `json:"request_id"`
	Ratings      map[string]int `json:"ratings"`
	OpenFeedback string         `json:"open_feedback"`
	Strengths    string         `json:"strengths"`
	Improvements string         `json:"improvements"`
	CreatedAt    time.Time      `json:"created_at"`
}

// VisionStore persists interview state with upsert-by-id semantics.
type VisionStore interface {
	LatestByUser(ctx context.Context, userID string) (Vision, error)
	Insert(ctx context.Context, v Vision) (string, error)
	Update(ctx context.Context, v Vision) error
}

// PlanStore persists focus plans; at most one active plan per user.
type PlanStore interface {
	ActiveByUser(ctx context.Context, userID string) (FocusPlan, error)
	Insert(ctx context.Context, p FocusPlan) (string, error)
	UpdateStatus(ctx context.Context, planID, status string) error
}

// CheckStore persists weekly checks with upsert semantics on the
// (plan, week, year) composite key.
type CheckStore interface {
	Upsert(ctx context.Context, c WeeklyCheck) error
	ByWeek(ctx context.Context, planID string, week, year int) (WeeklyCheck, error)
	ByPlan(ctx context.Context, planID string) ([]WeeklyCheck, error)
}

// FeedbackStore persists feedback requests and their anonymous responses.
type FeedbackStore interface {
	InsertRequest(ctx context.Context, r FeedbackRequest) (string, error)
	RequestByToken(ctx context.Context, token string) (FeedbackRequest, error)
	InsertResponse(ctx context.Context, resp FeedbackResponse) (string, error)
	ResponsesByRequest(ctx context.Context, requestID string) ([]FeedbackResponse, error)
}

// Store bundles every repository plus lifecycle management.
type Store interface {
	Visions() VisionStore
	Plans() PlanStore
	Checks() CheckStore
	Feedback() FeedbackStore
	Close() error
}
