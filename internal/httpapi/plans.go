package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/omerlevi/horizon/internal/store"
)

type createPlanRequest struct {
	UserID          string          `json:"user_id"`
	FocusArea       string          `json:"focus_area"`
	Goal            string          `json:"goal"`
	WeeklyWorkHours int             `json:"weekly_work_hours"`
	Tasks           []string        `json:"tasks"`
	BigRocks        []store.BigRock `json:"big_rocks"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	if req.WeeklyWorkHours < 0 {
		respondError(w, http.StatusBadRequest, "invalid_hours", "weekly_work_hours must not be negative")
		return
	}

	plan := store.FocusPlan{
		UserID:          req.UserID,
		FocusArea:       req.FocusArea,
		Goal:            req.Goal,
		WeeklyWorkHours: req.WeeklyWorkHours,
		Tasks:           req.Tasks,
		BigRocks:        req.BigRocks,
		Status:          "active",
	}
	id, err := s.stores.Plans().Insert(r.Context(), plan)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "plan_create_failed", err.Error())
		return
	}
	plan.ID = id
	respondJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleActivePlan(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}

	plan, err := s.stores.Plans().ActiveByUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "plan_not_found", "no active plan for user")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "plan_load_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

type upsertCheckRequest struct {
	WeekNumber     int      `json:"week_number"`
	Year           int      `json:"year"`
	MinutesFocused int      `json:"minutes_focused"`
	TasksCompleted []string `json:"tasks_completed"`
	EnergyLevel    int      `json:"energy_level"`
	PassionLevel   int      `json:"passion_level"`
}

func (s *Server) handleUpsertCheck(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	var req upsertCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.WeekNumber < 1 || req.WeekNumber > 53 {
		respondError(w, http.StatusBadRequest, "invalid_week", "week_number must be 1-53")
		return
	}
	if req.Year < 2000 {
		respondError(w, http.StatusBadRequest, "invalid_year", "year is out of range")
		return
	}
	if !validScale(req.EnergyLevel) || !validScale(req.PassionLevel) {
		respondError(w, http.StatusBadRequest, "invalid_scale", "energy_level and passion_level must be 1-5")
		return
	}
	if req.MinutesFocused < 0 {
		respondError(w, http.StatusBadRequest, "invalid_minutes", "minutes_focused must not be negative")
		return
	}

	check := store.WeeklyCheck{
		FocusPlanID:    planID,
		WeekNumber:     req.WeekNumber,
		Year:           req.Year,
		MinutesFocused: req.MinutesFocused,
		TasksCompleted: req.TasksCompleted,
		EnergyLevel:    req.EnergyLevel,
		PassionLevel:   req.PassionLevel,
	}
	if err := s.stores.Checks().Upsert(r.Context(), check); err != nil {
		respondError(w, http.StatusInternalServerError, "check_save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"saved": true})
}

// validScale accepts the 1-5 self-report scales; zero means "not reported".
func validScale(v int) bool {
	return v >= 0 && v <= 5
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	checks, err := s.stores.Checks().ByPlan(r.Context(), planID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "checks_load_failed", err.Error())
		return
	}
	if checks == nil {
		checks = []store.WeeklyCheck{}
	}
	respondJSON(w, http.StatusOK, checks)
}

type planSummary struct {
	Plan         store.FocusPlan     `json:"plan"`
	CurrentWeek  int                 `json:"current_week"`
	Year         int                 `json:"year"`
	ThisWeek     *store.WeeklyCheck  `json:"this_week,omitempty"`
	AllChecks    []store.WeeklyCheck `json:"all_checks"`
	WeeksElapsed int                 `json:"weeks_elapsed"`
	TotalWeeks   int                 `json:"total_weeks"`
}

// handlePlanSummary assembles the dashboard view: the plan, this week's
// check, and the full check history, fetched concurrently.
func (s *Server) handlePlanSummary(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")

	now := time.Now()
	year, week := now.ISOWeek()

	var (
		thisWeek *store.WeeklyCheck
		all      []store.WeeklyCheck
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		c, err := s.stores.Checks().ByWeek(ctx, planID, week, year)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		thisWeek = &c
		return nil
	})
	g.Go(func() error {
		checks, err := s.stores.Checks().ByPlan(ctx, planID)
		if err != nil {
			return err
		}
		all = checks
		return nil
	})

	// The plan itself gates the response; fetch it on the request goroutine.
	plan, planErr := s.lookupPlan(r, planID)
	if err := g.Wait(); err != nil {
		respondError(w, http.StatusInternalServerError, "summary_load_failed", err.Error())
		return
	}
	if errors.Is(planErr, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "plan_not_found", "unknown plan")
		return
	}
	if planErr != nil {
		respondError(w, http.StatusInternalServerError, "summary_load_failed", planErr.Error())
		return
	}

	if all == nil {
		all = []store.WeeklyCheck{}
	}
	elapsed := weeksSince(plan.CreatedAt, now)
	if elapsed > s.cfg.PlanWeeks {
		elapsed = s.cfg.PlanWeeks
	}

	respondJSON(w, http.StatusOK, planSummary{
		Plan:         plan,
		CurrentWeek:  week,
		Year:         year,
		ThisWeek:     thisWeek,
		AllChecks:    all,
		WeeksElapsed: elapsed,
		TotalWeeks:   s.cfg.PlanWeeks,
	})
}

func (s *Server) lookupPlan(r *http.Request, planID string) (store.FocusPlan, error) {
	userID := userIDParam(r)
	if userID != "" {
		plan, err := s.stores.Plans().ActiveByUser(r.Context(), userID)
		if err != nil {
			return store.FocusPlan{}, err
		}
		if plan.ID != planID {
			return store.FocusPlan{}, store.ErrNotFound
		}
		return plan, nil
	}
	return store.FocusPlan{}, store.ErrNotFound
}

func weeksSince(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start)/(7*24*time.Hour)) + 1
}
