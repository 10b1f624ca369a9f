package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omerlevi/horizon/internal/interview"
)

// Postgres persists every repository in PostgreSQL behind a single pool.
type Postgres struct {
	pool *pgxpool.Pool

	visions  *pgVisions
	plans    *pgPlans
	checks   *pgChecks
	feedback *pgFeedback
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{
		pool:     pool,
		visions:  &pgVisions{pool: pool},
		plans:    &pgPlans{pool: pool},
		checks:   &pgChecks{pool: pool},
		feedback: &pgFeedback{pool: pool},
	}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			conversation_history JSONB NOT NULL DEFAULT '[]',
			goals TEXT[] NOT NULL DEFAULT '{}',
			narrative TEXT NOT NULL DEFAULT '',
			phase TEXT NOT NULL DEFAULT 'personalization',
			user_name TEXT NOT NULL DEFAULT '',
			user_gender TEXT NOT NULL DEFAULT '',
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_visions_user_created ON visions (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS focus_plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			focus_area TEXT NOT NULL DEFAULT '',
			goal TEXT NOT NULL DEFAULT '',
			weekly_work_hours INT NOT NULL DEFAULT 0,
			tasks TEXT[] NOT NULL DEFAULT '{}',
			big_rocks JSONB NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_focus_plans_user_status ON focus_plans (user_id, status);`,
		`CREATE TABLE IF NOT EXISTS weekly_checks (
			id TEXT PRIMARY KEY,
			focus_plan_id TEXT NOT NULL,
			week_number INT NOT NULL,
			year INT NOT NULL,
			minutes_focused INT NOT NULL DEFAULT 0,
			tasks_completed TEXT[] NOT NULL DEFAULT '{}',
			energy_level INT NOT NULL DEFAULT 0,
			passion_level INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (focus_plan_id, week_number, year)
		);`,
		`CREATE TABLE IF NOT EXISTS feedback_requests (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			manager_name TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS feedback_responses (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL REFERENCES feedback_requests(id),
			ratings JSONB NOT NULL DEFAULT '{}',
			open_feedback TEXT NOT NULL DEFAULT '',
			strengths TEXT NOT NULL DEFAULT '',
			improvements TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_responses_request ON feedback_responses (request_id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Postgres) Visions() VisionStore    { return s.visions }
func (s *Postgres) Plans() PlanStore        { return s.plans }
func (s *Postgres) Checks() CheckStore      { return s.checks }
func (s *Postgres) Feedback() FeedbackStore { return s.feedback }

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

type pgVisions struct {
	pool *pgxpool.Pool
}

func (s *pgVisions) LatestByUser(ctx context.Context, userID string) (Vision, error) {
	var (
		v       Vision
		history []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, conversation_history, goals, narrative, phase,
		        user_name, user_gender, is_complete, created_at, updated_at
		 FROM visions WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&v.ID, &v.UserID, &history, &v.Goals, &v.Narrative, &v.Phase,
		&v.UserName, &v.UserGender, &v.IsComplete, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vision{}, ErrNotFound
	}
	if err != nil {
		return Vision{}, fmt.Errorf("query latest vision: %w", err)
	}
	if err := json.Unmarshal(history, &v.ConversationHistory); err != nil {
		return Vision{}, fmt.Errorf("decode conversation history: %w", err)
	}
	return v, nil
}

func (s *pgVisions) Insert(ctx context.Context, v Vision) (string, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	history, err := marshalHistory(v.ConversationHistory)
	if err != nil {
		return "", err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO visions (id, user_id, conversation_history, goals, narrative, phase,
		                      user_name, user_gender, is_complete, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.UserID, history, textArray(v.Goals), v.Narrative, string(v.Phase),
		v.UserName, string(v.UserGender), v.IsComplete, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("insert vision: %w", err)
	}
	return v.ID, nil
}

func (s *pgVisions) Update(ctx context.Context, v Vision) error {
	history, err := marshalHistory(v.ConversationHistory)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE visions SET conversation_history=$2, goals=$3, narrative=$4, phase=$5,
		                    user_name=$6, user_gender=$7, is_complete=$8, updated_at=now()
		 WHERE id=$1`,
		v.ID, history, textArray(v.Goals), v.Narrative, string(v.Phase),
		v.UserName, string(v.UserGender), v.IsComplete)
	if err != nil {
		return fmt.Errorf("update vision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalHistory(history []interview.Message) ([]byte, error) {
	if history == nil {
		history = []interview.Message{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode conversation history: %w", err)
	}
	return b, nil
}

// textArray keeps empty slices as '{}' rather than NULL.
func textArray(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

type pgPlans struct {
	pool *pgxpool.Pool
}

func (s *pgPlans) ActiveByUser(ctx context.Context, userID string) (FocusPlan, error) {
	var (
		p     FocusPlan
		rocks []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, focus_area, goal, weekly_work_hours, tasks, big_rocks,
		        status, created_at, updated_at
		 FROM focus_plans WHERE user_id=$1 AND status='active'
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&p.ID, &p.UserID, &p.FocusArea, &p.Goal, &p.WeeklyWorkHours, &p.Tasks,
		&rocks, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FocusPlan{}, ErrNotFound
	}
	if err != nil {
		return FocusPlan{}, fmt.Errorf("query active plan: %w", err)
	}
	if err := json.Unmarshal(rocks, &p.BigRocks); err != nil {
		return FocusPlan{}, fmt.Errorf("decode big rocks: %w", err)
	}
	return p, nil
}

func (s *pgPlans) Insert(ctx context.Context, p FocusPlan) (string, error) {
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

	rocks := p.BigRocks
	if rocks == nil {
		rocks = []BigRock{}
	}
	rocksJSON, err := json.Marshal(rocks)
	if err != nil {
		return "", fmt.Errorf("encode big rocks: %w", err)
	}

	// A new plan supersedes any previously active one.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE focus_plans SET status='archived', updated_at=now()
		 WHERE user_id=$1 AND status='active'`, p.UserID); err != nil {
		return "", fmt.Errorf("archive previous plan: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO focus_plans (id, user_id, focus_area, goal, weekly_work_hours,
		                          tasks, big_rocks, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.UserID, p.FocusArea, p.Goal, p.WeeklyWorkHours,
		textArray(p.Tasks), rocksJSON, p.Status, p.CreatedAt, p.UpdatedAt); err != nil {
		return "", fmt.Errorf("insert plan: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return p.ID, nil
}

func (s *pgPlans) UpdateStatus(ctx context.Context, planID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE focus_plans SET status=$2, updated_at=now() WHERE id=$1`, planID, status)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgChecks struct {
	pool *pgxpool.Pool
}

func (s *pgChecks) Upsert(ctx context.Context, c WeeklyCheck) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO weekly_checks (id, focus_plan_id, week_number, year, minutes_focused,
		                            tasks_completed, energy_level, passion_level, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		 ON CONFLICT (focus_plan_id, week_number, year) DO UPDATE SET
			minutes_focused=EXCLUDED.minutes_focused,
			tasks_completed=EXCLUDED.tasks_completed,
			energy_level=EXCLUDED.energy_level,
			passion_level=EXCLUDED.passion_level,
			updated_at=now()`,
		c.ID, c.FocusPlanID, c.WeekNumber, c.Year, c.MinutesFocused,
		textArray(c.TasksCompleted), c.EnergyLevel, c.PassionLevel)
	if err != nil {
		return fmt.Errorf("upsert weekly check: %w", err)
	}
	return nil
}

func (s *pgChecks) ByWeek(ctx context.Context, planID string, week, year int) (WeeklyCheck, error) {
	var c WeeklyCheck
	err := s.pool.QueryRow(ctx,
		`SELECT id, focus_plan_id, week_number, year, minutes_focused, tasks_completed,
		        energy_level, passion_level, created_at, updated_at
		 FROM weekly_checks WHERE focus_plan_id=$1 AND week_number=$2 AND year=$3`,
		planID, week, year,
	).Scan(&c.ID, &c.FocusPlanID, &c.WeekNumber, &c.Year, &c.MinutesFocused,
		&c.TasksCompleted, &c.EnergyLevel, &c.PassionLevel, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return WeeklyCheck{}, ErrNotFound
	}
	if err != nil {
		return WeeklyCheck{}, fmt.Errorf("query weekly check: %w", err)
	}
	return c, nil
}

func (s *pgChecks) ByPlan(ctx context.Context, planID string) ([]WeeklyCheck, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, focus_plan_id, week_number, year, minutes_focused, tasks_completed,
		        energy_level, passion_level, created_at, updated_at
		 FROM weekly_checks WHERE focus_plan_id=$1 ORDER BY year, week_number`,
		planID)
	if err != nil {
		return nil, fmt.Errorf("query weekly checks: %w", err)
	}
	defer rows.Close()

	var checks []WeeklyCheck
	for rows.Next() {
		var c WeeklyCheck
		if err := rows.Scan(&c.ID, &c.FocusPlanID, &c.WeekNumber, &c.Year, &c.MinutesFocused,
			&c.TasksCompleted, &c.EnergyLevel, &c.PassionLevel, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan weekly check: %w", err)
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly checks: %w", err)
	}
	return checks, nil
}

type pgFeedback struct {
	pool *pgxpool.Pool
}

func (s *pgFeedback) InsertRequest(ctx context.Context, r FeedbackRequest) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback_requests (id, user_id, manager_name, token, expires_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.UserID, r.ManagerName, r.Token, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert feedback request: %w", err)
	}
	return r.ID, nil
}

func (s *pgFeedback) RequestByToken(ctx context.Context, token string) (FeedbackRequest, error) {
	var r FeedbackRequest
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, manager_name, token, expires_at, created_at
		 FROM feedback_requests WHERE token=$1`, token,
	).Scan(&r.ID, &r.UserID, &r.ManagerName, &r.Token, &r.ExpiresAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FeedbackRequest{}, ErrNotFound
	}
	if err != nil {
		return FeedbackRequest{}, fmt.Errorf("query feedback request: %w", err)
	}
	return r, nil
}

func (s *pgFeedback) InsertResponse(ctx context.Context, resp FeedbackResponse) (string, error) {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	ratings := resp.Ratings
	if ratings == nil {
		ratings = map[string]int{}
	}
	ratingsJSON, err := json.Marshal(ratings)
	if err != nil {
		return "", fmt.Errorf("encode ratings: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO feedback_responses (id, request_id, ratings, open_feedback, strengths, improvements, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		resp.ID, resp.RequestID, ratingsJSON, resp.OpenFeedback, resp.Strengths, resp.Improvements, resp.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert feedback response: %w", err)
	}
	return resp.ID, nil
}

func (s *pgFeedback) ResponsesByRequest(ctx context.Context, requestID string) ([]FeedbackResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, request_id, ratings, open_feedback, strengths, improvements, created_at
		 FROM feedback_responses WHERE request_id=$1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query feedback responses: %w", err)
	}
	defer rows.Close()

	var out []FeedbackResponse
	for rows.Next() {
		var (
			r       FeedbackResponse
			ratings []byte
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &ratings, &r.OpenFeedback,
			&r.Strengths, &r.Improvements, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback response: %w", err)
		}
		if err := json.Unmarshal(ratings, &r.Ratings); err != nil {
			return nil, fmt.Errorf("decode ratings: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback responses: %w", err)
	}
	return out, nil
}
