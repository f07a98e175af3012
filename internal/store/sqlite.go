package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_id TEXT,
		status TEXT NOT NULL,
		snapshot TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_stale ON conversations(updated_at) WHERE goal_id IS NULL;

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		timeline TEXT,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id, created_at);

	CREATE TABLE IF NOT EXISTS milestones (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
		week_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_milestones_goal ON milestones(goal_id, week_number);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
		milestone_id TEXT REFERENCES milestones(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		state TEXT NOT NULL,
		priority TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		is_recurring INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_milestone ON tasks(milestone_id, start_time);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT user_id, username, created_at, updated_at FROM users WHERE user_id = ?`

	var user domain.User
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&user.UserID, &user.Username, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		updated_at = excluded.updated_at`

	err := withRetry(ctx, "upsert user", func() error {
		_, err := s.db.ExecContext(ctx, query,
			user.UserID, user.Username, user.CreatedAt.Unix(), user.UpdatedAt.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// CreateConversation inserts an open conversation and returns its ID.
func (s *SQLiteStore) CreateConversation(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	now := s.now().Unix()

	err := withRetry(ctx, "create conversation", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO conversations (id, user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, userID, domain.ConversationStatusOpen, now, now)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	return id, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	query := `
		SELECT id, user_id, goal_id, status, snapshot, created_at, updated_at
		FROM conversations WHERE id = ?`

	var conv domain.Conversation
	var goalID, snapshot sql.NullString
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(
		&conv.ID, &conv.UserID, &goalID, &conv.Status, &snapshot, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.GoalID = goalID.String
	if snapshot.Valid {
		conv.Snapshot = []byte(snapshot.String)
	}
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)
	return &conv, nil
}

// UpdateConversation stores the latest agent snapshot and status.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, conversationID, status string, snapshot []byte) error {
	query := `UPDATE conversations SET status = ?, snapshot = ?, updated_at = ? WHERE id = ?`

	var rows int64
	err := withRetry(ctx, "update conversation", func() error {
		result, err := s.db.ExecContext(ctx, query, status, string(snapshot), s.now().Unix(), conversationID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	return nil
}

// SaveCompletePlan writes a confirmed plan in a single transaction.
func (s *SQLiteStore) SaveCompletePlan(ctx context.Context, plan PlanRecord) (*domain.SavedPlan, error) {
	var saved *domain.SavedPlan
	err := withRetry(ctx, "save plan", func() error {
		var err error
		saved, err = s.savePlanOnce(ctx, plan)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Plan saved",
		"goal_id", saved.GoalID,
		"conversation_id", plan.ConversationID,
		"milestones", len(saved.MilestoneIDs),
		"tasks", len(saved.TaskIDs),
	)
	return saved, nil
}

func (s *SQLiteStore) savePlanOnce(ctx context.Context, plan PlanRecord) (_ *domain.SavedPlan, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin plan transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("failed to roll back plan transaction", "error", rbErr)
			}
		}
	}()

	now := s.now()
	start := plan.StartDate
	if start.IsZero() {
		start = now
	}
	title := plan.Title
	if title == "" {
		title = DefaultGoalTitle
	}
	var timeline any
	if plan.Timeline != "" {
		timeline = plan.Timeline
	}

	saved := &domain.SavedPlan{GoalID: uuid.NewString()}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, category, timeline, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		saved.GoalID, plan.UserID, title, domain.CategoryHealthFitness, timeline, domain.GoalStatusActive, now.Unix(),
	); err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}

	for _, m := range plan.Milestones {
		id := uuid.NewString()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO milestones (id, goal_id, week_number, title, status) VALUES (?, ?, ?, ?, ?)`,
			id, saved.GoalID, m.Week, m.Title, domain.MilestoneStatusPending,
		); err != nil {
			return nil, fmt.Errorf("insert milestone week %d: %w", m.Week, err)
		}
		saved.MilestoneIDs = append(saved.MilestoneIDs, id)
	}

	for _, task := range LayoutTasks(plan.UserID, saved.GoalID, plan.Milestones, saved.MilestoneIDs, start) {
		var milestoneID any
		if task.MilestoneID != "" {
			milestoneID = task.MilestoneID
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, goal_id, milestone_id, title, start_time, end_time,
			                   state, priority, trigger_type, is_recurring)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.UserID, task.GoalID, milestoneID, task.Title,
			task.StartTime.Unix(), task.EndTime.Unix(),
			string(task.State), string(task.Priority), string(task.TriggerType), task.IsRecurring,
		); err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
		saved.TaskIDs = append(saved.TaskIDs, task.ID)
	}

	if plan.ConversationID != "" {
		if _, err = tx.ExecContext(ctx,
			`UPDATE conversations SET goal_id = ?, updated_at = ? WHERE id = ?`,
			saved.GoalID, now.Unix(), plan.ConversationID,
		); err != nil {
			return nil, fmt.Errorf("link conversation to goal: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit plan transaction: %w", err)
	}
	return saved, nil
}

// ListGoals returns one page of a user's goals with milestones.
func (s *SQLiteStore) ListGoals(ctx context.Context, userID string, limit, offset int) ([]*domain.Goal, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count goals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, category, timeline, status, created_at
		FROM goals WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query goals: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close goal rows", "error", closeErr)
		}
	}()

	goals := []*domain.Goal{}
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, 0, err
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate goals: %w", err)
	}

	for _, goal := range goals {
		if goal.Milestones, err = s.milestones(ctx, goal.ID, false); err != nil {
			return nil, 0, err
		}
	}
	return goals, total, nil
}

// GetGoal retrieves a goal with milestones and tasks.
func (s *SQLiteStore) GetGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, category, timeline, status, created_at
		FROM goals WHERE id = ?`, goalID)

	goal, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if goal.Milestones, err = s.milestones(ctx, goal.ID, true); err != nil {
		return nil, err
	}
	return goal, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var goal domain.Goal
	var timeline sql.NullString
	var createdAt int64
	if err := row.Scan(&goal.ID, &goal.UserID, &goal.Title, &goal.Category, &timeline, &goal.Status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan goal row: %w", err)
	}
	goal.Timeline = timeline.String
	goal.CreatedAt = time.Unix(createdAt, 0)
	return &goal, nil
}

func (s *SQLiteStore) milestones(ctx context.Context, goalID string, withTasks bool) ([]domain.MilestoneRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, goal_id, week_number, title, status
		FROM milestones WHERE goal_id = ? ORDER BY week_number`, goalID)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close milestone rows", "error", closeErr)
		}
	}()

	var out []domain.MilestoneRecord
	for rows.Next() {
		var m domain.MilestoneRecord
		if err := rows.Scan(&m.ID, &m.GoalID, &m.WeekNumber, &m.Title, &m.Status); err != nil {
			return nil, fmt.Errorf("scan milestone row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}

	if withTasks {
		for i := range out {
			if out[i].Tasks, err = s.tasks(ctx, out[i].ID); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (s *SQLiteStore) tasks(ctx context.Context, milestoneID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, goal_id, milestone_id, title, start_time, end_time,
		       state, priority, trigger_type, is_recurring
		FROM tasks WHERE milestone_id = ? ORDER BY start_time, rowid`, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close task rows", "error", closeErr)
		}
	}()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var milestone sql.NullString
		var start, end int64
		var state, priority, trigger string
		if err := rows.Scan(&t.ID, &t.UserID, &t.GoalID, &milestone, &t.Title, &start, &end,
			&state, &priority, &trigger, &t.IsRecurring); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		t.MilestoneID = milestone.String
		t.StartTime = time.Unix(start, 0).UTC()
		t.EndTime = time.Unix(end, 0).UTC()
		t.State = domain.TaskState(state)
		t.Priority = domain.TaskPriority(priority)
		t.TriggerType = domain.TriggerType(trigger)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// DeleteStaleConversations removes unlinked conversations idle for olderThan.
func (s *SQLiteStore) DeleteStaleConversations(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := s.now().Add(-olderThan).Unix()

	var deleted int64
	err := withRetry(ctx, "delete stale conversations", func() error {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM conversations WHERE goal_id IS NULL AND updated_at < ?`, threshold)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete stale conversations: %w", err)
	}
	return deleted, nil
}
