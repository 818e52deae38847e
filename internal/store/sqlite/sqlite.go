package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/interviewhub/server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	image         TEXT,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS interviews (
	id             TEXT PRIMARY KEY,
	room_id        TEXT NOT NULL UNIQUE,
	interviewer_id TEXT NOT NULL,
	interviewee_id TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending',
	start_time     DATETIME NOT NULL,
	end_time       DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (interviewer_id) REFERENCES users(id),
	FOREIGN KEY (interviewee_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	interview_id TEXT NOT NULL,
	from_user_id TEXT NOT NULL,
	to_user_id   TEXT NOT NULL,
	content      TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	FOREIGN KEY (interview_id) REFERENCES interviews(id),
	FOREIGN KEY (from_user_id) REFERENCES users(id),
	FOREIGN KEY (to_user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS problems (
	id           TEXT PRIMARY KEY,
	interview_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (interview_id) REFERENCES interviews(id)
);

CREATE TABLE IF NOT EXISTS test_cases (
	id         TEXT PRIMARY KEY,
	problem_id TEXT NOT NULL,
	input      TEXT NOT NULL,
	output     TEXT NOT NULL,
	FOREIGN KEY (problem_id) REFERENCES problems(id)
);

CREATE INDEX IF NOT EXISTS idx_interviews_room ON interviews(room_id);
CREATE INDEX IF NOT EXISTS idx_messages_interview ON messages(interview_id, created_at);
CREATE INDEX IF NOT EXISTS idx_problems_interview ON problems(interview_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after
// the schema is applied. Useful for tests to seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	st, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(st.db); err != nil {
			st.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return st, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO users (id, name, email, password_hash)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, name, email, passwordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, image, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, image, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// ==== InterviewStore implementation ====

// CreateInterview persists a new interview. ID and RoomID must be set by
// the caller; CreatedAt is filled in here.
func (s *SQLiteStore) CreateInterview(ctx context.Context, iv *store.Interview) error {
	if iv.Status == "" {
		iv.Status = store.InterviewStatusPending
	}
	iv.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO interviews (id, room_id, interviewer_id, interviewee_id, title, description, status, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		iv.ID, iv.RoomID, iv.InterviewerID, iv.IntervieweeID,
		iv.Title, iv.Description, string(iv.Status), iv.StartTime, iv.EndTime, iv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

// GetInterviewByRoom retrieves the interview behind a room identifier.
func (s *SQLiteStore) GetInterviewByRoom(ctx context.Context, roomID string) (*store.Interview, error) {
	query := `
		SELECT id, room_id, interviewer_id, interviewee_id, title, description, status, start_time, end_time, created_at
		FROM interviews
		WHERE room_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, roomID)

	var iv store.Interview
	var status string
	err := row.Scan(&iv.ID, &iv.RoomID, &iv.InterviewerID, &iv.IntervieweeID,
		&iv.Title, &iv.Description, &status, &iv.StartTime, &iv.EndTime, &iv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan interview: %w", err)
	}
	iv.Status = store.InterviewStatus(status)
	return &iv, nil
}

// ListInterviews lists interviews where the user is a participant.
func (s *SQLiteStore) ListInterviews(ctx context.Context, userID string) ([]*store.Interview, error) {
	query := `
		SELECT id, room_id, interviewer_id, interviewee_id, title, description, status, start_time, end_time, created_at
		FROM interviews
		WHERE interviewer_id = ? OR interviewee_id = ?
		ORDER BY start_time DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []*store.Interview
	for rows.Next() {
		var iv store.Interview
		var status string
		if err := rows.Scan(&iv.ID, &iv.RoomID, &iv.InterviewerID, &iv.IntervieweeID,
			&iv.Title, &iv.Description, &status, &iv.StartTime, &iv.EndTime, &iv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		iv.Status = store.InterviewStatus(status)
		interviews = append(interviews, &iv)
	}
	return interviews, rows.Err()
}

// UpdateInterviewStatus transitions an interview's lifecycle state.
func (s *SQLiteStore) UpdateInterviewStatus(ctx context.Context, id string, status store.InterviewStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE interviews SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update interview status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==== MessageStore implementation ====

// CreateMessage persists a message and returns it with the generated id,
// timestamp, and sender descriptor.
func (s *SQLiteStore) CreateMessage(ctx context.Context, interviewID, fromUserID, toUserID, content string) (*store.Message, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO messages (id, interview_id, from_user_id, to_user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, interviewID, fromUserID, toUserID, content, createdAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	sender, err := s.GetUserByID(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}

	return &store.Message{
		ID:          id,
		InterviewID: interviewID,
		FromUserID:  fromUserID,
		ToUserID:    toUserID,
		Content:     content,
		CreatedAt:   createdAt,
		FromName:    sender.Name,
		FromImage:   sender.Image,
	}, nil
}

// ListMessages retrieves an interview's messages oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, interviewID string) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.interview_id, m.from_user_id, m.to_user_id, m.content, m.created_at, u.name, u.image
		FROM messages m
		JOIN users u ON u.id = m.from_user_id
		WHERE m.interview_id = ?
		ORDER BY m.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, interviewID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.InterviewID, &m.FromUserID, &m.ToUserID,
			&m.Content, &m.CreatedAt, &m.FromName, &m.FromImage); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// ==== ProblemStore implementation ====

// CreateProblem persists a problem for an interview.
func (s *SQLiteStore) CreateProblem(ctx context.Context, p *store.Problem) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query := `
		INSERT INTO problems (id, interview_id, title, description, score)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.InterviewID, p.Title, p.Description, p.Score); err != nil {
		return fmt.Errorf("insert problem: %w", err)
	}
	return nil
}

// GetProblem retrieves a problem by ID.
func (s *SQLiteStore) GetProblem(ctx context.Context, id string) (*store.Problem, error) {
	query := `
		SELECT id, interview_id, title, description, score
		FROM problems
		WHERE id = ?
	`
	var p store.Problem
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.InterviewID, &p.Title, &p.Description, &p.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan problem: %w", err)
	}
	return &p, nil
}

// CreateTestCase persists a test case for a problem.
func (s *SQLiteStore) CreateTestCase(ctx context.Context, tc *store.TestCase) error {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	query := `
		INSERT INTO test_cases (id, problem_id, input, output)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, tc.ID, tc.ProblemID, tc.Input, tc.Output); err != nil {
		return fmt.Errorf("insert test case: %w", err)
	}
	return nil
}

// ListTestCases lists a problem's test cases.
func (s *SQLiteStore) ListTestCases(ctx context.Context, problemID string) ([]*store.TestCase, error) {
	query := `
		SELECT id, problem_id, input, output
		FROM test_cases
		WHERE problem_id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}
	defer rows.Close()

	var cases []*store.TestCase
	for rows.Next() {
		var tc store.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.Output); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		cases = append(cases, &tc)
	}
	return cases, rows.Err()
}

// Ensure SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)
