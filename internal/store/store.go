package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// User represents a platform user.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Image        *string
	CreatedAt    time.Time
}

// InterviewStatus defines the lifecycle state of an interview.
type InterviewStatus string

const (
	InterviewStatusPending   InterviewStatus = "pending"
	InterviewStatusOngoing   InterviewStatus = "ongoing"
	InterviewStatusCompleted InterviewStatus = "completed"
	InterviewStatusCancelled InterviewStatus = "cancelled"
)

// Interview represents a scheduled interview session. RoomID is the opaque
// identifier shared by its two participants.
type Interview struct {
	ID            string
	RoomID        string
	InterviewerID string
	IntervieweeID string
	Title         string
	Description   string
	Status        InterviewStatus
	StartTime     time.Time
	EndTime       time.Time
	CreatedAt     time.Time
}

// Counterpart returns the other participant of the interview, or an empty
// string if userID is not a participant.
func (iv *Interview) Counterpart(userID string) string {
	switch userID {
	case iv.InterviewerID:
		return iv.IntervieweeID
	case iv.IntervieweeID:
		return iv.InterviewerID
	default:
		return ""
	}
}

// IsParticipant reports whether userID is the interviewer or interviewee.
func (iv *Interview) IsParticipant(userID string) bool {
	return userID == iv.InterviewerID || userID == iv.IntervieweeID
}

// Message represents a persisted chat message, with the sender descriptor
// joined in for broadcast.
type Message struct {
	ID          string
	InterviewID string
	FromUserID  string
	ToUserID    string
	Content     string
	CreatedAt   time.Time

	FromName  string
	FromImage *string
}

// Problem represents a coding problem attached to an interview.
type Problem struct {
	ID          string
	InterviewID string
	Title       string
	Description string
	Score       int
}

// TestCase represents a sample input/output pair for a problem.
type TestCase struct {
	ID        string
	ProblemID string
	Input     string
	Output    string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// InterviewStore handles interview persistence and room membership lookup.
type InterviewStore interface {
	// CreateInterview persists a new interview.
	CreateInterview(ctx context.Context, iv *Interview) error

	// GetInterviewByRoom retrieves the interview behind a room identifier.
	GetInterviewByRoom(ctx context.Context, roomID string) (*Interview, error)

	// ListInterviews lists interviews where the user is a participant,
	// newest start time first.
	ListInterviews(ctx context.Context, userID string) ([]*Interview, error)

	// UpdateInterviewStatus transitions an interview's lifecycle state.
	UpdateInterviewStatus(ctx context.Context, id string, status InterviewStatus) error
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// CreateMessage persists a message and returns it with a generated id,
	// timestamp, and the sender descriptor joined in.
	CreateMessage(ctx context.Context, interviewID, fromUserID, toUserID, content string) (*Message, error)

	// ListMessages retrieves an interview's messages oldest first.
	ListMessages(ctx context.Context, interviewID string) ([]*Message, error)
}

// ProblemStore handles problem and test case persistence.
type ProblemStore interface {
	// CreateProblem persists a problem for an interview.
	CreateProblem(ctx context.Context, p *Problem) error

	// GetProblem retrieves a problem by ID.
	GetProblem(ctx context.Context, id string) (*Problem, error)

	// CreateTestCase persists a test case for a problem.
	CreateTestCase(ctx context.Context, tc *TestCase) error

	// ListTestCases lists a problem's test cases.
	ListTestCases(ctx context.Context, problemID string) ([]*TestCase, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	InterviewStore
	MessageStore
	ProblemStore

	// Close closes the underlying database connection.
	Close() error
}
