package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/core"
	"github.com/interviewhub/server/internal/proto"
	"github.com/interviewhub/server/internal/store"
)

// Service is the shared room fan-out layer consumed by both transport
// endpoints: it authorizes participants, persists messages through the
// store, and broadcasts the canonical persisted frame. Keeping both
// transports on this one path prevents their semantics from drifting.
type Service struct {
	store    store.Store
	registry *core.Registry
	log      *zerolog.Logger
}

// New creates a room service.
func New(st store.Store, registry *core.Registry, logger *zerolog.Logger) *Service {
	return &Service{
		store:    st,
		registry: registry,
		log:      logger,
	}
}

// Registry exposes the connection registry for transport endpoints.
func (s *Service) Registry() *core.Registry {
	return s.registry
}

// Authorize verifies that userID is a participant of the interview behind
// roomID. It is called on every send, not just at join time, because
// sessions can expire mid-connection.
func (s *Service) Authorize(ctx context.Context, roomID, userID string) (*store.Interview, error) {
	iv, err := s.store.GetInterviewByRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup interview: %w", err)
	}
	if !iv.IsParticipant(userID) {
		return nil, core.ErrForbidden
	}
	return iv, nil
}

// SendMessage validates, persists, and broadcasts a chat message. The
// broadcast carries the canonical persisted version, so the sender receives
// the same frame as everyone else.
func (s *Service) SendMessage(ctx context.Context, roomID, userID, content string) (*store.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", core.ErrInvalidInput)
	}

	iv, err := s.Authorize(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	toUserID := iv.Counterpart(userID)

	msg, err := s.store.CreateMessage(ctx, iv.ID, userID, toUserID, content)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.registry.Broadcast(roomID, MessageFrame(roomID, msg))
	s.log.Debug().Str("room", roomID).Str("from", userID).Str("message_id", msg.ID).Msg("message broadcast")

	return msg, nil
}

// History returns the room's chat history for a participant, oldest first.
func (s *Service) History(ctx context.Context, roomID, userID string) ([]*store.Message, error) {
	iv, err := s.Authorize(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, iv.ID)
}

// ProblemInput carries a new problem's fields.
type ProblemInput struct {
	Title       string
	Description string
	Score       int
}

// AddProblem persists a problem for the interview and pushes a problemAdded
// frame to the room. Only the interviewer may add problems.
func (s *Service) AddProblem(ctx context.Context, roomID, userID string, in ProblemInput) (*store.Problem, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: problem title is required", core.ErrInvalidInput)
	}

	iv, err := s.Authorize(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if iv.InterviewerID != userID {
		return nil, core.ErrForbidden
	}

	p := &store.Problem{
		InterviewID: iv.ID,
		Title:       in.Title,
		Description: in.Description,
		Score:       in.Score,
	}
	if err := s.store.CreateProblem(ctx, p); err != nil {
		return nil, fmt.Errorf("persist problem: %w", err)
	}

	s.registry.Broadcast(roomID, proto.Frame{
		Type:   proto.TypeProblemAdded,
		RoomID: roomID,
		Problem: &proto.Problem{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Score:       p.Score,
		},
	})

	return p, nil
}

// AddTestCase persists a test case and pushes a testCaseAdded frame to the
// room. The problem must belong to the room's interview.
func (s *Service) AddTestCase(ctx context.Context, roomID, problemID, userID, input, output string) (*store.TestCase, error) {
	iv, err := s.Authorize(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if iv.InterviewerID != userID {
		return nil, core.ErrForbidden
	}

	p, err := s.store.GetProblem(ctx, problemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup problem: %w", err)
	}
	if p.InterviewID != iv.ID {
		return nil, core.ErrForbidden
	}

	tc := &store.TestCase{
		ProblemID: problemID,
		Input:     input,
		Output:    output,
	}
	if err := s.store.CreateTestCase(ctx, tc); err != nil {
		return nil, fmt.Errorf("persist test case: %w", err)
	}

	s.registry.Broadcast(roomID, proto.Frame{
		Type:      proto.TypeTestCaseAdded,
		RoomID:    roomID,
		ProblemID: problemID,
		TestCase: &proto.TestCase{
			TestCaseID: tc.ID,
			Input:      tc.Input,
			Output:     tc.Output,
		},
	})

	return tc, nil
}

// MessageFrame builds the canonical wire frame for a persisted message.
func MessageFrame(roomID string, msg *store.Message) proto.Frame {
	return proto.Frame{
		Type:      proto.TypeMessage,
		RoomID:    roomID,
		MessageID: msg.ID,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339),
		From: &proto.Sender{
			ID:    msg.FromUserID,
			Name:  msg.FromName,
			Image: msg.FromImage,
		},
	}
}
