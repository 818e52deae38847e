package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/auth"
	"github.com/interviewhub/server/internal/config"
	"github.com/interviewhub/server/internal/core"
	"github.com/interviewhub/server/internal/rtc/livekit"
	"github.com/interviewhub/server/internal/service/rooms"
	"github.com/interviewhub/server/internal/store"
	"github.com/interviewhub/server/internal/store/sqlite"
)

// testEnv is a running server with two seeded participants, one outsider,
// and an interview between the participants.
type testEnv struct {
	ts       *httptest.Server
	registry *core.Registry

	roomID string

	interviewerID    string
	intervieweeID    string
	interviewerToken string
	intervieweeToken string
	outsiderToken    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authSvc := auth.NewService(st, jwtConfig)

	ctx := context.Background()

	interviewerToken, err := authSvc.Register(ctx, "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("register interviewer: %v", err)
	}
	intervieweeToken, err := authSvc.Register(ctx, "Bob", "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("register interviewee: %v", err)
	}
	outsiderToken, err := authSvc.Register(ctx, "Mallory", "mallory@example.com", "password123")
	if err != nil {
		t.Fatalf("register outsider: %v", err)
	}

	interviewer, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("lookup interviewer: %v", err)
	}
	interviewee, err := st.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("lookup interviewee: %v", err)
	}

	roomID := "room-abc"
	iv := &store.Interview{
		ID:            uuid.NewString(),
		RoomID:        roomID,
		InterviewerID: interviewer.ID,
		IntervieweeID: interviewee.ID,
		Title:         "Backend screen",
		StartTime:     time.Now().UTC(),
		EndTime:       time.Now().UTC().Add(time.Hour),
	}
	if err := st.CreateInterview(ctx, iv); err != nil {
		t.Fatalf("create interview: %v", err)
	}

	registry := core.NewRegistry(&logger)
	roomSvc := rooms.New(st, registry, &logger)
	rtc := livekit.New("", "", "")

	cfg := config.Default()
	cfg.Addr = ":0"

	server := NewServer(roomSvc, authSvc, st, rtc, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:               ts,
		registry:         registry,
		roomID:           roomID,
		interviewerID:    interviewer.ID,
		intervieweeID:    interviewee.ID,
		interviewerToken: interviewerToken,
		intervieweeToken: intervieweeToken,
		outsiderToken:    outsiderToken,
	}
}
