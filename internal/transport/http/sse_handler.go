package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/auth"
	"github.com/interviewhub/server/internal/core"
	"github.com/interviewhub/server/internal/proto"
	"github.com/interviewhub/server/internal/service/rooms"
)

// sseSinkBuffer bounds how far a stream may lag behind broadcasts before
// it is treated as dead.
const sseSinkBuffer = 16

// SSEHandler serves the push-stream transport: a long-lived one-way event
// stream per client, registered into the room registry for fan-out.
// Sending flows through the HTTP message endpoint instead.
type SSEHandler struct {
	rooms *rooms.Service
	auth  *auth.Service
	log   *zerolog.Logger
}

// NewSSEHandler builds a new push-stream handler.
func NewSSEHandler(roomSvc *rooms.Service, authService *auth.Service, logger *zerolog.Logger) *SSEHandler {
	return &SSEHandler{
		rooms: roomSvc,
		auth:  authService,
		log:   logger,
	}
}

// Handle authorizes the client and streams room broadcasts until the
// request context is cancelled. Authorization failures are reported via
// HTTP status codes since no stream exists yet to carry an error frame.
// GET /api/sse?roomId=...
func (h *SSEHandler) Handle(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.String(http.StatusBadRequest, "Room ID required")
		return
	}

	session, err := h.auth.GetSession(c.Request.Context(), c.Request)
	if err != nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	userID := session.User.ID

	if _, err := h.rooms.Authorize(c.Request.Context(), roomID, userID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			c.String(http.StatusNotFound, "Interview not found")
		case errors.Is(err, core.ErrForbidden):
			c.String(http.StatusForbidden, "Access denied")
		default:
			h.log.Error().Err(err).Str("room", roomID).Msg("sse authorization failed")
			c.String(http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	sink := newSSESink()
	conn := h.rooms.Registry().Register(roomID, userID, sink)
	defer func() {
		sink.close()
		h.rooms.Registry().Unregister(conn)
		h.log.Debug().Str("room", roomID).Str("user", userID).Msg("sse stream closed")
	}()

	// Initial confirmation frame, written directly before fan-out starts.
	writeEvent(c.Writer, mustMarshal(proto.Connected(roomID)))
	flusher.Flush()

	h.log.Debug().Str("room", roomID).Str("user", userID).Msg("sse stream opened")

	ctx := c.Request.Context()
	for {
		select {
		case data := <-sink.ch:
			if _, err := writeEvent(c.Writer, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, data []byte) (int, error) {
	return fmt.Fprintf(w, "data: %s\n\n", data)
}

func mustMarshal(frame proto.Frame) []byte {
	data, err := json.Marshal(frame)
	if err != nil {
		// Frame is a plain struct; marshal cannot fail in practice.
		return []byte(`{"type":"error","error":"internal"}`)
	}
	return data
}

// sseSink bridges registry broadcasts into the streaming response. Writes
// never block: a full buffer means the consumer is too slow and the
// registry should prune it.
type sseSink struct {
	ch     chan []byte
	closed atomic.Bool
}

func newSSESink() *sseSink {
	return &sseSink{ch: make(chan []byte, sseSinkBuffer)}
}

func (s *sseSink) Write(p []byte) error {
	if s.closed.Load() {
		return core.ErrSinkClosed
	}
	select {
	case s.ch <- p:
		return nil
	default:
		return fmt.Errorf("%w: slow consumer", core.ErrSinkClosed)
	}
}

func (s *sseSink) close() {
	s.closed.Store(true)
}
