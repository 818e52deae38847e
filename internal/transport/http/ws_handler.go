package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/auth"
	"github.com/interviewhub/server/internal/config"
	"github.com/interviewhub/server/internal/core"
	"github.com/interviewhub/server/internal/proto"
	"github.com/interviewhub/server/internal/service/rooms"
)

// WSHandler serves the duplex socket transport: one persistent connection
// per client carrying join_room, message, and leave_room frames.
type WSHandler struct {
	rooms *rooms.Service
	auth  *auth.Service
	log   *zerolog.Logger

	maxMessageBytes int64
	writeTimeout    time.Duration

	// userConns maps userID to its most recent connection for targeted
	// addressing. Room fan-out goes through the registry instead.
	mu        sync.Mutex
	userConns map[string]*wsSession
}

// NewWSHandler builds a new duplex socket handler.
func NewWSHandler(roomSvc *rooms.Service, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		rooms:           roomSvc,
		auth:            authService,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		writeTimeout:    cfg.WriteTimeout,
		userConns:       make(map[string]*wsSession),
	}
}

// wsSession is the per-connection state the read loop mutates.
type wsSession struct {
	conn    *websocket.Conn
	reg     *core.Conn
	roomID  string
	userID  string
	cleanup sync.Once
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess := &wsSession{conn: conn}
	// Close and error both route through here; the leave must run once.
	defer h.leaveRoom(sess)

	err = h.readLoop(ctx, r, sess)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("user", sess.userID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, r *stdhttp.Request, sess *wsSession) error {
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, sess.conn, &frame); err != nil {
			return err
		}

		switch frame.Type {
		case proto.TypeJoinRoom:
			h.handleJoin(ctx, r, sess, frame)
		case proto.TypeMessage:
			h.handleMessage(ctx, r, sess, frame)
		case proto.TypeLeaveRoom:
			h.leaveRoom(sess)
		default:
			h.sendError(ctx, sess, "Unknown message type")
		}
	}
}

// handleJoin authorizes the client for the room and registers the
// connection for fan-out. Failures keep the connection open.
func (h *WSHandler) handleJoin(ctx context.Context, r *stdhttp.Request, sess *wsSession, frame proto.Frame) {
	if frame.RoomID == "" {
		h.sendError(ctx, sess, "Room ID is required")
		return
	}

	session, err := h.auth.GetSession(ctx, r)
	if err != nil {
		h.sendError(ctx, sess, "Unauthorized")
		return
	}
	userID := session.User.ID

	if _, err := h.rooms.Authorize(ctx, frame.RoomID, userID); err != nil {
		h.log.Debug().Str("room", frame.RoomID).Str("user", userID).Str("code", core.ErrorCode(err)).Msg("join denied")
		h.sendError(ctx, sess, domainErrorMessage(err))
		return
	}

	if sess.reg != nil {
		if sess.roomID == frame.RoomID {
			return
		}
		// Joining a different room implicitly leaves the old one.
		h.rooms.Registry().Unregister(sess.reg)
	}

	sink := &wsSink{conn: sess.conn, timeout: h.writeTimeout}
	sess.reg = h.rooms.Registry().Register(frame.RoomID, userID, sink)
	sess.roomID = frame.RoomID
	sess.userID = userID
	sess.cleanup = sync.Once{}

	h.mu.Lock()
	h.userConns[userID] = sess
	h.mu.Unlock()

	h.log.Debug().Str("room", frame.RoomID).Str("user", userID).Msg("user joined room")
}

// handleMessage re-validates authorization on every send since sessions can
// expire mid-connection, then persists and broadcasts through the shared
// room service.
func (h *WSHandler) handleMessage(ctx context.Context, r *stdhttp.Request, sess *wsSession, frame proto.Frame) {
	if frame.RoomID == "" || frame.Content == "" {
		h.sendError(ctx, sess, "Content and room ID are required")
		return
	}

	session, err := h.auth.GetSession(ctx, r)
	if err != nil {
		h.sendError(ctx, sess, "Unauthorized")
		return
	}

	if _, err := h.rooms.SendMessage(ctx, frame.RoomID, session.User.ID, frame.Content); err != nil {
		h.log.Debug().Str("room", frame.RoomID).Str("code", core.ErrorCode(err)).Msg("message rejected")
		h.sendError(ctx, sess, domainErrorMessage(err))
		return
	}
}

// leaveRoom unregisters the session from the registry and the user map.
// Safe to call multiple times; explicit leave_room, close, and error all
// funnel through here.
func (h *WSHandler) leaveRoom(sess *wsSession) {
	sess.cleanup.Do(func() {
		if sess.reg != nil {
			h.rooms.Registry().Unregister(sess.reg)
			sess.reg = nil
		}
		if sess.userID != "" {
			h.mu.Lock()
			if h.userConns[sess.userID] == sess {
				delete(h.userConns, sess.userID)
			}
			h.mu.Unlock()
			h.log.Debug().Str("room", sess.roomID).Str("user", sess.userID).Msg("user left room")
		}
		sess.roomID = ""
	})
}

func (h *WSHandler) sendError(ctx context.Context, sess *wsSession, msg string) {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, sess.conn, proto.ErrorFrame(msg)); err != nil {
		h.log.Warn().Err(err).Msg("write error frame")
	}
}

func domainErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, core.ErrNotFound):
		return "Interview not found"
	case errors.Is(err, core.ErrForbidden):
		return "Access denied"
	case errors.Is(err, core.ErrInvalidInput):
		return "Message content is required"
	default:
		return "Internal server error"
	}
}

// wsSink adapts a websocket connection to the registry's Sink. Writes are
// time-bounded so a stalled peer is pruned instead of blocking fan-out.
type wsSink struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *wsSink) Write(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, p)
}
