package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/interviewhub/server/internal/proto"
)

// ErrNotConnected is returned when sending without an open connection.
// The error is also surfaced to error subscribers synchronously; messages
// are never queued for later delivery.
var ErrNotConnected = errors.New("not connected")

// SocketClient maintains a persistent duplex connection to the /ws
// endpoint and reconnects automatically when it drops.
type SocketClient struct {
	url  string
	opts options

	mu         sync.Mutex
	conn       *websocket.Conn
	readCancel context.CancelFunc
	roomID     string
	attempts   int
	connecting bool
	timer      *time.Timer

	messageHandlers    handlerList
	errorHandlers      handlerList
	connectHandlers    handlerList
	disconnectHandlers handlerList
}

// NewSocketClient creates a client for the given websocket URL
// (e.g. ws://host/ws).
func NewSocketClient(url string, opts ...Option) *SocketClient {
	return &SocketClient{
		url:  url,
		opts: buildOptions(opts),
	}
}

// Connect dials the server and joins roomID. Calling Connect while already
// connected to the same room resolves immediately. If another attempt is
// in flight the call waits and retries instead of opening a second socket.
func (c *SocketClient) Connect(ctx context.Context, roomID string) error {
	for {
		c.mu.Lock()
		if c.conn != nil && c.roomID == roomID {
			c.mu.Unlock()
			return nil
		}
		if !c.connecting {
			c.connecting = true
			c.roomID = roomID
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectRetryPoll):
		}
	}

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPClient: c.opts.httpClient,
		HTTPHeader: c.opts.header,
	})
	if err != nil {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()

		c.errorHandlers.dispatch("Connection error")
		c.disconnectHandlers.dispatch(nil)
		c.scheduleReconnect()
		return err
	}

	readCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.readCancel = cancel
	c.connecting = false
	c.attempts = 0
	c.mu.Unlock()

	// Join the room before announcing the connection.
	if err := wsjson.Write(ctx, conn, proto.Frame{Type: proto.TypeJoinRoom, RoomID: roomID}); err != nil {
		c.handleClose(conn)
		return err
	}

	c.connectHandlers.dispatch(nil)

	go c.readLoop(readCtx, conn)

	return nil
}

func (c *SocketClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			c.handleClose(conn)
			return
		}

		switch frame.Type {
		case proto.TypeMessage:
			if frame.MessageID != "" && frame.Content != "" && frame.From != nil {
				c.messageHandlers.dispatch(ChatMessage{
					MessageID: frame.MessageID,
					Content:   frame.Content,
					Timestamp: frame.Timestamp,
					From: Sender{
						ID:    frame.From.ID,
						Name:  frame.From.Name,
						Image: frame.From.Image,
					},
				})
			}
		case proto.TypeError:
			if frame.Error != "" {
				c.errorHandlers.dispatch(frame.Error)
			}
		default:
			// Unknown frame kinds are ignored for forward compatibility.
		}
	}
}

// handleClose runs once per underlying connection: it notifies disconnect
// subscribers and schedules a reconnect unless Disconnect cleared the room.
func (c *SocketClient) handleClose(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		// Stale close from a connection already replaced or torn down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.readCancel != nil {
		c.readCancel()
		c.readCancel = nil
	}
	c.mu.Unlock()

	c.disconnectHandlers.dispatch(nil)
	c.scheduleReconnect()
}

// scheduleReconnect arms the retry timer. The delay grows linearly with
// the attempt count and no attempts are scheduled past the ceiling.
func (c *SocketClient) scheduleReconnect() {
	c.mu.Lock()
	if c.roomID == "" || c.attempts >= c.opts.maxAttempts {
		c.mu.Unlock()
		return
	}
	c.attempts++
	delay := c.opts.interval * time.Duration(c.attempts)
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		roomID := c.roomID
		c.mu.Unlock()
		// Disconnect may have cleared the room while the timer was pending.
		if roomID != "" {
			_ = c.Connect(context.Background(), roomID)
		}
	})
	c.mu.Unlock()
}

// NotifyFocus triggers an immediate reconnect attempt if the client is
// disconnected with a room still set, bypassing the backoff delay.
func (c *SocketClient) NotifyFocus() {
	c.mu.Lock()
	roomID := c.roomID
	needsReconnect := roomID != "" && c.conn == nil && !c.connecting
	if needsReconnect && c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if needsReconnect {
		go func() {
			_ = c.Connect(context.Background(), roomID)
		}()
	}
}

// SendMessage sends a chat message to the joined room. When not connected
// the error is surfaced to error subscribers synchronously and returned;
// nothing is queued.
func (c *SocketClient) SendMessage(ctx context.Context, content string) error {
	c.mu.Lock()
	conn := c.conn
	roomID := c.roomID
	c.mu.Unlock()

	if conn == nil || roomID == "" {
		c.errorHandlers.dispatch("Not connected to a room")
		return ErrNotConnected
	}

	err := wsjson.Write(ctx, conn, proto.Frame{
		Type:    proto.TypeMessage,
		RoomID:  roomID,
		Content: content,
	})
	if err != nil {
		c.errorHandlers.dispatch("Failed to send message")
		return err
	}
	return nil
}

// Disconnect closes the connection and suppresses further auto-reconnects.
// The room is cleared before the close so the close handler cannot
// schedule a spurious retry.
func (c *SocketClient) Disconnect() {
	c.mu.Lock()
	c.roomID = ""
	c.attempts = 0
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	if c.readCancel != nil {
		c.readCancel()
		c.readCancel = nil
	}
	c.mu.Unlock()

	if conn != nil {
		// Best-effort leave; the server also cleans up on close.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = wsjson.Write(ctx, conn, proto.Frame{Type: proto.TypeLeaveRoom})
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		c.disconnectHandlers.dispatch(nil)
	}
}

// IsConnected reports whether the underlying socket is open.
func (c *SocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// OnMessage registers a chat message subscriber; the returned func
// removes it.
func (c *SocketClient) OnMessage(h MessageHandler) func() {
	return c.messageHandlers.add(func(arg any) { h(arg.(ChatMessage)) })
}

// OnError registers an error subscriber; the returned func removes it.
func (c *SocketClient) OnError(h ErrorHandler) func() {
	return c.errorHandlers.add(func(arg any) { h(arg.(string)) })
}

// OnConnect registers a connect subscriber; the returned func removes it.
func (c *SocketClient) OnConnect(h ConnHandler) func() {
	return c.connectHandlers.add(func(any) { h() })
}

// OnDisconnect registers a disconnect subscriber; the returned func
// removes it.
func (c *SocketClient) OnDisconnect(h ConnHandler) func() {
	return c.disconnectHandlers.add(func(any) { h() })
}
