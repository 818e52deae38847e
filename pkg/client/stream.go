package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/interviewhub/server/internal/proto"
)

// ProblemAddedHandler receives problems pushed to the room.
type ProblemAddedHandler func(problem ProblemAdded)

// TestCaseAddedHandler receives test cases pushed to the room.
type TestCaseAddedHandler func(added TestCaseAdded)

// ProblemAdded is a problem pushed over the stream.
type ProblemAdded struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// TestCaseAdded is a test case pushed over the stream.
type TestCaseAdded struct {
	ProblemID  string `json:"problemId"`
	TestCaseID string `json:"testCaseId"`
	Input      string `json:"input"`
	Output     string `json:"output"`
}

// StreamClient consumes the one-way push stream at /api/sse and sends
// messages through the HTTP side channel, since the stream itself is
// receive-only for the client.
type StreamClient struct {
	baseURL string
	opts    options

	mu         sync.Mutex
	cancel     context.CancelFunc
	open       bool
	roomID     string
	attempts   int
	connecting bool
	timer      *time.Timer

	messageHandlers    handlerList
	problemHandlers    handlerList
	testCaseHandlers   handlerList
	errorHandlers      handlerList
	connectHandlers    handlerList
	disconnectHandlers handlerList
}

// NewStreamClient creates a client for the given base URL
// (e.g. http://host).
func NewStreamClient(baseURL string, opts ...Option) *StreamClient {
	return &StreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    buildOptions(opts),
	}
}

// Connect opens the push stream for roomID. Calling Connect while already
// streaming the same room resolves immediately; a concurrent attempt is
// waited on instead of opening a duplicate stream.
func (c *StreamClient) Connect(ctx context.Context, roomID string) error {
	for {
		c.mu.Lock()
		if c.open && c.roomID == roomID {
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

	streamCtx, cancel := context.WithCancel(context.Background())

	resp, err := c.openStream(streamCtx, roomID)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()

		c.errorHandlers.dispatch("Connection error")
		c.disconnectHandlers.dispatch(nil)
		c.scheduleReconnect()
		return err
	}

	c.mu.Lock()
	c.open = true
	c.cancel = cancel
	c.connecting = false
	c.attempts = 0
	c.mu.Unlock()

	c.connectHandlers.dispatch(nil)

	go c.readLoop(resp.Body, cancel)

	return nil
}

func (c *StreamClient) openStream(ctx context.Context, roomID string) (*http.Response, error) {
	streamURL := fmt.Sprintf("%s/api/sse?roomId=%s", c.baseURL, url.QueryEscape(roomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.opts.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream rejected: %s", resp.Status)
	}
	return resp, nil
}

// readLoop parses "data:" lines off the stream and dispatches frames until
// the stream ends.
func (c *StreamClient) readLoop(body io.ReadCloser, cancel context.CancelFunc) {
	defer body.Close()
	defer cancel()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			if data.Len() > 0 {
				c.handleFrame(data.Bytes())
				data.Reset()
			}
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data.Write(bytes.TrimPrefix(rest, []byte(" ")))
		}
	}

	c.handleClose()
}

func (c *StreamClient) handleFrame(data []byte) {
	var frame proto.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	switch frame.Type {
	case proto.TypeConnected:
		// Stream confirmed; nothing to dispatch.
	case proto.TypeMessage:
		if frame.From != nil {
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
	case proto.TypeProblemAdded:
		if frame.Problem != nil {
			c.problemHandlers.dispatch(ProblemAdded{
				ID:          frame.Problem.ID,
				Title:       frame.Problem.Title,
				Description: frame.Problem.Description,
				Score:       frame.Problem.Score,
			})
		}
	case proto.TypeTestCaseAdded:
		if frame.TestCase != nil {
			c.testCaseHandlers.dispatch(TestCaseAdded{
				ProblemID:  frame.ProblemID,
				TestCaseID: frame.TestCase.TestCaseID,
				Input:      frame.TestCase.Input,
				Output:     frame.TestCase.Output,
			})
		}
	case proto.TypeError:
		if frame.Error != "" {
			c.errorHandlers.dispatch(frame.Error)
		}
	}
}

func (c *StreamClient) handleClose() {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.cancel = nil
	c.mu.Unlock()

	if !wasOpen {
		return
	}

	c.disconnectHandlers.dispatch(nil)
	c.scheduleReconnect()
}

// scheduleReconnect mirrors the socket client: linear backoff with a fixed
// attempt ceiling, suppressed once Disconnect clears the room.
func (c *StreamClient) scheduleReconnect() {
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
		if roomID != "" {
			_ = c.Connect(context.Background(), roomID)
		}
	})
	c.mu.Unlock()
}

// NotifyFocus triggers an immediate reconnect attempt if the stream is
// down with a room still set, bypassing the backoff delay.
func (c *StreamClient) NotifyFocus() {
	c.mu.Lock()
	roomID := c.roomID
	needsReconnect := roomID != "" && !c.open && !c.connecting
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

// SendMessage posts a chat message through the HTTP side channel. Server
// rejections are surfaced to error subscribers.
func (c *StreamClient) SendMessage(ctx context.Context, content string) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()

	if roomID == "" {
		c.errorHandlers.dispatch("Not connected to a room")
		return ErrNotConnected
	}

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	sendURL := fmt.Sprintf("%s/api/messages/%s", c.baseURL, url.PathEscape(roomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	for k, vs := range c.opts.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		c.errorHandlers.dispatch("Failed to send message")
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.errorHandlers.dispatch("Failed to send message")
		return err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Failed to send message"
		}
		c.errorHandlers.dispatch(msg)
		return fmt.Errorf("send rejected: %s", msg)
	}
	return nil
}

// Disconnect closes the stream and suppresses further auto-reconnects.
// The room is cleared before the stream is cancelled so the close handler
// cannot schedule a spurious retry.
func (c *StreamClient) Disconnect() {
	c.mu.Lock()
	c.roomID = ""
	c.attempts = 0
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsConnected reports whether the stream is open.
func (c *StreamClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// OnMessage registers a chat message subscriber; the returned func
// removes it.
func (c *StreamClient) OnMessage(h MessageHandler) func() {
	return c.messageHandlers.add(func(arg any) { h(arg.(ChatMessage)) })
}

// OnProblemAdded registers a problem subscriber; the returned func
// removes it.
func (c *StreamClient) OnProblemAdded(h ProblemAddedHandler) func() {
	return c.problemHandlers.add(func(arg any) { h(arg.(ProblemAdded)) })
}

// OnTestCaseAdded registers a test case subscriber; the returned func
// removes it.
func (c *StreamClient) OnTestCaseAdded(h TestCaseAddedHandler) func() {
	return c.testCaseHandlers.add(func(arg any) { h(arg.(TestCaseAdded)) })
}

// OnError registers an error subscriber; the returned func removes it.
func (c *StreamClient) OnError(h ErrorHandler) func() {
	return c.errorHandlers.add(func(arg any) { h(arg.(string)) })
}

// OnConnect registers a connect subscriber; the returned func removes it.
func (c *StreamClient) OnConnect(h ConnHandler) func() {
	return c.connectHandlers.add(func(any) { h() })
}

// OnDisconnect registers a disconnect subscriber; the returned func
// removes it.
func (c *StreamClient) OnDisconnect(h ConnHandler) func() {
	return c.disconnectHandlers.add(func(any) { h() })
}
