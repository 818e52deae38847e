// Package client provides Go clients for the room broadcast transports:
// a SocketClient speaking the duplex websocket protocol and a StreamClient
// consuming the one-way push stream with an HTTP send side channel. Both
// share the same reconnect behavior: automatic retries with growing delay
// up to a fixed ceiling, immediate retry on regained focus, and no retries
// after an explicit Disconnect.
package client

import (
	"net/http"
	"time"
)

// Defaults for the reconnect state machine.
const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectInterval    = time.Second

	// connectRetryPoll is how often a Connect call waiting on another
	// in-flight attempt re-checks the connection state.
	connectRetryPoll = 100 * time.Millisecond
)

// ChatMessage is a chat message as delivered to subscribers.
type ChatMessage struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	From      Sender `json:"from"`
}

// Sender describes who sent a message.
type Sender struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image,omitempty"`
}

type options struct {
	header      http.Header
	httpClient  *http.Client
	maxAttempts int
	interval    time.Duration
}

// Option configures a client.
type Option func(*options)

// WithHeader sets headers (e.g. Authorization) sent on every request.
func WithHeader(header http.Header) Option {
	return func(o *options) { o.header = header }
}

// WithHTTPClient sets the HTTP client used for requests and dials.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithMaxReconnectAttempts overrides the reconnect ceiling.
func WithMaxReconnectAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithReconnectInterval overrides the base reconnect delay. The delay for
// attempt n is interval * n, so it grows monotonically with attempt count.
func WithReconnectInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func buildOptions(opts []Option) options {
	o := options{
		header:      http.Header{},
		httpClient:  http.DefaultClient,
		maxAttempts: defaultMaxReconnectAttempts,
		interval:    defaultReconnectInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
