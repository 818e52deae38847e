package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/interviewhub/server/internal/auth"
	"github.com/interviewhub/server/internal/proto"
)

func sseRequest(t *testing.T, env *testEnv, roomID, token string) *http.Response {
	t.Helper()

	url := env.ts.URL + "/api/sse"
	if roomID != "" {
		url += "?roomId=" + roomID
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	return resp
}

func TestSSERejectsBeforeStreaming(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		roomID string
		token  string
		status int
	}{
		{"missing room id", "", env.interviewerToken, http.StatusBadRequest},
		{"no session", env.roomID, "", http.StatusUnauthorized},
		{"unknown room", "missing-room", env.interviewerToken, http.StatusNotFound},
		{"non-participant", env.roomID, env.outsiderToken, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := sseRequest(t, env, tc.roomID, tc.token)
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestSSEAcceptsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/sse?roomId="+env.roomID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: env.interviewerToken})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// readEvent reads the next "data:" payload off the stream.
func readEvent(t *testing.T, r *bufio.Reader) []byte {
	t.Helper()

	var data bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if data.Len() > 0 {
				return data.Bytes()
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data: "); ok {
			data.WriteString(rest)
		}
	}
}

func TestSSEStreamsConnectedThenBroadcasts(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/sse?roomId="+env.roomID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+env.interviewerToken)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	reader := bufio.NewReader(resp.Body)

	var connected proto.Frame
	if err := json.Unmarshal(readEvent(t, reader), &connected); err != nil {
		t.Fatalf("unmarshal connected frame: %v", err)
	}
	if connected.Type != proto.TypeConnected || connected.RoomID != env.roomID {
		t.Fatalf("expected connected frame first, got %+v", connected)
	}

	// The stream is registered once the connected frame has arrived, so a
	// message sent through the side channel must reach it.
	postMessage(t, env, env.intervieweeToken, env.roomID, "hello over sse")

	var msg proto.Frame
	if err := json.Unmarshal(readEvent(t, reader), &msg); err != nil {
		t.Fatalf("unmarshal message frame: %v", err)
	}
	if msg.Type != proto.TypeMessage || msg.Content != "hello over sse" {
		t.Fatalf("unexpected frame: %+v", msg)
	}
	if msg.From == nil || msg.From.ID != env.intervieweeID {
		t.Fatalf("unexpected sender: %+v", msg.From)
	}
	if msg.MessageID == "" || msg.Timestamp == "" {
		t.Fatalf("frame missing persistence fields: %+v", msg)
	}
}
