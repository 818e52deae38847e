package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

// postMessage sends a message through the HTTP side channel and asserts
// success.
func postMessage(t *testing.T, env *testEnv, token, roomID, content string) MessageResponse {
	t.Helper()

	body, _ := json.Marshal(SendMessageRequest{Content: content})
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/messages/"+roomID, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Success bool            `json:"success"`
		Data    MessageResponse `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success {
		t.Fatalf("send rejected: %s", result.Error)
	}
	return result.Data
}

func postMessageRaw(t *testing.T, env *testEnv, token, roomID string, body []byte) (*http.Response, Result) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/messages/"+roomID, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	defer resp.Body.Close()

	var result Result
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp, result
}

func TestPostMessagePersistsAndReturnsCanonicalForm(t *testing.T) {
	env := newTestEnv(t)

	sent := postMessage(t, env, env.interviewerToken, env.roomID, "  hello  ")
	if sent.MessageID == "" || sent.Timestamp == "" {
		t.Fatalf("response missing persistence fields: %+v", sent)
	}
	if sent.Content != "hello" {
		t.Fatalf("content not trimmed: %q", sent.Content)
	}
	if sent.From.ID != env.interviewerID || sent.From.Name != "Alice" {
		t.Fatalf("unexpected sender: %+v", sent.From)
	}

	// History is readable by the other participant, oldest first.
	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/messages/"+env.roomID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+env.intervieweeToken)

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Success bool              `json:"success"`
		Data    []MessageResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if !result.Success || len(result.Data) != 1 || result.Data[0].MessageID != sent.MessageID {
		t.Fatalf("unexpected history: %+v", result)
	}
}

func TestPostMessageRejections(t *testing.T) {
	env := newTestEnv(t)

	validBody, _ := json.Marshal(SendMessageRequest{Content: "hello"})
	emptyBody, _ := json.Marshal(SendMessageRequest{Content: "   "})

	cases := []struct {
		name   string
		token  string
		roomID string
		body   []byte
		status int
	}{
		{"no session", "", env.roomID, validBody, http.StatusUnauthorized},
		{"unknown room", env.interviewerToken, "missing-room", validBody, http.StatusNotFound},
		{"non-participant", env.outsiderToken, env.roomID, validBody, http.StatusForbidden},
		{"blank content", env.interviewerToken, env.roomID, emptyBody, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, result := postMessageRaw(t, env, tc.token, tc.roomID, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if result.Success {
				t.Fatal("rejected send reported success")
			}
			if result.Error == "" {
				t.Fatal("rejected send carries no error")
			}
		})
	}
}
