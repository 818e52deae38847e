package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/interviewhub/server/internal/auth"
)

func postJSON(t *testing.T, env *testEnv, path string, body any, token string) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env, "/api/register", RegisterRequest{
		Name:     "Carol",
		Email:    "carol@example.com",
		Password: "password123",
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if authResp.Token == "" {
		t.Fatal("expected token in response")
	}

	// Session cookie is set for the push-stream transport.
	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookie {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value != authResp.Token {
		t.Fatalf("session cookie not set: %+v", resp.Cookies())
	}

	// Duplicate email conflicts.
	dup := postJSON(t, env, "/api/register", RegisterRequest{
		Name:     "Carol Again",
		Email:    "carol@example.com",
		Password: "password123",
	}, "")
	defer dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", dup.StatusCode)
	}

	login := postJSON(t, env, "/api/login", LoginRequest{
		Email:    "carol@example.com",
		Password: "password123",
	}, "")
	defer login.Body.Close()
	if login.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", login.StatusCode)
	}

	badLogin := postJSON(t, env, "/api/login", LoginRequest{
		Email:    "carol@example.com",
		Password: "wrong-password",
	}, "")
	defer badLogin.Body.Close()
	if badLogin.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", badLogin.StatusCode)
	}
}

func TestCreateAndListInterviews(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env, "/api/interviews", CreateInterviewRequest{
		IntervieweeID: env.intervieweeID,
		Title:         "System design",
		StartTime:     time.Now().UTC().Add(time.Hour),
		EndTime:       time.Now().UTC().Add(2 * time.Hour),
	}, env.interviewerToken)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created InterviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.RoomID == "" || created.Status != "pending" {
		t.Fatalf("unexpected interview: %+v", created)
	}

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/interviews", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+env.interviewerToken)

	listResp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("list interviews: %v", err)
	}
	defer listResp.Body.Close()

	var list []InterviewResponse
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	// The seeded interview plus the one just created.
	if len(list) != 2 {
		t.Fatalf("expected 2 interviews, got %d", len(list))
	}
}

func TestAuthorizedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/interviews", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRTCTokenUnavailableWithoutCredentials(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/rtc-token?roomId="+env.roomID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+env.interviewerToken)

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestAddProblemAndTestCaseEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env, "/api/interviews/"+env.roomID+"/problems", AddProblemRequest{
		Title: "Two Sum",
		Score: 10,
	}, env.interviewerToken)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var problem struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if problem.ID == "" {
		t.Fatal("problem id missing")
	}

	// Interviewee may not add problems.
	denied := postJSON(t, env, "/api/interviews/"+env.roomID+"/problems", AddProblemRequest{
		Title: "Sneaky",
	}, env.intervieweeToken)
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", denied.StatusCode)
	}

	tcResp := postJSON(t, env, "/api/problems/"+problem.ID+"/testcases", AddTestCaseRequest{
		RoomID: env.roomID,
		Input:  "1 2",
		Output: "3",
	}, env.interviewerToken)
	defer tcResp.Body.Close()

	if tcResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", tcResp.StatusCode)
	}
}
