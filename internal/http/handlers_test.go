package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitritashenov-cyber/video-chat/internal/app"
	"github.com/dmitritashenov-cyber/video-chat/internal/store"
	"github.com/dmitritashenov-cyber/video-chat/internal/ws"
	"github.com/dmitritashenov-cyber/video-chat/pkg/metrics"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]string
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[string]string{}} }

func (f *fakeUsers) Authenticate(_ context.Context, username, password string) (store.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.users[username]; ok {
		if pw == password {
			return store.AuthOK, nil
		}
		return store.AuthWrongPassword, nil
	}
	f.users[username] = password
	return store.AuthCreated, nil
}

func (f *fakeUsers) Exists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

type fakeRooms struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakeRooms() *fakeRooms { return &fakeRooms{m: map[string]string{}} }

func (f *fakeRooms) RoomForUser(_ context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.m[username]; ok {
		return id, nil
	}
	id := fmt.Sprintf("room-%d", len(f.m)+1)
	f.m[username] = id
	return id, nil
}

type fakeInbox struct {
	mu sync.Mutex
	m  map[string][]string
}

func newFakeInbox() *fakeInbox { return &fakeInbox{m: map[string][]string{}} }

func (f *fakeInbox) Append(_ context.Context, username, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[username] = append(f.m[username], text)
	return nil
}

func (f *fakeInbox) Drain(_ context.Context, username string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.m[username]
	delete(f.m, username)
	return out, nil
}

type testEnv struct {
	router http.Handler
	users  *fakeUsers
	rooms  *fakeRooms
	inbox  *fakeInbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := app.Config{
		Env:         "test",
		HTTPAddr:    ":0",
		JWTSecret:   "test-secret",
		CORSAllow:   []string{"*"},
		StaticDir:   t.TempDir(),
		SendTimeout: time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(logger, metrics.NewSignaling(prometheus.NewRegistry()), cfg.SendTimeout)
	env := &testEnv{
		users: newFakeUsers(),
		rooms: newFakeRooms(),
		inbox: newFakeInbox(),
	}
	env.router = NewRouter(cfg, logger, hub, env.users, env.rooms, env.inbox)
	return env
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLoginRegistersAndRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}})
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", rec.Code, rec.Body)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard?user=alice" {
		t.Fatalf("location = %q", loc)
	}

	// same credentials sign in again
	rec = env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}})
	if rec.Code != http.StatusFound {
		t.Fatalf("repeat login status = %d, want 302", rec.Code)
	}

	// wrong password is rejected
	rec = env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "password"},
		{"bad characters", "al!ce", "password"},
		{"only separators", "___", "password"},
		{"short password", "alice", "pw"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.postForm(t, "/login", url.Values{"username": {tc.username}, "password": {tc.password}})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDashboardRequiresKnownUser(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/dashboard?user=ghost")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestDashboardShowsRoomLinkAndDrainsInbox(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}})
	_ = env.inbox.Append(context.Background(), "alice", "From bob: /static/room.html?room=abc")

	rec := env.get(t, "/dashboard?user=alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/static/room.html?room=room-1") {
		t.Fatalf("room link missing from dashboard: %s", body)
	}
	if !strings.Contains(body, "From bob:") {
		t.Fatalf("inbox note missing from dashboard: %s", body)
	}

	// drained: a second view shows no messages
	body = env.get(t, "/dashboard?user=alice").Body.String()
	if strings.Contains(body, "From bob:") {
		t.Fatalf("inbox not drained: %s", body)
	}
	if !strings.Contains(body, "No messages") {
		t.Fatalf("empty inbox placeholder missing: %s", body)
	}
}

func TestRoomAssignmentIsStable(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}})

	first := env.get(t, "/dashboard?user=alice").Body.String()
	second := env.get(t, "/dashboard?user=alice").Body.String()
	if !strings.Contains(second, "room-1") || !strings.Contains(first, "room-1") {
		t.Fatalf("room assignment changed between views")
	}
}

func TestSendLink(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}})
	env.postForm(t, "/login", url.Values{"username": {"bob"}, "password": {"pw2"}})

	form := url.Values{"sender": {"alice"}, "recipient": {"bob"}, "link": {"/static/room.html?room=r1"}}
	rec := env.postForm(t, "/send_link", form)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	notes, _ := env.inbox.Drain(context.Background(), "bob")
	if len(notes) != 1 || notes[0] != "From alice: /static/room.html?room=r1" {
		t.Fatalf("bob inbox = %v", notes)
	}

	// unknown recipient: silent redirect, nothing queued
	form.Set("recipient", "ghost")
	rec = env.postForm(t, "/send_link", form)
	if rec.Code != http.StatusFound {
		t.Fatalf("unknown recipient status = %d, want 302", rec.Code)
	}

	// self-send dropped
	form.Set("recipient", "alice")
	env.postForm(t, "/send_link", form)
	if notes, _ := env.inbox.Drain(context.Background(), "alice"); len(notes) != 0 {
		t.Fatalf("self-send queued: %v", notes)
	}

	// unknown sender rejected
	form.Set("sender", "ghost")
	rec = env.postForm(t, "/send_link", form)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown sender status = %d, want 401", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}})

	rec := env.get(t, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Status      string `json:"status"`
		ActiveRooms int    `json:"active_rooms"`
		TotalUsers  int    `json:"total_users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "healthy" || got.ActiveRooms != 0 || got.TotalUsers != 1 {
		t.Fatalf("health = %+v", got)
	}
}

func TestAPILoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	body := strings.NewReader(`{"username":"alice","password":"pw1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("api login status = %d; body: %s", rec.Code, rec.Body)
	}
	var tok struct {
		Token   string `json:"token"`
		Created bool   `json:"created"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.Token == "" || !tok.Created {
		t.Fatalf("token resp = %+v", tok)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"alice"`) {
		t.Fatalf("me = %d %s", rec.Code, rec.Body)
	}

	// no token
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token = %d, want 401", rec.Code)
	}
}
