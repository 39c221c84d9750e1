package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shilohnova/internal/api"
	"shilohnova/internal/auth"
	"shilohnova/internal/models"
	"shilohnova/internal/observability/metrics"
	"shilohnova/internal/storage"
	"shilohnova/internal/testsupport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) *api.Handler {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	creds, err := auth.NewStaticCredentials("admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	sessions := auth.NewSessionManager(time.Hour)
	return api.NewHandler(store, sessions, creds, discardLogger())
}

// errorRepository fails every operation with the configured error.
type errorRepository struct {
	err error
}

func (r errorRepository) Ping(context.Context) error  { return r.err }
func (r errorRepository) Close(context.Context) error { return nil }
func (r errorRepository) ListBlogPosts(context.Context) ([]models.BlogPost, error) {
	return nil, r.err
}
func (r errorRepository) CreateBlogPost(context.Context, string, string) (models.BlogPost, error) {
	return models.BlogPost{}, r.err
}
func (r errorRepository) DeleteBlogPost(context.Context, string) error { return r.err }
func (r errorRepository) ListProjects(context.Context) ([]models.Project, error) {
	return nil, r.err
}
func (r errorRepository) CreateProject(context.Context, string, string, string) (models.Project, error) {
	return models.Project{}, r.err
}
func (r errorRepository) DeleteProject(context.Context, string) error { return r.err }

func postJSON(handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == api.SessionCookieName {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	handler := newTestHandler(t)
	recorder := metrics.New()
	handler.Metrics = recorder

	rec := postJSON(handler.Login, "/api/login", `{"email":"admin@example.com","password":"correct horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Fatalf("expected Path=/, got %q", cookie.Path)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.MaxAge <= 0 {
		t.Fatalf("expected positive MaxAge, got %d", cookie.MaxAge)
	}
	if cookie.Secure {
		t.Fatal("plain HTTP request should not set Secure")
	}

	ok, err := handler.Sessions.Validate(cookie.Value)
	if err != nil || !ok {
		t.Fatalf("issued token should validate: ok=%v err=%v", ok, err)
	}

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `shilohnova_session_events_total{event="created"} 1`) {
		t.Fatalf("login should count a created session event:\n%s", out.String())
	}
}

func TestErrorResponsesUseRequestErrorShape(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(handler.Login, "/api/login", `{"email":"admin@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var reqErr api.RequestError
	if err := json.Unmarshal(rec.Body.Bytes(), &reqErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if reqErr.Message != "invalid credentials" {
		t.Fatalf("unexpected error message %q", reqErr.Message)
	}
}

func TestLoginMarksCookieSecureBehindTLSProxy(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"admin@example.com","password":"correct horse"}`))
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sessionCookie(t, rec).Secure {
		t.Fatal("expected Secure cookie when the proxy terminated TLS")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "wrong password", body: `{"email":"admin@example.com","password":"nope"}`},
		{name: "wrong email", body: `{"email":"intruder@example.com","password":"correct horse"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(handler.Login, "/api/login", tc.body)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Fatal("rejected login must not set a cookie")
			}
		})
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"email":`},
		{name: "unknown field", body: `{"email":"a","password":"b","remember":true}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(handler.Login, "/api/login", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestLoginRequiresPost(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow: POST, got %q", allow)
	}
}

func TestLoginSessionStoreFailure(t *testing.T) {
	handler := newTestHandler(t)
	store := testsupport.NewSessionStoreStub()
	store.SaveErr = errors.New("store offline")
	handler.Sessions = auth.NewSessionManager(time.Hour, auth.WithStore(store))

	rec := postJSON(handler.Login, "/api/login", `{"email":"admin@example.com","password":"correct horse"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("failed login must not set a cookie")
	}
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	handler.Store = errorRepository{err: errors.New("datastore offline")}
	rec = httptest.NewRecorder()
	handler.Health(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthorizeRequest(t *testing.T) {
	handler := newTestHandler(t)

	token, _, err := handler.Sessions.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   bool
	}{
		{name: "no cookie", cookie: nil, want: false},
		{name: "empty value", cookie: &http.Cookie{Name: api.SessionCookieName, Value: ""}, want: false},
		{name: "unknown token", cookie: &http.Cookie{Name: api.SessionCookieName, Value: "bogus"}, want: false},
		{name: "live token", cookie: &http.Cookie{Name: api.SessionCookieName, Value: token}, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/adminpanel", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			ok, err := handler.AuthorizeRequest(req)
			if err != nil {
				t.Fatalf("authorize: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, ok)
			}
		})
	}
}
