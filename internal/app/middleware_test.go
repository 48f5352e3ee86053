package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

func newTestStack(t *testing.T, final http.Handler) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionManager: shared.NewSessionManager(client, "tg_session", "session-secret", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("csrf-secret"),
	}
	handler := final
	stack := MiddlewareStack(cfg)
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}
	return handler
}

// establishSession drives a GET through the stack and returns the session
// cookies plus the token the response exposed.
func establishSession(t *testing.T, stack http.Handler) ([]*http.Cookie, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	stack.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("bootstrap get: status %d", rec.Code)
	}
	token := rec.Header().Get("X-CSRF-Token")
	if token == "" {
		t.Fatalf("safe response must expose the session token")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("bootstrap get must set the session cookie")
	}
	return cookies, token
}

func TestStackFormPostRoundTrip(t *testing.T) {
	var handled bool
	stack := newTestStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handled = true
		}
		w.WriteHeader(http.StatusOK)
	}))

	cookies, token := establishSession(t, stack)

	form := url.Values{shared.CSRFFormField: {token}}
	post := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		post.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	stack.ServeHTTP(rec, post)
	if rec.Code != http.StatusOK {
		t.Fatalf("token-bearing post blocked: status %d", rec.Code)
	}
	if !handled {
		t.Fatalf("post never reached the handler")
	}
}

func TestStackAcceptsHeaderToken(t *testing.T) {
	var handled bool
	stack := newTestStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handled = true
		}
		w.WriteHeader(http.StatusOK)
	}))

	cookies, token := establishSession(t, stack)

	post := httptest.NewRequest(http.MethodPost, "/org/team/grants", nil)
	post.Header.Set("X-CSRF-Token", token)
	for _, c := range cookies {
		post.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	stack.ServeHTTP(rec, post)
	if rec.Code != http.StatusOK || !handled {
		t.Fatalf("header token rejected: status %d handled %v", rec.Code, handled)
	}
}

func TestStackBlocksPostWithoutToken(t *testing.T) {
	stack := newTestStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Fatalf("handler must not run without a token")
		}
		w.WriteHeader(http.StatusOK)
	}))

	cookies, _ := establishSession(t, stack)

	post := httptest.NewRequest(http.MethodPost, "/login", nil)
	for _, c := range cookies {
		post.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	stack.ServeHTTP(rec, post)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("tokenless post must be blocked: status %d", rec.Code)
	}

	// A token presented without its session is rejected too.
	_, foreign := establishSession(t, stack)
	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.Header.Set("X-CSRF-Token", foreign)
	rec = httptest.NewRecorder()
	stack.ServeHTTP(rec, other)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign token on a fresh session must be blocked: status %d", rec.Code)
	}
}
