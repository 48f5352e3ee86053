package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "tg_session", "session-secret", time.Hour, false)
}

func commitAndCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := sm.Commit(context.Background(), rec, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetPrincipal("7e6f0ac0-0000-4000-8000-000000000001")
	sess.Set("theme", "dark")

	cookie := commitAndCookie(t, sm, sess)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), again)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Principal() != "7e6f0ac0-0000-4000-8000-000000000001" {
		t.Fatalf("principal did not survive the round trip: %q", loaded.Principal())
	}
	if loaded.Get("theme") != "dark" {
		t.Fatalf("values did not survive the round trip")
	}
}

func TestSessionDestroy(t *testing.T) {
	sm := newTestManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetPrincipal("someone")
	cookie := commitAndCookie(t, sm, sess)

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Principal() != "" {
		t.Fatalf("destroyed session must load anonymous")
	}
}

func TestRotateIDInvalidatesOldSession(t *testing.T) {
	sm := newTestManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetPrincipal("someone")
	oldCookie := commitAndCookie(t, sm, sess)
	oldID := sess.ID

	sm.RotateID(context.Background(), sess)
	if sess.ID == oldID {
		t.Fatalf("rotate must change the session id")
	}
	newCookie := commitAndCookie(t, sm, sess)
	if newCookie.Value == oldCookie.Value {
		t.Fatalf("rotated cookie must carry the new id")
	}

	// The old id no longer resolves to a principal.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(oldCookie)
	loaded, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Principal() != "" {
		t.Fatalf("old session id must be invalidated after rotation")
	}
}
