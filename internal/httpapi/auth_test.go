package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/auth"
	"horse.fit/fightdesk/internal/db"
)

type insertedSession struct {
	token      string
	reviewerID int64
	expiresAt  time.Time
}

type fakeAuthStore struct {
	reviewersByUsername map[string]*db.Reviewer
	sessions            map[string]*db.Reviewer
	inserted            []insertedSession
	insertedReviewers   map[string]string
	deletedSessions     []string
	deleteExpiredCalls  int
	sessionLookups      int
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		reviewersByUsername: map[string]*db.Reviewer{},
		sessions:            map[string]*db.Reviewer{},
		insertedReviewers:   map[string]string{},
	}
}

func (s *fakeAuthStore) ReviewerByUsername(_ context.Context, username string) (*db.Reviewer, error) {
	reviewer, exists := s.reviewersByUsername[username]
	if !exists {
		return nil, nil
	}
	copied := *reviewer
	return &copied, nil
}

func (s *fakeAuthStore) InsertReviewer(_ context.Context, username, passwordHash string) (bool, error) {
	if _, exists := s.reviewersByUsername[username]; exists {
		return false, nil
	}
	s.insertedReviewers[username] = passwordHash
	s.reviewersByUsername[username] = &db.Reviewer{
		ReviewerID:   int64(len(s.reviewersByUsername) + 1),
		Username:     username,
		PasswordHash: passwordHash,
	}
	return true, nil
}

func (s *fakeAuthStore) InsertSession(_ context.Context, token string, reviewerID int64, expiresAt time.Time) error {
	s.inserted = append(s.inserted, insertedSession{token: token, reviewerID: reviewerID, expiresAt: expiresAt})
	for _, reviewer := range s.reviewersByUsername {
		if reviewer.ReviewerID == reviewerID {
			copied := *reviewer
			s.sessions[token] = &copied
		}
	}
	return nil
}

func (s *fakeAuthStore) ReviewerBySessionToken(_ context.Context, token string) (*db.Reviewer, error) {
	s.sessionLookups++
	reviewer, exists := s.sessions[token]
	if !exists {
		return nil, nil
	}
	copied := *reviewer
	return &copied, nil
}

func (s *fakeAuthStore) DeleteSession(_ context.Context, token string) error {
	s.deletedSessions = append(s.deletedSessions, token)
	delete(s.sessions, token)
	return nil
}

func (s *fakeAuthStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	s.deleteExpiredCalls++
	return 0, nil
}

func newAuthTestServer(store *fakeAuthStore) *Server {
	return &Server{
		logger: zerolog.Nop(),
		opts: Options{
			SessionCookie: "fightdesk_session",
			SessionTTL:    time.Hour,
		},
		authStore: store,
	}
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireAuth_MissingCookieUnauthorized(t *testing.T) {
	t.Parallel()

	store := newFakeAuthStore()
	server := newAuthTestServer(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := server.requireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("requireAuth returned error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
	if store.sessionLookups != 0 {
		t.Fatalf("expected no session lookup without cookie, got %d", store.sessionLookups)
	}
}

func TestRequireAuth_UnknownSessionClearsCookie(t *testing.T) {
	t.Parallel()

	store := newFakeAuthStore()
	server := newAuthTestServer(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "fightdesk_session", Value: "stale-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := server.requireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("requireAuth returned error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
	if cookie := rec.Header().Get("Set-Cookie"); !strings.Contains(cookie, "fightdesk_session=") {
		t.Fatalf("expected cleared session cookie, got %q", cookie)
	}
}

func TestRequireAuth_ValidSessionSetsPrincipal(t *testing.T) {
	t.Parallel()

	store := newFakeAuthStore()
	store.reviewersByUsername["alice"] = &db.Reviewer{ReviewerID: 3, Username: "alice"}
	store.sessions["good-token"] = store.reviewersByUsername["alice"]
	server := newAuthTestServer(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "fightdesk_session", Value: "good-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen authPrincipal
	handler := server.requireAuth()(func(c echo.Context) error {
		principal, ok := principalFromContext(c)
		if !ok {
			t.Fatalf("expected principal on context")
		}
		seen = principal
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("requireAuth returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if seen.ReviewerID != 3 || seen.Username != "alice" {
		t.Fatalf("unexpected principal: %+v", seen)
	}
}

func TestHandleLogin_CreatesSessionAndSetsCookie(t *testing.T) {
	t.Parallel()

	passwordHash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store := newFakeAuthStore()
	store.reviewersByUsername["alice"] = &db.Reviewer{
		ReviewerID:   3,
		Username:     "alice",
		PasswordHash: passwordHash,
	}
	server := newAuthTestServer(store)

	c, rec := newJSONContext(http.MethodPost, "/api/v1/auth/login", `{"username":" Alice ","password":"hunter2"}`)
	if err := server.handleLogin(c); err != nil {
		t.Fatalf("handleLogin returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %s", rec.Code, rec.Body.String())
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one session insert, got %d", len(store.inserted))
	}
	if store.inserted[0].reviewerID != 3 {
		t.Fatalf("unexpected session reviewer: %d", store.inserted[0].reviewerID)
	}
	if store.deleteExpiredCalls != 1 {
		t.Fatalf("expected one expired-session cleanup call, got %d", store.deleteExpiredCalls)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "fightdesk_session="+store.inserted[0].token) {
		t.Fatalf("expected session cookie with issued token, got %q", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") {
		t.Fatalf("expected HttpOnly session cookie, got %q", cookie)
	}
}

func TestHandleLogin_WrongPasswordUnauthorized(t *testing.T) {
	t.Parallel()

	passwordHash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store := newFakeAuthStore()
	store.reviewersByUsername["alice"] = &db.Reviewer{
		ReviewerID:   3,
		Username:     "alice",
		PasswordHash: passwordHash,
	}
	server := newAuthTestServer(store)

	c, rec := newJSONContext(http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"wrong"}`)
	if err := server.handleLogin(c); err != nil {
		t.Fatalf("handleLogin returned error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("did not expect session insert on bad password, got %d", len(store.inserted))
	}
}

func TestHandleLogin_UnknownUserUnauthorized(t *testing.T) {
	t.Parallel()

	server := newAuthTestServer(newFakeAuthStore())

	c, rec := newJSONContext(http.MethodPost, "/api/v1/auth/login", `{"username":"nobody","password":"whatever"}`)
	if err := server.handleLogin(c); err != nil {
		t.Fatalf("handleLogin returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleLogout_DeletesSessionAndClearsCookie(t *testing.T) {
	t.Parallel()

	store := newFakeAuthStore()
	store.sessions["live-token"] = &db.Reviewer{ReviewerID: 3, Username: "alice"}
	server := newAuthTestServer(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "fightdesk_session", Value: "live-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := server.handleLogout(c); err != nil {
		t.Fatalf("handleLogout returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if len(store.deletedSessions) != 1 || store.deletedSessions[0] != "live-token" {
		t.Fatalf("unexpected deleted sessions: %#v", store.deletedSessions)
	}
	if cookie := rec.Header().Get("Set-Cookie"); !strings.Contains(cookie, "fightdesk_session=") {
		t.Fatalf("expected cleared session cookie, got %q", cookie)
	}
}

func TestEnsureDefaultReviewer_SeedsVerifiableHash(t *testing.T) {
	t.Parallel()

	store := newFakeAuthStore()
	if err := EnsureDefaultReviewer(context.Background(), store, " Admin ", "bootstrap-secret"); err != nil {
		t.Fatalf("EnsureDefaultReviewer returned error: %v", err)
	}

	hash, exists := store.insertedReviewers["admin"]
	if !exists {
		t.Fatalf("expected normalized admin reviewer to be seeded, got %#v", store.insertedReviewers)
	}
	if !auth.VerifyPassword("bootstrap-secret", hash) {
		t.Fatalf("seeded hash does not verify against the configured password")
	}
}

func TestEnsureDefaultReviewer_NoPasswordIsNoop(t *testing.T) {
	t.Parallel()

	store := newFakeAuthStore()
	if err := EnsureDefaultReviewer(context.Background(), store, "admin", "  "); err != nil {
		t.Fatalf("EnsureDefaultReviewer returned error: %v", err)
	}
	if len(store.insertedReviewers) != 0 {
		t.Fatalf("expected no reviewer seeding without a password, got %#v", store.insertedReviewers)
	}
}

func TestSessionExpiryUsesConfiguredTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	server := &Server{opts: Options{SessionTTL: 6 * time.Hour}}

	got := server.sessionExpiry(now)
	want := now.Add(6 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("unexpected session expiry: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}
