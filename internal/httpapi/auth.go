package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/fightdesk/internal/auth"
	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
)

// authStore is the slice of the database the session layer needs.
type authStore interface {
	ReviewerByUsername(ctx context.Context, username string) (*db.Reviewer, error)
	InsertReviewer(ctx context.Context, username, passwordHash string) (bool, error)
	InsertSession(ctx context.Context, token string, reviewerID int64, expiresAt time.Time) error
	ReviewerBySessionToken(ctx context.Context, token string) (*db.Reviewer, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type authPrincipal struct {
	ReviewerID int64
	Username   string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// EnsureDefaultReviewer seeds the configured bootstrap account. It is a
// no-op when the username already exists or no password is configured.
func EnsureDefaultReviewer(ctx context.Context, store authStore, username, password string) error {
	username = auth.NormalizeUsername(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash default reviewer password: %w", err)
	}
	if _, err := store.InsertReviewer(ctx, username, hash); err != nil {
		return fmt.Errorf("seed default reviewer: %w", err)
	}
	return nil
}

func (s *Server) requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, found := s.sessionTokenFromCookie(c)
			if !found {
				return unauthorizedResponse(c)
			}

			reviewer, err := s.authStore.ReviewerBySessionToken(c.Request().Context(), token)
			if err != nil {
				s.logger.Error().Err(err).Msg("session lookup failed")
				return internalError(c, "Failed to authorize request")
			}
			if reviewer == nil {
				s.clearSessionCookie(c)
				return unauthorizedResponse(c)
			}

			c.Set("auth.principal", authPrincipal{
				ReviewerID: reviewer.ReviewerID,
				Username:   reviewer.Username,
			})
			return next(c)
		}
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	username := auth.NormalizeUsername(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		return failValidation(c, map[string]string{
			"credentials": "username and password are required",
		})
	}

	reviewer, err := s.authStore.ReviewerByUsername(c.Request().Context(), username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("login lookup failed")
		return internalError(c, "Failed to process login")
	}
	if reviewer == nil || !auth.VerifyPassword(password, reviewer.PasswordHash) {
		return fail(c, http.StatusUnauthorized, "Invalid username or password", nil)
	}

	if _, err := s.authStore.DeleteExpiredSessions(c.Request().Context()); err != nil {
		s.logger.Warn().Err(err).Msg("expired session cleanup failed")
	}

	token := uuid.NewString()
	expiresAt := s.sessionExpiry(globaltime.UTC())
	if err := s.authStore.InsertSession(c.Request().Context(), token, reviewer.ReviewerID, expiresAt); err != nil {
		s.logger.Error().Err(err).Int64("reviewer_id", reviewer.ReviewerID).Msg("create session failed")
		return internalError(c, "Failed to process login")
	}

	s.setSessionCookie(c, token, expiresAt)
	return success(c, map[string]any{
		"reviewer": map[string]any{
			"reviewer_id": reviewer.ReviewerID,
			"username":    reviewer.Username,
		},
		"session": map[string]any{
			"expires_at": expiresAt,
		},
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	if token, found := s.sessionTokenFromCookie(c); found {
		if err := s.authStore.DeleteSession(c.Request().Context(), token); err != nil {
			s.logger.Error().Err(err).Msg("delete session failed")
		}
	}
	s.clearSessionCookie(c)
	return success(c, map[string]any{"logged_out": true})
}

func (s *Server) handleMe(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}
	return success(c, map[string]any{
		"reviewer": map[string]any{
			"reviewer_id": principal.ReviewerID,
			"username":    principal.Username,
		},
	})
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}

func principalFromContext(c echo.Context) (authPrincipal, bool) {
	principal, ok := c.Get("auth.principal").(authPrincipal)
	return principal, ok
}

func (s *Server) sessionExpiry(now time.Time) time.Time {
	return now.Add(s.opts.SessionTTL)
}

func (s *Server) sessionTokenFromCookie(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(s.opts.SessionCookie)
	if err != nil || cookie == nil {
		return "", false
	}
	token := strings.TrimSpace(cookie.Value)
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) setSessionCookie(c echo.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(&http.Cookie{
		Name:     s.opts.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SessionSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.opts.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SessionSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  globaltime.UTC().Add(-1 * time.Hour),
	})
}

func decodeJSONBody(c echo.Context, out any) error {
	body := c.Request().Body
	if body == nil {
		return fmt.Errorf("request body is required")
	}
	defer body.Close()

	decoder := json.NewDecoder(io.LimitReader(body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
