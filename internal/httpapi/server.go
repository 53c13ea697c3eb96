// Package httpapi serves the review API. Reviewers authenticate with a
// session cookie, work the pending queue, and read the consistency and
// reconciliation reports the batch jobs produce.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/consistency"
	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
	"horse.fit/fightdesk/internal/match"
	"horse.fit/fightdesk/internal/pending"
	"horse.fit/fightdesk/internal/reader"
	"horse.fit/fightdesk/internal/report"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration
	SessionCookie   string
	SessionSecure   bool
	CORSOrigins     []string
	PreviewMaxChars int
	DetectLanguage  bool
}

type Server struct {
	pool      *db.Pool
	logger    zerolog.Logger
	opts      Options
	workflow  *pending.Workflow
	authStore authStore
}

func NewServer(pool *db.Pool, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	sessionCookie := strings.TrimSpace(opts.SessionCookie)
	if sessionCookie == "" {
		sessionCookie = "fightdesk_session"
	}
	corsOrigins := opts.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	previewMaxChars := opts.PreviewMaxChars
	if previewMaxChars <= 0 {
		previewMaxChars = 4000
	}

	server := &Server{
		pool:   pool,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			SessionTTL:      sessionTTL,
			SessionCookie:   sessionCookie,
			SessionSecure:   opts.SessionSecure,
			CORSOrigins:     corsOrigins,
			PreviewMaxChars: previewMaxChars,
			DetectLanguage:  opts.DetectLanguage,
		},
	}

	store := db.NewStore(pool)
	server.authStore = store
	server.workflow = pending.New(match.New(store, logger), logger, server.opts.DetectLanguage)
	return server
}

func (s *Server) store() *db.Store {
	return db.NewStore(s.pool)
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.opts.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: !containsWildcard(s.opts.CORSOrigins),
		MaxAge:           3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/auth/login", s.handleLogin)

	authed := api.Group("", s.requireAuth())
	authed.POST("/auth/logout", s.handleLogout)
	authed.GET("/auth/me", s.handleMe)

	authed.GET("/pending", s.handlePendingList)
	authed.POST("/pending", s.handlePendingCreate)
	authed.GET("/pending/:pending_id", s.handlePendingDetail)
	authed.GET("/pending/:pending_id/preview", s.handlePendingPreview)
	authed.POST("/pending/:pending_id/rematch", s.handlePendingRematch)
	authed.POST("/pending/:pending_id/approve", s.handlePendingApprove)
	authed.POST("/pending/:pending_id/reject", s.handlePendingReject)
	authed.POST("/pending/:pending_id/duplicate", s.handlePendingDuplicate)
	authed.POST("/pending/:pending_id/promote", s.handlePendingPromote)

	authed.GET("/consistency", s.handleConsistency)
	authed.GET("/report", s.handleReport)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("fightdesk review API started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("fightdesk review API stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "fightdesk",
		"time":    globaltime.UTC(),
	})
}

type pendingItem struct {
	PendingFighterID int64               `json:"pending_fighter_id"`
	PendingUUID      string              `json:"pending_uuid"`
	FirstName        string              `json:"first_name"`
	LastName         string              `json:"last_name"`
	Nickname         *string             `json:"nickname,omitempty"`
	Nationality      *string             `json:"nationality,omitempty"`
	WeightClass      *string             `json:"weight_class,omitempty"`
	RecordText       *string             `json:"record_text,omitempty"`
	SourceKind       db.SourceKind       `json:"source_kind"`
	SourceEventName  *string             `json:"source_event_name,omitempty"`
	SourceURL        *string             `json:"source_url,omitempty"`
	DetectedLanguage *string             `json:"detected_language,omitempty"`
	Status           db.PendingStatus    `json:"status"`
	ConfidenceLevel  db.ConfidenceLevel  `json:"confidence_level"`
	PotentialMatches []db.PotentialMatch `json:"potential_matches,omitempty"`
	MatchedFighterID *int64              `json:"matched_fighter_id,omitempty"`
	CreatedFighterID *int64              `json:"created_fighter_id,omitempty"`
	ReviewedBy       *string             `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time          `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func pendingResponse(p *db.PendingFighter) pendingItem {
	item := pendingItem{
		PendingFighterID: p.PendingFighterID,
		PendingUUID:      p.PendingUUID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Nickname:         p.Nickname,
		Nationality:      p.Nationality,
		WeightClass:      p.WeightClass,
		RecordText:       p.RecordText,
		SourceKind:       p.SourceKind,
		SourceEventName:  p.SourceEventName,
		SourceURL:        p.SourceURL,
		DetectedLanguage: p.DetectedLanguage,
		Status:           p.Status,
		ConfidenceLevel:  p.ConfidenceLevel,
		MatchedFighterID: p.MatchedFighterID,
		CreatedFighterID: p.CreatedFighterID,
		ReviewedBy:       p.ReviewedBy,
		ReviewedAt:       p.ReviewedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if len(p.PotentialMatches) > 0 && string(p.PotentialMatches) != "null" {
		var matches []db.PotentialMatch
		if err := json.Unmarshal(p.PotentialMatches, &matches); err == nil {
			item.PotentialMatches = matches
		}
	}
	return item
}

func (s *Server) handlePendingList(c echo.Context) error {
	status, err := parsePendingStatus(c.QueryParam("status"))
	if err != nil {
		return failValidation(c, map[string]string{"status": err.Error()})
	}

	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	store := s.store()
	rows, err := store.ListPendingFighters(c.Request().Context(), status, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("list pending fighters failed")
		return internalError(c, "Failed to load pending fighters")
	}

	counts, err := store.PendingStatusCounts(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("pending status counts failed")
		return internalError(c, "Failed to load pending fighters")
	}

	items := make([]pendingItem, 0, len(rows))
	for i := range rows {
		items = append(items, pendingResponse(&rows[i]))
	}

	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":      page,
			"page_size": pageSize,
		},
		"counts": counts,
	})
}

type pendingCreateRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Nickname        string `json:"nickname"`
	Nationality     string `json:"nationality"`
	WeightClass     string `json:"weight_class"`
	RecordText      string `json:"record_text"`
	SourceEventName string `json:"source_event_name"`
	SourceURL       string `json:"source_url"`
}

func (s *Server) handlePendingCreate(c echo.Context) error {
	var req pendingCreateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return failValidation(c, map[string]string{"first_name": "is required"})
	}

	discovery := pending.Discovery{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Nickname:        req.Nickname,
		Nationality:     req.Nationality,
		WeightClass:     req.WeightClass,
		RecordText:      req.RecordText,
		SourceKind:      db.SourceManual,
		SourceEventName: req.SourceEventName,
		SourceURL:       req.SourceURL,
	}

	var created *db.PendingFighter
	err := db.WithTx(c.Request().Context(), s.pool, func(q db.Querier) error {
		var txErr error
		created, txErr = s.workflow.CreateFromScraping(c.Request().Context(), db.NewStore(q), discovery)
		return txErr
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("create pending fighter failed")
		return internalError(c, "Failed to create pending fighter")
	}

	return success(c, map[string]any{"pending": pendingResponse(created)})
}

func (s *Server) handlePendingDetail(c echo.Context) error {
	p, ok, err := s.loadPending(c)
	if err != nil || !ok {
		return err
	}
	return success(c, map[string]any{"pending": pendingResponse(p)})
}

func (s *Server) handlePendingPreview(c echo.Context) error {
	p, ok, err := s.loadPending(c)
	if err != nil || !ok {
		return err
	}
	if p.SourceURL == nil || strings.TrimSpace(*p.SourceURL) == "" {
		return failValidation(c, map[string]string{"source_url": "pending fighter has no source URL"})
	}

	title := strings.TrimSpace(p.FirstName + " " + p.LastName)
	text, err := reader.FetchText(c.Request().Context(), *p.SourceURL, title)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", *p.SourceURL).Msg("source preview fetch failed")
		return fail(c, http.StatusBadGateway, "Failed to fetch source page", nil)
	}

	text, truncated := reader.TruncateText(text, s.opts.PreviewMaxChars)
	return success(c, map[string]any{
		"url":       *p.SourceURL,
		"text":      text,
		"truncated": truncated,
	})
}

func (s *Server) handlePendingRematch(c echo.Context) error {
	p, ok, err := s.loadPending(c)
	if err != nil || !ok {
		return err
	}

	err = db.WithTx(c.Request().Context(), s.pool, func(q db.Querier) error {
		return s.workflow.RunMatching(c.Request().Context(), db.NewStore(q), p)
	})
	if err != nil {
		if errors.Is(err, pending.ErrInvalidState) {
			return fail(c, http.StatusConflict, err.Error(), nil)
		}
		s.logger.Error().Err(err).Int64("pending_id", p.PendingFighterID).Msg("rematch failed")
		return internalError(c, "Failed to rerun matching")
	}

	return success(c, map[string]any{"pending": pendingResponse(p)})
}

func (s *Server) handlePendingApprove(c echo.Context) error {
	return s.reviewAction(c, func(ctx context.Context, store *db.Store, pendingID int64, reviewer string) (*db.PendingFighter, error) {
		return s.workflow.Approve(ctx, store, pendingID, reviewer)
	})
}

func (s *Server) handlePendingReject(c echo.Context) error {
	return s.reviewAction(c, func(ctx context.Context, store *db.Store, pendingID int64, reviewer string) (*db.PendingFighter, error) {
		return s.workflow.Reject(ctx, store, pendingID, reviewer)
	})
}

type duplicateRequest struct {
	FighterID int64 `json:"fighter_id"`
}

func (s *Server) handlePendingDuplicate(c echo.Context) error {
	var req duplicateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.FighterID < 1 {
		return failValidation(c, map[string]string{"fighter_id": "is required"})
	}

	return s.reviewAction(c, func(ctx context.Context, store *db.Store, pendingID int64, reviewer string) (*db.PendingFighter, error) {
		return s.workflow.MarkDuplicate(ctx, store, pendingID, reviewer, req.FighterID)
	})
}

func (s *Server) handlePendingPromote(c echo.Context) error {
	pendingID, ok := s.pendingIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"pending_id": "must be a positive integer"})
	}
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var fighter *db.Fighter
	err := db.WithTx(c.Request().Context(), s.pool, func(q db.Querier) error {
		var txErr error
		fighter, txErr = s.workflow.CreateFighterFromPending(c.Request().Context(), db.NewStore(q), pendingID, principal.Username)
		return txErr
	})
	if err != nil {
		if errors.Is(err, pending.ErrInvalidState) {
			return fail(c, http.StatusConflict, err.Error(), nil)
		}
		if isNotFoundErr(err) {
			return failNotFound(c, "Pending fighter not found")
		}
		s.logger.Error().Err(err).Int64("pending_id", pendingID).Msg("promote pending fighter failed")
		return internalError(c, "Failed to promote pending fighter")
	}

	return success(c, map[string]any{"fighter": fighter})
}

type reviewFunc func(ctx context.Context, store *db.Store, pendingID int64, reviewer string) (*db.PendingFighter, error)

func (s *Server) reviewAction(c echo.Context, action reviewFunc) error {
	pendingID, ok := s.pendingIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"pending_id": "must be a positive integer"})
	}
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var reviewed *db.PendingFighter
	err := db.WithTx(c.Request().Context(), s.pool, func(q db.Querier) error {
		var txErr error
		reviewed, txErr = action(c.Request().Context(), db.NewStore(q), pendingID, principal.Username)
		return txErr
	})
	if err != nil {
		if errors.Is(err, pending.ErrInvalidState) {
			return fail(c, http.StatusConflict, err.Error(), nil)
		}
		if isNotFoundErr(err) {
			return failNotFound(c, "Pending fighter not found")
		}
		s.logger.Error().Err(err).Int64("pending_id", pendingID).Msg("pending review action failed")
		return internalError(c, "Failed to update pending fighter")
	}

	return success(c, map[string]any{"pending": pendingResponse(reviewed)})
}

func (s *Server) handleConsistency(c echo.Context) error {
	validator := consistency.New(s.logger)
	result, err := validator.Validate(c.Request().Context(), s.store())
	if err != nil {
		s.logger.Error().Err(err).Msg("consistency validation failed")
		return internalError(c, "Failed to validate fight network")
	}
	return success(c, result)
}

func (s *Server) handleReport(c echo.Context) error {
	artifact, err := report.Build(c.Request().Context(), s.store())
	if err != nil {
		s.logger.Error().Err(err).Msg("build report failed")
		return internalError(c, "Failed to build report")
	}
	return success(c, artifact)
}

// loadPending resolves the pending_id path param. On validation or lookup
// failure the response is already written and ok is false.
func (s *Server) loadPending(c echo.Context) (*db.PendingFighter, bool, error) {
	pendingID, ok := s.pendingIDParam(c)
	if !ok {
		return nil, false, failValidation(c, map[string]string{"pending_id": "must be a positive integer"})
	}

	p, err := s.store().PendingByID(c.Request().Context(), pendingID)
	if err != nil {
		s.logger.Error().Err(err).Int64("pending_id", pendingID).Msg("load pending fighter failed")
		return nil, false, internalError(c, "Failed to load pending fighter")
	}
	if p == nil {
		return nil, false, failNotFound(c, "Pending fighter not found")
	}
	return p, true, nil
}

func (s *Server) pendingIDParam(c echo.Context) (int64, bool) {
	raw := strings.TrimSpace(c.Param("pending_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func parsePendingStatus(raw string) (db.PendingStatus, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return db.PendingStatusPending, nil
	}
	switch status := db.PendingStatus(trimmed); status {
	case db.PendingStatusPending, db.PendingStatusApproved, db.PendingStatusRejected,
		db.PendingStatusDuplicate, db.PendingStatusCreated:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q", trimmed)
	}
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func isNotFoundErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
