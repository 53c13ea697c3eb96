package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"FD_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"FD_DB_MAX_CONNS" default:"8"`

	// MatchThreshold is the resolve-or-create acceptance bar for name matches.
	MatchThreshold float64 `envconfig:"FD_MATCH_THRESHOLD" default:"0.8"`
	// ReconcileMatchThreshold and ReconcileHighConfidenceThreshold are on the
	// 0-100 scale used by fight-history reconciliation.
	ReconcileMatchThreshold          float64 `envconfig:"FD_RECONCILE_MATCH_THRESHOLD" default:"80"`
	ReconcileHighConfidenceThreshold float64 `envconfig:"FD_RECONCILE_HIGH_THRESHOLD" default:"95"`
	ReconcileChunkSize               int     `envconfig:"FD_RECONCILE_CHUNK_SIZE" default:"200"`

	HTTPHost string `envconfig:"FD_HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"FD_HTTP_PORT" default:"8090"`

	DefaultReviewerUser               string `envconfig:"DEFAULT_REVIEWER_USER" default:"admin"`
	DefaultReviewerPassword           string `envconfig:"DEFAULT_REVIEWER_PASSWORD" default:""`
	SessionTTLHours                   int    `envconfig:"SESSION_TTL_HOURS" default:"168"`
	SessionCookieName                 string `envconfig:"SESSION_COOKIE_NAME" default:"fightdesk_session"`
	SessionCookieSecure               bool   `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	CORSAllowedOrigins                string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	SourcePreviewMaxChars             int    `envconfig:"FD_SOURCE_PREVIEW_MAX_CHARS" default:"4000"`
	PendingLanguageDetectionDisabled  bool   `envconfig:"FD_PENDING_LANGDETECT_DISABLED" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("FD_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("FD_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("FD_DB_MIN_CONNS (%d) cannot exceed FD_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("FD_MATCH_THRESHOLD must be within [0,1]")
	}
	if c.ReconcileMatchThreshold < 0 || c.ReconcileMatchThreshold > 100 {
		return fmt.Errorf("FD_RECONCILE_MATCH_THRESHOLD must be within [0,100]")
	}
	if c.ReconcileHighConfidenceThreshold < c.ReconcileMatchThreshold || c.ReconcileHighConfidenceThreshold > 100 {
		return fmt.Errorf("FD_RECONCILE_HIGH_THRESHOLD must be within [FD_RECONCILE_MATCH_THRESHOLD,100]")
	}
	if c.ReconcileChunkSize < 1 {
		return fmt.Errorf("FD_RECONCILE_CHUNK_SIZE must be >= 1")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("FD_HTTP_PORT must be a valid TCP port")
	}
	if strings.TrimSpace(c.DefaultReviewerUser) == "" {
		return fmt.Errorf("DEFAULT_REVIEWER_USER is required")
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be >= 1")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
