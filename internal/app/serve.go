package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/fightdesk/internal/cli"
	"horse.fit/fightdesk/internal/config"
	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/httpapi"
	"horse.fit/fightdesk/internal/logging"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Host interface to bind; empty uses FD_HTTP_HOST")
	port := fs.Int("port", 0, "HTTP port; 0 uses FD_HTTP_PORT")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port < 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 0 and 65535")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := httpapi.EnsureDefaultReviewer(dbCtx, db.NewStore(pool), cfg.DefaultReviewerUser, cfg.DefaultReviewerPassword); err != nil {
		logger.Error().Err(err).Msg("default reviewer seeding failed")
		fmt.Fprintf(os.Stderr, "Failed to seed default reviewer: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	serveHost := *host
	if serveHost == "" {
		serveHost = cfg.HTTPHost
	}
	servePort := *port
	if servePort == 0 {
		servePort = cfg.HTTPPort
	}

	srv := httpapi.NewServer(pool, logger, httpapi.Options{
		Host:            serveHost,
		Port:            servePort,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		SessionTTL:      time.Duration(cfg.SessionTTLHours) * time.Hour,
		SessionCookie:   cfg.SessionCookieName,
		SessionSecure:   cfg.SessionCookieSecure,
		CORSOrigins:     cfg.CORSAllowedOriginsList(),
		PreviewMaxChars: cfg.SourcePreviewMaxChars,
		DetectLanguage:  !cfg.PendingLanguageDetectionDisabled,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", serveHost).Int("port", servePort).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
