package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stacksignal/lms-accounts/internal/avatar"
	"github.com/stacksignal/lms-accounts/internal/config"
	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/handler"
	"github.com/stacksignal/lms-accounts/internal/notifier"
	"github.com/stacksignal/lms-accounts/internal/repository/sqlite"
	"github.com/stacksignal/lms-accounts/internal/service"
	"github.com/stacksignal/lms-accounts/internal/session"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	var avatars domain.AvatarStore
	var blobs *avatar.BlobStore
	switch cfg.AvatarBackend {
	case "s3":
		s3Store, err := avatar.NewS3Store(context.Background(), avatar.S3Options{
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			BaseEndpoint:  cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicURL,
		})
		if err != nil {
			slog.Error("failed to set up object storage", "error", err)
			os.Exit(1)
		}
		avatars = s3Store
		slog.Info("avatar storage ready", "backend", "s3", "bucket", cfg.S3Bucket)
	default:
		blobs = avatar.NewBlobStore(db.SqlDB, cfg.PublicBaseURL)
		avatars = blobs
		slog.Info("avatar storage ready", "backend", "db")
	}

	mailer := notifier.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	accounts := service.NewAccountService(
		db.Users(), mailer, avatars,
		cfg.BcryptCost, cfg.PublicBaseURL,
		cfg.VerifyTokenTTL, cfg.ResetTokenTTL,
	)
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionTTL)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, accounts, sessions, db.Users(), blobs, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
