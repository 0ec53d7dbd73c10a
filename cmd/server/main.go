package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	emailPkg "github.com/utamadigital/30-hari-new/internal/adapters/email"
	web "github.com/utamadigital/30-hari-new/internal/adapters/http"
	"github.com/utamadigital/30-hari-new/internal/adapters/http/middleware"
	"github.com/utamadigital/30-hari-new/internal/adapters/storage"
	calendarStore "github.com/utamadigital/30-hari-new/internal/adapters/storage/calendar"
	"github.com/utamadigital/30-hari-new/internal/adapters/storage/rediskv"
	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/config"
	"github.com/utamadigital/30-hari-new/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// shutdownTimeout bounds how long in-flight requests may finish after a signal.
const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kalender: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Development: !cfg.IsProduction()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "kalender: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server_failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	kv, closeKV, err := openKV(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()

	bus := events.NewBus(events.NewLogObserver(log))
	sessions := orchestrators.NewSessionRegistry(orchestrators.SessionRegistryDeps{
		NewStore: func(visitorID string) calendarStore.Store { return calendarStore.NewKVStore(kv, visitorID) },
		Emitter:  bus,
		Logger:   log,
		Location: cfg.Location,
		Idle:     cfg.SessionIdle,
	})

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom, log)
		log.Info("email_sender_configured", zap.String("provider", "resend"))
	} else {
		sender = emailPkg.NewNoopSender(log)
		if cfg.IsProduction() {
			log.Warn("email_delivery_disabled", zap.String("reason", "KALENDER_RESEND_KEY is not set"))
		} else {
			log.Info("email_sender_configured", zap.String("provider", "noop"))
		}
	}

	if cfg.CSRFSecret == "" {
		log.Warn("csrf_key_random", zap.String("hint", "set KALENDER_CSRF_SECRET so form tokens survive a restart"))
	}
	csrfKey, err := web.DeriveCSRFKey(cfg.CSRFSecret)
	if err != nil {
		return err
	}

	staticDir := cfg.StaticDir
	if _, err := os.Stat(staticDir); err != nil {
		staticDir = ""
	}
	middleware.SecureCookies = cfg.IsProduction()
	handler, stopMux := web.NewMux(web.Deps{
		Sessions:  sessions,
		Sender:    sender,
		From:      cfg.EmailFrom,
		ReplyTo:   cfg.ReplyTo,
		Logger:    log,
		CSRFKey:   csrfKey,
		StaticDir: staticDir,
	})
	defer stopMux()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting",
			zap.String("version", version),
			zap.String("addr", cfg.Addr),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.Storage),
			zap.String("tz", cfg.Location.String()),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openKV opens the configured storage backend.
// POST: The returned close func releases the backend and is always non-nil on success
func openKV(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.KV, func() error, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("storage_memory_only", zap.String("hint", "calendar state is lost on restart"))
		return storage.NewMemoryKV(), func() error { return nil }, nil

	case config.StorageRedis:
		kv, err := rediskv.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, rediskv.Options{TTL: cfg.RedisTTL})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return kv, kv.Close, nil

	default:
		timed, err := storage.OpenSQLite(ctx, cfg.DBPath, log, cfg.SlowQuery)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteKV(timed), timed.Close, nil
	}
}
