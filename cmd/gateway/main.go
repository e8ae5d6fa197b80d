package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	api "github.com/mind-engage/mindengage-academy/internal/api/http"
	auth "github.com/mind-engage/mindengage-academy/internal/auth/middleware"
	"github.com/mind-engage/mindengage-academy/internal/certify"
	"github.com/mind-engage/mindengage-academy/internal/config"
	"github.com/mind-engage/mindengage-academy/internal/db"
	"github.com/mind-engage/mindengage-academy/internal/learning"
	"github.com/mind-engage/mindengage-academy/internal/logger"
	"github.com/mind-engage/mindengage-academy/internal/notify"
	"github.com/mind-engage/mindengage-academy/internal/observability"
	"github.com/mind-engage/mindengage-academy/internal/storage"
	syncx "github.com/mind-engage/mindengage-academy/internal/sync"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode, cfg.LogLevel, cfg.LogRedaction)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: string(cfg.Mode),
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})

	// --- DB ---
	octx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(octx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal("db open failed", "driver", cfg.DBDriver, "error", err)
	}
	defer dbh.Close()
	store := academy.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)

	// --- Blobs ---
	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatal("blob store", "path", cfg.BlobBasePath, "error", err)
	}

	// --- Notifications ---
	var notifier notify.Notifier = notify.NewLog(log)
	if cfg.SendGridAPIKey != "" {
		notifier = notify.Multi{notify.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName), notifier}
	}
	var bus notify.Bus = notify.NopBus{}
	if cfg.RedisAddr != "" {
		rb, err := notify.NewRedisBus(ctx, log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel)
		if err != nil {
			log.Warn("redis bus unavailable, events stay local", "addr", cfg.RedisAddr, "error", err)
		} else {
			bus = rb
		}
	}
	defer bus.Close()

	// --- Certificates ---
	renderer, err := certify.NewRenderer(cfg.CertFont, cfg.CertFooter)
	if err != nil {
		log.Fatal("certificate renderer", "font", cfg.CertFont, "error", err)
	}
	certs := certify.NewService(store,
		certify.WithPrefix(cfg.CertPrefix),
		certify.WithLogger(log),
		certify.WithListener(
			learning.MailAdmins(notifier, cfg.AdminEmails, cfg.PublicURL),
			learning.RecordIssued(events),
			learning.Broadcast(bus),
		),
	)

	svc := learning.NewService(learning.Deps{
		Store:    store,
		Certs:    certs,
		Renderer: renderer,
		Blobs:    blobs,
		Notifier: notifier,
		Events:   events,
		Log:      log,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:         svc,
		Auth:            auth.NewAuthService(cfg.JWTSecret, cfg.TokenTTL),
		Users:           store,
		Blobs:           blobs,
		Log:             log,
		CORSOrigins:     cfg.CORSOrigins(),
		RequestTimeout:  cfg.RequestTimeout,
		EnableLocalAuth: cfg.EnableLocalAuth,
		Ready:           dbh.PingContext,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if err := shutdownTracing(sctx); err != nil {
		log.Warn("tracing shutdown", "error", err)
	}
}
