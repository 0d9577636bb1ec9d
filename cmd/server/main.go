package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"intake/internal/chat"
	"intake/internal/fingerprint"
	fpmetrics "intake/internal/fingerprint/metrics"
	"intake/internal/funnel"
	funnelmetrics "intake/internal/funnel/metrics"
	"intake/internal/identity"
	"intake/internal/invite"
	"intake/internal/notify"
	notifykafka "intake/internal/notify/kafka"
	"intake/internal/platform/config"
	"intake/internal/platform/httpserver"
	"intake/internal/platform/logger"
	"intake/internal/platform/postgres"
	"intake/internal/platform/redis"
	"intake/internal/question"
	httptransport "intake/internal/transport/http"
	"intake/internal/verification"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx := context.Background()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	rdb, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		accountStore identity.Store
		inviteStore  invite.Store
		qStore       question.Store
		funnelStore  funnel.Store
		printStore   fingerprint.Store
		pendingStore verification.PendingStore
	)
	if db != nil {
		accountStore = identity.NewPostgres(db)
		inviteStore = invite.NewPostgres(db)
		qStore = question.NewPostgres(db)
		funnelStore = funnel.NewPostgres(db)
		printStore = fingerprint.NewPostgres(db)
		pendingStore = verification.NewPostgresPending(db)
	} else {
		accountStore = identity.NewMemoryStore()
		inviteStore = invite.NewMemoryStore()
		qStore = question.NewMemory()
		funnelStore = funnel.NewMemory()
		printStore = fingerprint.NewMemory()
		pendingStore = verification.NewMemoryPending()
	}
	if rdb != nil {
		// Pending verifications never expire on their own; a respondent may
		// come back to the capture link arbitrarily late. The TTL applies to
		// the capture token only.
		pendingStore = verification.NewRedisPending(rdb.Client, 0)
	}

	accounts := identity.NewService(accountStore)
	if err := accounts.EnsureFirstAdmin(ctx, cfg.FirstAdminUsername); err != nil {
		log.Error("bootstrap admin failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if n, err := question.SeedFromFile(ctx, qStore, cfg.QuestionsFile); err != nil {
		log.Warn("question seeding skipped", slog.String("error", err.Error()))
	} else if n > 0 {
		log.Info("questions seeded", slog.Int("count", n))
	}

	invites := invite.NewService(inviteStore, funnelStore)
	sequencer := question.NewSequencer(qStore)

	matcher := fingerprint.NewMatcher(printStore, funnel.NewSessionDirectory(funnelStore),
		log, fpmetrics.New(prometheus.DefaultRegisterer))

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kn, err := notifykafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka unavailable", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer kn.Close()
		notifier = kn
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	tokens := verification.NewTokenIssuer(cfg.BotCredential, cfg.CaptureTokenTTL)
	gate := verification.NewGate(inviteStore, accounts, funnel.NewActiveLookup(funnelStore),
		pendingStore, printStore, matcher, tokens, cfg.CaptureBaseURL, log)

	controller := funnel.NewController(funnelStore, sequencer, inviteStore, accounts,
		printStore, matcher, notifier, log, funnelmetrics.New(prometheus.DefaultRegisterer))

	var messenger chat.Messenger
	if cfg.MessengerWebhookURL != "" {
		messenger = chat.NewWebhookMessenger(cfg.MessengerWebhookURL)
	} else {
		log.Warn("no messenger webhook configured, replies go to the log")
		messenger = chat.NewLogMessenger(log)
	}
	dispatcher := chat.NewDispatcher(gate, controller, funnelStore, inviteStore, messenger, log)

	router := httptransport.NewRouter(log,
		httptransport.NewCaptureHandler(gate, tokens, dispatcher, cfg.BotCredential, log),
		httptransport.NewInviteHandler(invites, accounts),
		httptransport.NewEventsHandler(dispatcher, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("intake listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("intake stopped")
}
