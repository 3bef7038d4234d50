package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"sentra/internal/audit"
	auditalert "sentra/internal/audit/alert"
	auditstore "sentra/internal/audit/store"
	"sentra/internal/emergency"
	emergencyhandler "sentra/internal/emergency/handler"
	emergencystore "sentra/internal/emergency/store"
	"sentra/internal/fieldcipher"
	"sentra/internal/gateway"
	gatewayhandler "sentra/internal/gateway/handler"
	gatewaymetrics "sentra/internal/gateway/metrics"
	"sentra/internal/keys"
	"sentra/internal/platform/config"
	"sentra/internal/platform/httpserver"
	"sentra/internal/platform/logger"
	platformredis "sentra/internal/platform/redis"
	"sentra/internal/policy"
	"sentra/internal/profile"
	profilehandler "sentra/internal/profile/handler"
	profilestore "sentra/internal/profile/store"
	"sentra/internal/retention"
	retentionarchive "sentra/internal/retention/archive"
	retentionhandler "sentra/internal/retention/handler"
	retentionlease "sentra/internal/retention/lease"
	retentionmetrics "sentra/internal/retention/metrics"
	retentionstore "sentra/internal/retention/store"
	httptransport "sentra/internal/transport/http"
)

// main wires dependencies and runs the server and the retention runner under
// one lifecycle. Business logic lives in the internal services.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Encryption
	keyring, err := keys.New(cfg.MasterKeySecret, cfg.ActiveKeyID)
	if err != nil {
		return err
	}
	cipher, err := fieldcipher.New(keyring)
	if err != nil {
		return err
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db             *sql.DB
		profileStore   profile.Store
		emergencyStore emergency.Store
		auditStore     audit.Store
		source         retention.Source
		archive        retention.Archive
		actionLog      retention.ActionLog
	)
	if cfg.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		profileStore = profilestore.NewPostgresStore(db)
		emergencyStore = emergencystore.NewPostgresStore(db)
		auditStore = auditstore.NewPostgresStore(db)
		source = retentionstore.NewPostgresSource(db)
		archive = retentionstore.NewPostgresArchive(db)
		actionLog = retentionstore.NewPostgresActionLog(db)
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		memSource := retentionstore.NewInMemorySource()
		profileStore = profilestore.NewInMemoryStore()
		emergencyStore = emergencystore.NewInMemoryStore()
		auditStore = auditstore.NewInMemoryStore()
		source = memSource
		archive = retentionarchive.NewInMemoryArchive()
		actionLog = retentionstore.NewInMemoryActionLog()
	}

	var lease retention.Lease
	redisClient, err := platformredis.New(ctx, cfg.Redis())
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		lease = retentionlease.NewRedisLease(redisClient.Client)
	} else {
		log.Warn("no redis configured, retention lease is process-local")
		lease = retentionlease.NewInMemoryLease()
	}

	// Services
	emergencies, err := emergency.NewService(emergencyStore)
	if err != nil {
		return err
	}
	profiles, err := profile.NewService(profileStore, cipher)
	if err != nil {
		return err
	}

	recorderOpts := []audit.RecorderOption{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		notifier, err := auditalert.NewKafkaNotifier(ctx, cfg.KafkaBrokers, cfg.AlertTopic)
		if err != nil {
			return err
		}
		defer notifier.Close()
		recorderOpts = append(recorderOpts, audit.WithNotifier(notifier))
	} else {
		log.Warn("no kafka brokers configured, high-risk alerts are logged only")
	}
	recorder, err := audit.NewRecorder(auditStore, recorderOpts...)
	if err != nil {
		return err
	}

	engine, err := policy.NewEngine(emergencies)
	if err != nil {
		return err
	}
	approvals, err := gateway.NewApprovalVerifier(cfg.ApprovalSigningKey)
	if err != nil {
		return err
	}
	gatewaySvc, err := gateway.NewService(engine, profiles, emergencies, recorder, approvals,
		gateway.WithMetrics(gatewaymetrics.New()),
		gateway.WithLogger(log),
	)
	if err != nil {
		return err
	}

	// Retention
	scheduler, err := retention.NewScheduler(source, archive, actionLog, lease,
		retention.WithLogger(log),
		retention.WithMetrics(retentionmetrics.New()),
	)
	if err != nil {
		return err
	}
	policies := []retention.Policy{
		{
			Table:      retentionstore.TableAccessRecords,
			Horizon:    7 * 365 * 24 * time.Hour,
			LegalBasis: "statutory audit retention expired",
		},
		{
			Table:      retentionstore.TableProtectedProfiles,
			Horizon:    2 * 365 * 24 * time.Hour,
			LegalBasis: "account closure retention expired",
		},
	}
	runner := retention.NewRunner(scheduler, policies, cfg.RetentionInterval, log)

	// HTTP surface
	healthChecks := map[string]httptransport.Health{}
	if db != nil {
		healthChecks["postgres"] = func() error { return db.PingContext(context.Background()) }
	}
	if redisClient != nil {
		healthChecks["redis"] = func() error { return redisClient.Health(context.Background()) }
	}
	router := httptransport.NewRouter(httptransport.Handlers{
		Gateway:   gatewayhandler.New(gatewaySvc, log),
		Profile:   profilehandler.New(profiles, log),
		Emergency: emergencyhandler.New(emergencies, log),
		Retention: retentionhandler.New(scheduler, policies, log),
	}, healthChecks)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting sentra", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := runner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
