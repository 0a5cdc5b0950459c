// Command server runs the ledger engine: the economic core, the admission
// gate in front of it, and the read-only observability layer, all behind one
// HTTP surface. Backing services are optional; with no Postgres, Redis, or
// Kafka configured everything runs in memory.
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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	admissionhandler "dustledger/internal/admission/handler"
	admissionmetrics "dustledger/internal/admission/metrics"
	admissionports "dustledger/internal/admission/ports"
	admissionsvc "dustledger/internal/admission/service"
	"dustledger/internal/admission/store/ban"
	"dustledger/internal/admission/store/window"
	ledgerhandler "dustledger/internal/ledger/handler"
	ledgermetrics "dustledger/internal/ledger/metrics"
	ledgerports "dustledger/internal/ledger/ports"
	ledgersvc "dustledger/internal/ledger/service"
	"dustledger/internal/ledger/store/account"
	"dustledger/internal/ledger/store/proposal"
	"dustledger/internal/ledger/store/reserve"
	"dustledger/internal/ledger/store/txlog"
	observerhandler "dustledger/internal/observer/handler"
	observermetrics "dustledger/internal/observer/metrics"
	observersvc "dustledger/internal/observer/service"
	"dustledger/internal/platform/config"
	"dustledger/internal/platform/httpserver"
	"dustledger/internal/platform/logger"
	platformmetrics "dustledger/internal/platform/metrics"
	"dustledger/internal/platform/postgres"
	platformredis "dustledger/internal/platform/redis"
	httptransport "dustledger/internal/transport/http"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/verify"
)

const proposalSweepInterval = time.Minute

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var (
		accounts   ledgerports.AccountStore
		txLog      ledgerports.TransactionLog
		proposals  ledgerports.ProposalStore
		reserves   ledgerports.ReserveStore
		auditStore audit.Store
	)
	if cfg.PostgresURL != "" {
		db, err = postgres.Open(cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		accounts = account.NewPostgresStore(db)
		txLog = txlog.NewPostgresStore(db)
		proposals = proposal.NewPostgresStore(db)
		reserves = reserve.NewPostgresStore(db, cfg.BackingRatio)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		accounts = account.NewInMemoryStore()
		txLog = txlog.NewInMemoryStore()
		proposals = proposal.NewInMemoryStore()
		reserves = reserve.NewInMemoryStore(cfg.BackingRatio)
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var windows admissionports.WindowStore = window.NewInMemoryStore()
	var bans admissionports.BanStore = ban.NewInMemoryStore()
	if redisClient != nil {
		defer redisClient.Close()
		windows = window.NewRedisStore(redisClient.Client)
		bans = ban.NewRedisStore(redisClient.Client)
		log.Info("using redis admission stores")
	}

	// Audit pipeline: every emitted event lands in the store via the
	// channel worker; Kafka fan-out is added when brokers are configured.
	channel := audit.NewChannelPublisher(1024)
	publisher := audit.Fanout{channel}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = append(publisher, kafka)
		log.Info("publishing audit events to kafka", "topic", cfg.Kafka.Topic)
	}

	sharedMetrics := platformmetrics.New()
	reg := prometheus.DefaultRegisterer

	ledger, err := ledgersvc.New(accounts, txLog, proposals, reserves, cfg,
		ledgersvc.WithLogger(log),
		ledgersvc.WithMetrics(ledgermetrics.New(reg)),
		ledgersvc.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	gate, err := admissionsvc.New(windows, bans, cfg,
		admissionsvc.WithLogger(log),
		admissionsvc.WithMetrics(admissionmetrics.New(reg)),
		admissionsvc.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	observer, err := observersvc.New(accounts, txLog, proposals, reserves, cfg,
		observersvc.WithLogger(log),
		observersvc.WithMetrics(observermetrics.New(reg)),
		observersvc.WithReportStore(auditStore),
	)
	if err != nil {
		return err
	}

	health := func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			return redisClient.Health(ctx)
		}
		return nil
	}

	router := httptransport.NewRouter(log, sharedMetrics, gate, health,
		ledgerhandler.New(ledger, gate, verify.NewRegistry(), log),
		admissionhandler.New(gate, log),
		observerhandler.New(observer, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	g.Go(func() error {
		err := audit.NewWorker(auditStore, channel.Inbox()).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(proposalSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				resolved, err := ledger.ResolveExpiredProposals(gctx, now)
				if err != nil {
					log.Warn("proposal sweep failed", "error", err)
					continue
				}
				if resolved > 0 {
					log.Info("resolved expired proposals", "count", resolved)
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
