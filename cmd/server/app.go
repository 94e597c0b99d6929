package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	bghandler "provenant/internal/breakglass/handler"
	bgmetrics "provenant/internal/breakglass/metrics"
	bgservice "provenant/internal/breakglass/service"
	bgmemory "provenant/internal/breakglass/store/memory"
	bgpostgres "provenant/internal/breakglass/store/postgres"
	"provenant/internal/compliance"
	compliancemetrics "provenant/internal/compliance/metrics"
	"provenant/internal/enrollment/cache"
	enrollmentmemory "provenant/internal/enrollment/store/memory"
	enrollmentpostgres "provenant/internal/enrollment/store/postgres"
	ledgerhandler "provenant/internal/ledger/handler"
	ledgermetrics "provenant/internal/ledger/metrics"
	"provenant/internal/ledger/ports"
	"provenant/internal/ledger/schema"
	ledgerservice "provenant/internal/ledger/service"
	ledgermemory "provenant/internal/ledger/store/memory"
	ledgerpostgres "provenant/internal/ledger/store/postgres"
	"provenant/internal/outbox"
	outboxmemory "provenant/internal/outbox/store/memory"
	outboxpostgres "provenant/internal/outbox/store/postgres"
	"provenant/internal/platform/config"
	"provenant/internal/platform/kafka"
	"provenant/internal/platform/metrics"
	"provenant/internal/platform/middleware"
	pgplatform "provenant/internal/platform/postgres"
	redisplatform "provenant/internal/platform/redis"
	"provenant/internal/platform/tracing"
	"provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/publisher"
	compliancepub "provenant/pkg/platform/audit/publishers/compliance"
	securitypub "provenant/pkg/platform/audit/publishers/security"
	auditmemory "provenant/pkg/platform/audit/store/memory"
	auditpostgres "provenant/pkg/platform/audit/store/postgres"
)

// ledgerStore is satisfied by both the memory and the postgres ledger.
type ledgerStore interface {
	ports.Ledger
	compliance.LedgerReader
}

type breakGlassStore interface {
	bgservice.Store
	compliance.AccessLog
}

type app struct {
	router    http.Handler
	relay     *outbox.Relay
	scheduler *compliance.Scheduler
	closers   []func()
}

type stores struct {
	db         *sql.DB
	ledger     ledgerStore
	breakGlass breakGlassStore
	tx         bgservice.Transactor
	outbox     outbox.Store
	enrollment ports.EnrollmentChecker
	audit      audit.Store
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, tp *tracing.Provider) (*app, error) {
	a := &app{}
	reg := prometheus.DefaultRegisterer
	platformMetrics := metrics.New(reg)
	platformMetrics.SetBuild(version)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if st.db != nil {
		a.closers = append(a.closers, func() { _ = st.db.Close() })
	}

	security := securitypub.New(st.audit, securitypub.WithLogger(log))
	a.closers = append(a.closers, func() { _ = security.Close() })
	auditPublisher := publisher.New(
		compliancepub.New(st.audit, compliancepub.WithLogger(log), compliancepub.WithMetrics(compliancepub.NewMetrics(reg))),
		security,
		log,
	)

	enforced, err := checkImmutability(ctx, cfg, st.db, log, auditPublisher)
	if err != nil {
		a.Close()
		return nil, err
	}
	platformMetrics.SetImmutabilityEnforced(enforced)

	enrollment := st.enrollment
	rc, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
		enrollment = cache.New(enrollment, rc.Client, cache.WithTTL(cfg.Redis.EnrollmentTTL), cache.WithLogger(log))
	}

	bgOpts := []bgservice.Option{
		bgservice.WithLogger(log),
		bgservice.WithMetrics(bgmetrics.New(reg)),
		bgservice.WithAuditPublisher(auditPublisher),
		bgservice.WithLimits(cfg.BreakGlass.MaxDuration, cfg.BreakGlass.MinJustification),
	}
	if st.tx != nil {
		bgOpts = append(bgOpts, bgservice.WithTransactor(st.tx))
	}
	breakGlass, err := bgservice.New(st.breakGlass, bgOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	ledger, err := ledgerservice.New(st.ledger, schema.Default(), enrollment, breakGlass,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New(reg)),
		ledgerservice.WithAuditPublisher(auditPublisher),
		ledgerservice.WithTracer(tp.Tracer("provenant/ledger")),
		ledgerservice.WithTopic(cfg.Kafka.Topic),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	auditor, err := compliance.New(st.ledger, st.breakGlass,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliancemetrics.New(reg)),
		compliance.WithTracer(tp.Tracer("provenant/compliance")),
		compliance.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.scheduler = compliance.NewScheduler(log)
	for _, job := range []compliance.Job{
		compliance.AuditJob(cfg.Compliance.Schedule, auditor),
		compliance.ExpirySweepJob(cfg.BreakGlass.SweepSchedule, breakGlass, log),
	} {
		if err := a.scheduler.Add(job); err != nil {
			a.Close()
			return nil, err
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			Partitions:        int32(cfg.Kafka.Partitions),
			ReplicationFactor: int16(cfg.Kafka.ReplicationFactor),
			ClientID:          cfg.Kafka.ClientID,
		}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Topic, int32(cfg.Kafka.Partitions), int16(cfg.Kafka.ReplicationFactor)); err != nil {
			log.Warn("kafka topic bootstrap failed; relay will retry publishing", "topic", cfg.Kafka.Topic, "error", err)
		}
		a.relay, err = outbox.NewRelay(st.outbox, producer,
			outbox.WithLogger(log),
			outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithRegisterer(reg),
		)
		if err != nil {
			a.Close()
			return nil, err
		}
	} else {
		log.Warn("no kafka brokers configured; accepted events stay in the outbox")
	}

	a.router = newRouter(cfg, log, reg, st, rc,
		ledgerhandler.New(ledger, log),
		bghandler.New(breakGlass, log, cfg.Admin.TokenHash),
		compliance.NewHandler(auditor, log),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if !cfg.HasDatabase() {
		log.Warn("no database configured; using in-memory stores")
		bg := bgmemory.New()
		ob := outboxmemory.New()
		return &stores{
			ledger:     ledgermemory.New(ledgermemory.WithAccessSink(bg), ledgermemory.WithOutboxSink(ob)),
			breakGlass: bg,
			outbox:     ob,
			enrollment: enrollmentmemory.New(),
			audit:      auditmemory.NewInMemoryStore(),
		}, nil
	}

	db, err := pgplatform.Open(ctx, cfg.Database.URL, pgplatform.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := pgplatform.RunMigrations(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	bg := bgpostgres.New(db)
	ob := outboxpostgres.New(db)
	ledger, err := ledgerpostgres.New(db, bg, ob)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		db:         db,
		ledger:     ledger,
		breakGlass: bg,
		tx:         newBoundedTx(bg),
		outbox:     ob,
		enrollment: enrollmentpostgres.New(db),
		audit:      auditpostgres.New(db),
	}, nil
}

// checkImmutability verifies the storage guard when enforcement is on and
// records that it is off otherwise. The memory store has no mutation path.
func checkImmutability(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger, p *publisher.Publisher) (bool, error) {
	if db == nil {
		return true, nil
	}
	if cfg.Ledger.EnforceImmutability {
		if err := pgplatform.VerifyImmutabilityGuard(ctx, db); err != nil {
			return false, fmt.Errorf("immutability guard check failed: %w", err)
		}
		log.Info("immutability guard verified")
		return true, nil
	}
	log.Warn("ledger immutability enforcement is disabled; ledger rows are protected only by application code")
	err := p.Emit(ctx, audit.Event{
		Timestamp: time.Now(),
		Action:    string(audit.EventImmutabilityOff),
		Subject:   "ledger_events",
		ActorID:   "system",
		Decision:  "disabled",
		Reason:    "ledger.enforce_immutability=false",
		Severity:  audit.SeverityCritical,
	})
	return false, err
}

func newRouter(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer, st *stores, rc *redisplatform.Client,
	ledger *ledgerhandler.Handler, breakGlass *bghandler.Handler, reports *compliance.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	r.Use(middleware.NewHTTPMetrics(reg).Middleware)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if st.db != nil {
			if err := st.db.PingContext(ctx); err != nil {
				log.WarnContext(ctx, "readiness: database unavailable", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		if rc != nil {
			if err := rc.Health(ctx); err != nil {
				log.WarnContext(ctx, "readiness: redis unavailable", "error", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))

	breakGlass.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(middleware.NewIdentityVerifier(
			cfg.Identity.SigningKey, cfg.Identity.Issuer, cfg.Identity.Audience), log))
		ledger.Register(r)
		reports.Register(r)
	})
	return r
}
