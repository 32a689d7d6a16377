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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	exchangehandler "curio/internal/exchange/handler"
	exchangemetrics "curio/internal/exchange/metrics"
	exchangeservice "curio/internal/exchange/service"
	exchangestore "curio/internal/exchange/store"
	httpapi "curio/internal/http"
	"curio/internal/identity"
	"curio/internal/ledger"
	"curio/internal/platform/config"
	"curio/internal/platform/httpserver"
	"curio/internal/platform/logger"
	platformmetrics "curio/internal/platform/metrics"
	platformredis "curio/internal/platform/redis"
	"curio/internal/platform/token"
	"curio/internal/registry/authority"
	registryhandler "curio/internal/registry/handler"
	registrymetrics "curio/internal/registry/metrics"
	registryservice "curio/internal/registry/service"
	registrystore "curio/internal/registry/store"
	"curio/pkg/domain"
	events "curio/pkg/platform/events"
	eventskafka "curio/pkg/platform/events/kafka"
	"curio/pkg/platform/events/publisher"
	eventsmemory "curio/pkg/platform/events/store/memory"
	"curio/pkg/requestcontext"
)

// main wires the stores, the ledger, the services and the HTTP surface.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminAccount := domain.AccountID(cfg.AdminAccount)
	escrowAccount := domain.AccountID(cfg.EscrowAccount)

	sink, sinkClose, err := newEventSink(cfg, log)
	if err != nil {
		return err
	}
	defer sinkClose()

	var pubOpts []publisher.Option
	if cfg.EventBuffer > 0 {
		pubOpts = append(pubOpts, publisher.WithAsyncBuffer(cfg.EventBuffer))
	}
	pub := publisher.NewPublisher(sink, pubOpts...)
	defer pub.Close()

	regStore, storeClose, err := newRegistryStore(cfg, log)
	if err != nil {
		return err
	}
	defer storeClose()

	funds, fundsClose, err := newLedger(cfg, log)
	if err != nil {
		return err
	}
	defer fundsClose()

	auth := authority.New(adminAccount, regStore, pub, log)
	adminCtx := requestcontext.WithCaller(ctx, adminAccount)
	if err := auth.SetAuthorized(adminCtx, escrowAccount, true); err != nil {
		return err
	}

	registry := registryservice.New(regStore, identity.NewAllocator(nil),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithEmitter(pub, log))

	exchange := exchangeservice.New(exchangestore.NewInMemory(), registry, auth, funds, escrowAccount,
		exchangeservice.WithMetrics(exchangemetrics.New()),
		exchangeservice.WithEmitter(pub, log))

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:     log,
		Metrics:    platformmetrics.New(),
		Validator:  token.NewService(cfg.JWTSigningKey, "curio"),
		AdminToken: cfg.AdminToken,
		Admin:      adminAccount,
		Registry:   registryhandler.New(registry, auth, funds, log),
		Exchange:   exchangehandler.New(exchange, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting curio", "addr", cfg.Addr)
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
	return g.Wait()
}

func newEventSink(cfg config.Config, log *slog.Logger) (events.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := eventskafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("notifications via kafka", "topic", cfg.Kafka.Topic)
		return sink, sink.Close, nil
	}
	log.Info("notifications via in-memory sink")
	return eventsmemory.NewInMemoryStore(), func() {}, nil
}

// registryStore is the union of the service's persistence contract and the
// slice the transfer authority mutates.
type registryStore interface {
	registryservice.Store
	authority.Store
}

func newRegistryStore(cfg config.Config, log *slog.Logger) (registryStore, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Info("registry store in memory")
		return registrystore.NewInMemory(), func() {}, nil
	}
	db, err := sql.Open("pgx", cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("registry store on postgres")
	return registrystore.NewPostgres(db), func() { db.Close() }, nil
}

func newLedger(cfg config.Config, log *slog.Logger) (ledger.Ledger, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("ledger in memory")
		return ledger.NewInMemory(), func() {}, nil
	}
	log.Info("ledger on redis")
	return ledger.NewRedis(client.Client, "curio:"), func() { _ = client.Close() }, nil
}
