package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/safar/storefront/internal/chat"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/events"
	"github.com/safar/storefront/internal/httpapi"
	"github.com/safar/storefront/internal/identity"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/media"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(cfg.Log)
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to database")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	m := metrics.New()

	var gateway payment.Gateway = payment.Disabled{}
	if cfg.Payment.Enabled() {
		gateway = payment.NewStripe(cfg.Payment, log.Named("payment"))
		log.Info("stripe checkout enabled")
	} else {
		log.Info("stripe checkout disabled, orders are placed without payment")
	}

	mediaResolver, err := media.New(ctx, cfg.Media)
	if err != nil {
		return err
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		writer := events.NewKafkaWriter(cfg.Events)
		defer writer.Close()
		poller := events.NewPoller(db, writer, cfg.Events, m, log.Named("outbox"))
		go poller.Run(ctx)
	} else {
		log.Info("no kafka brokers configured, order events stay in the outbox")
	}

	server := httpapi.New(httpapi.Deps{
		DB: db,
		Checkout: checkout.NewService(db, checkout.Options{
			Gateway:  gateway,
			Currency: cfg.Payment.Currency,
			BaseURL:  cfg.Server.BaseURL,
			Metrics:  m,
		}, log.Named("checkout")),
		Chat:           chat.NewResolver(store.NewCatalogReader(db), log.Named("chat")),
		Tokens:         identity.NewTokens(cfg.Auth),
		Sessions:       identity.NewSessions(rdb, cfg.Redis.SessionTTL),
		Media:          mediaResolver,
		Metrics:        m,
		Logger:         log.Named("http"),
		RequestTimeout: cfg.Server.WriteTimeout,
		SecureCookies:  cfg.Env == "production",
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
