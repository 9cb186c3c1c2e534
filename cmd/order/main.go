package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokoide/order-saga/pkg/config"
	"github.com/sokoide/order-saga/pkg/domain"
	"github.com/sokoide/order-saga/pkg/infra/cache"
	"github.com/sokoide/order-saga/pkg/infra/httpapi"
	"github.com/sokoide/order-saga/pkg/infra/metrics"
	"github.com/sokoide/order-saga/pkg/infra/postgres"
	"github.com/sokoide/order-saga/pkg/infra/rabbitmq"
	"github.com/sokoide/order-saga/pkg/usecase"
)

func main() {
	cfg, err := config.LoadOrder()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(poolCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	repo := postgres.NewOrderRepository(pool)
	if err := repo.Init(poolCtx); err != nil {
		logger.Fatal("schema init failed", zap.Error(err))
	}

	conn, ch, err := rabbitmq.SetupConn(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbitmq setup failed", zap.Error(err))
	}
	defer conn.Close()
	defer ch.Close()

	var orderCache domain.OrderCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		orderCache = cache.NewOrderCache(cfg.RedisAddr, cfg.CacheTTL, logger)
	}

	m := metrics.New("order")
	pub := rabbitmq.NewPublisher(ch, m)
	uc := usecase.NewOrderUsecase(repo, orderCache, pub, logger)

	consumer := rabbitmq.NewConsumer(ch, "order_q", rabbitmq.PolicyFromString(cfg.OnError), logger, m)
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangeInventory, RoutingKey: domain.KeyInventoryUnavailable},
		rabbitmq.JSON(uc.HandleInventoryUnavailable))
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangePayment, RoutingKey: domain.KeyPaymentProcessed},
		rabbitmq.JSON(uc.HandlePaymentProcessed))
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangePayment, RoutingKey: domain.KeyPaymentFailed},
		rabbitmq.JSON(uc.HandlePaymentFailed))

	router := httpapi.NewRouter(httpapi.NewHandler(uc, logger))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Start(ctx) })
	g.Go(func() error { return httpapi.Serve(ctx, ":"+cfg.Port, router) })

	logger.Info("order service started", zap.String("port", cfg.Port))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("order service failed", zap.Error(err))
	}
	logger.Info("order service stopped")
}
