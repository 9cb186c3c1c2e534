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
	"github.com/sokoide/order-saga/pkg/infra/httpapi"
	"github.com/sokoide/order-saga/pkg/infra/metrics"
	"github.com/sokoide/order-saga/pkg/infra/postgres"
	"github.com/sokoide/order-saga/pkg/infra/rabbitmq"
	"github.com/sokoide/order-saga/pkg/usecase"
)

func main() {
	cfg, err := config.LoadPayment()
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

	repo := postgres.NewPaymentRepository(pool)
	if err := repo.Init(poolCtx); err != nil {
		logger.Fatal("schema init failed", zap.Error(err))
	}

	conn, ch, err := rabbitmq.SetupConn(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbitmq setup failed", zap.Error(err))
	}
	defer conn.Close()
	defer ch.Close()

	m := metrics.New("payment")
	pub := rabbitmq.NewPublisher(ch, m)
	uc := usecase.NewPaymentUsecase(repo, pub,
		usecase.SimulateCharge(cfg.ChargeSuccessRate), usecase.DefaultChargeRetry(), logger)

	consumer := rabbitmq.NewConsumer(ch, "payment_q", rabbitmq.PolicyFromString(cfg.OnError), logger, m)
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangeInventory, RoutingKey: domain.KeyInventoryReserved},
		rabbitmq.JSON(uc.HandleInventoryReserved))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Start(ctx) })
	g.Go(func() error { return httpapi.Serve(ctx, ":"+cfg.Port, httpapi.Ops()) })

	logger.Info("payment service started", zap.String("port", cfg.Port))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("payment service failed", zap.Error(err))
	}
	logger.Info("payment service stopped")
}
