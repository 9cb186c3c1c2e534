package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokoide/order-saga/pkg/config"
	"github.com/sokoide/order-saga/pkg/domain"
	"github.com/sokoide/order-saga/pkg/infra/httpapi"
	"github.com/sokoide/order-saga/pkg/infra/metrics"
	"github.com/sokoide/order-saga/pkg/infra/rabbitmq"
	"github.com/sokoide/order-saga/pkg/usecase"
)

func main() {
	cfg, err := config.LoadNotification()
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

	conn, ch, err := rabbitmq.SetupConn(cfg.RabbitURL)
	if err != nil {
		logger.Fatal("rabbitmq setup failed", zap.Error(err))
	}
	defer conn.Close()
	defer ch.Close()

	m := metrics.New("notification")
	uc := usecase.NewNotificationUsecase(logger)
	notify := rabbitmq.JSON(uc.Notify)

	consumer := rabbitmq.NewConsumer(ch, "notification_q", rabbitmq.PolicyFromString(cfg.OnError), logger, m)
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangeOrder, RoutingKey: domain.KeyOrderConfirmed}, notify)
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangeOrder, RoutingKey: domain.KeyOrderCancelled}, notify)
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangePayment, RoutingKey: domain.KeyPaymentProcessed}, notify)
	consumer.Handle(rabbitmq.Binding{Exchange: domain.ExchangePayment, RoutingKey: domain.KeyPaymentFailed}, notify)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Start(ctx) })
	g.Go(func() error { return httpapi.Serve(ctx, ":"+cfg.Port, httpapi.Ops()) })

	logger.Info("notification service started", zap.String("port", cfg.Port))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("notification service failed", zap.Error(err))
	}
	logger.Info("notification service stopped")
}
