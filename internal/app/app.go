// Package app assembles the order service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	internalaws "OrderKeeper/internal/aws"
	"OrderKeeper/internal/config"
	"OrderKeeper/internal/events"
	"OrderKeeper/internal/order"
	"OrderKeeper/pkg/kit"
)

const Service = "order"

type App struct {
	Handler http.Handler
	Store   order.Store
	Events  events.Publisher
	Backend string
}

// New opens the store, connects the configured event sinks and builds the
// HTTP handler. Close releases everything New acquired.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, reg *prometheus.Registry) (*App, error) {
	store, backend, err := order.Open(ctx, order.StoreConfig{
		URL:           cfg.DatabaseURL,
		MongoDatabase: cfg.MongoDatabase,
		AWSRegion:     cfg.AWSRegion,
		AWSEndpoint:   cfg.AWSEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("open order store: %w", err)
	}
	log.Info("order store ready", zap.String("backend", backend))

	pub, err := newPublisher(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var metrics *kit.Metrics
	if reg != nil {
		metrics = kit.NewMetrics(reg)
	}

	s := &order.Server{
		Store:  order.WithMetrics(store, backend, metrics),
		Events: pub,
		Log:    log,
	}

	h := order.NewHandler(s, order.HTTPDeps{
		Log:               log,
		Service:           Service,
		Registry:          reg,
		Metrics:           metrics,
		MetricsEnabled:    cfg.MetricsEnabled,
		MetricsToken:      cfg.MetricsToken,
		CreateLimitPerMin: cfg.CreateLimitPerMin,
	})

	return &App{Handler: h, Store: store, Events: pub, Backend: backend}, nil
}

func (a *App) Close() error {
	return errors.Join(a.Events.Close(), a.Store.Close())
}

func newPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (events.Publisher, error) {
	var sinks events.Multi

	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic))
		log.Info("publishing order events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	if cfg.RabbitMQURL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, p)
		log.Info("publishing order events to rabbitmq", zap.String("queue", cfg.RabbitMQQueue))
	}

	if cfg.SQSQueueURL != "" {
		awsCfg, err := internalaws.LoadConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL))
		log.Info("publishing order events to sqs", zap.String("queue_url", cfg.SQSQueueURL))
	}

	if len(sinks) == 0 {
		return events.Nop{}, nil
	}
	return sinks, nil
}
