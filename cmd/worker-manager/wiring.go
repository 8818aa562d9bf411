package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"startup-match-workers/internal/catalog"
	"startup-match-workers/internal/common/aws"
	"startup-match-workers/internal/common/config"
	"startup-match-workers/internal/common/database"
	"startup-match-workers/internal/common/events"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/llm"
	cc "startup-match-workers/internal/workers/checkout/calculate-checkout"
)

func buildCatalog(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, rdb *database.RedisClient, log logger.Logger, zapLog *zap.Logger) (*catalog.CachedSupplier, error) {
	var source catalog.Supplier

	switch cfg.Catalog.Source {
	case "elasticsearch":
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		created, err := es.EnsureIndex(ctx, cfg.Catalog.Index)
		if err != nil {
			return nil, err
		}
		if created {
			zapLog.Warn("Catalog index was missing and has been created empty", zap.String("index", cfg.Catalog.Index))
		}
		source = catalog.NewElasticsearchSource(es.Client, cfg.Catalog.Index)
	default:
		source = catalog.NewPostgresSource(pg.DB)
	}

	zapLog.Info("Catalog source selected", zap.String("source", cfg.Catalog.Source))
	return catalog.NewCachedSupplier(source, cfg.Catalog.Source, rdb.Client, cfg.Catalog.LRUSize,
		config.GetDuration(cfg.Catalog.CacheTTL), log)
}

func buildInvoker(ctx context.Context, cfg *config.Config, log logger.Logger) (llm.Invoker, error) {
	g := cfg.APIs.GenAI

	var base llm.Invoker
	switch g.Provider {
	case "http":
		base = llm.NewHTTPInvoker(g.BaseURL, g.APIKey, g.Model, g.Temperature)
	case "gemini":
		inv, err := llm.NewGeminiInvoker(ctx, g.APIKey, g.Model, g.Temperature)
		if err != nil {
			return nil, err
		}
		base = inv
	default:
		return nil, fmt.Errorf("unknown genai provider %q", g.Provider)
	}

	return llm.WithRetry(base, llm.RetryConfig{
		MaxAttempts:    g.MaxAttempts,
		BaseDelay:      config.GetDuration(g.BaseDelay),
		MaxDelay:       config.GetDuration(g.MaxDelay),
		AttemptTimeout: config.GetDuration(g.Timeout),
	}, log), nil
}

func buildPublisher(cfg *config.Config, zapLog *zap.Logger) (events.Publisher, func(), error) {
	if !cfg.Events.Enabled {
		zapLog.Info("Session events disabled")
		return events.NoopPublisher{}, func() {}, nil
	}

	var pub *events.AMQPPublisher
	err := retryWithBackoff(func() error {
		var err error
		pub, err = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		return err
	}, 10, 2*time.Second, zapLog, "RabbitMQ connection")
	if err != nil {
		return nil, nil, err
	}

	zapLog.Info("RabbitMQ connected successfully", zap.String("exchange", cfg.Events.Exchange))
	return pub, func() { _ = pub.Close() }, nil
}

// buildNotifier returns nil when the SNS hand-off is disabled.
func buildNotifier(ctx context.Context, cfg *config.Config) (cc.Notifier, error) {
	sns := cfg.Integrations.AWS.SNS
	if !sns.Enabled {
		return nil, nil
	}
	client, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, sns.TopicARN)
	if err != nil {
		return nil, err
	}
	return client, nil
}
