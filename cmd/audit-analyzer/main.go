package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"payfort-gateway/internal/audit"
	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/domain"
	"payfort-gateway/internal/observability"
)

const consumerGroup = "payfort-audit-group"

func main() {
	// --- Configuration Setup ---
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("audit analyzer starting", "env", cfg.App.Env)

	// --- Component Initialization ---
	kafkaBrokers := strings.Split(cfg.Kafka.BootstrapServers, ",")

	// Kafka Producer (for sending to DLQ)
	dlqProducer, err := kgo.NewClient(
		kgo.SeedBrokers(kafkaBrokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		logger.Error("failed to create Kafka producer for DLQ", "error", err)
		os.Exit(1)
	}
	defer dlqProducer.Close()

	// ClickHouse Client: For writing audit results.
	chConn, err := clickhouse.Open(&clickhouse.Options{Addr: []string{cfg.ClickHouse.Addr}})
	if err != nil {
		logger.Error("failed to connect to ClickHouse", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := chConn.Close(); err != nil {
			logger.Error("Failed to close ClickHouse connection", "error", err)
		}
	}()

	// Redis Client: Dependency for the caching rule engine.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("Failed to close redis connection", "error", err)
		}
	}()

	// Pick the rule engine. The external scorer takes precedence when
	// configured; the Redis engine covers the built-in rules.
	var ruleEngine audit.RuleEngine
	if cfg.Audit.ScorerURL != "" {
		ruleEngine = audit.NewExternalServiceRuleEngine(cfg.Audit.ScorerURL, logger)
	} else {
		ruleEngine = audit.NewCachingRuleEngine(rdb, cfg.Audit, logger)
	}

	// --- Application Start ---

	consumerClient, err := kgo.NewClient(
		kgo.SeedBrokers(kafkaBrokers...),
		kgo.ConsumerGroup(consumerGroup),
		kgo.ConsumeTopics(cfg.Kafka.Topic),
		// Offsets are committed manually after each processed batch.
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		logger.Error("failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumerClient.Close()

	// Set up graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("audit analyzer is running")

	// Main processing loop.
	run := true
	for run {
		select {
		case <-ctx.Done():
			run = false
		default:
			fetches := consumerClient.PollFetches(ctx)
			if fetches.IsClientClosed() || ctx.Err() != nil {
				break
			}

			fetches.EachError(func(t string, p int32, err error) {
				logger.Error("error reading from kafka", "topic", t, "partition", p, "error", err)
			})
			fetches.EachRecord(func(record *kgo.Record) {
				var event domain.PaymentEvent
				if err := json.Unmarshal(record.Value, &event); err != nil {
					logger.Error("failed to parse payment event, sending to DLQ", "ERROR", err)
					sendToDLQ(dlqProducer, cfg.Kafka.DLQTopic, record, "unmarshal_error", err.Error())
					return
				}

				result := ruleEngine.CheckEvent(event)

				err := chConn.Exec(ctx, `
				INSERT INTO default.callback_reports (event_id, event_type, endpoint, transaction_id, merchant_reference, basket_id, status, amount, flagged, reason, processed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					event.ID,
					string(event.Type),
					event.Endpoint,
					event.TransactionID,
					event.MerchantReference,
					event.BasketID,
					event.Status,
					event.Amount,
					result.Flagged,
					result.Reason,
					time.Now(),
				)
				if err != nil {
					logger.Error("Failed to insert into ClickHouse", "ERROR", err, "event_id", event.ID)
					return
				}

				logger.Info("payment event processed",
					"event_id", event.ID,
					"transaction_id", event.TransactionID,
					"flagged", result.Flagged,
				)
			})

			// Commit offsets after successfully processing a batch of messages
			if err := consumerClient.CommitUncommittedOffsets(ctx); err != nil {
				logger.Error("error committing offsets", "error", err)
			}
		}
	}

	logger.Info("audit analyzer stopping...")
}

// sendToDLQ sends the original malformed message to the Dead-Letter Queue.
func sendToDLQ(p *kgo.Client, dlqTopic string, originalRecord *kgo.Record, errorType, errorString string) {
	dlqRecord := &kgo.Record{
		Topic: dlqTopic,
		Value: originalRecord.Value,
		Key:   originalRecord.Key,
		// Headers carry metadata about the failure for easier debugging.
		Headers: []kgo.RecordHeader{
			{Key: "error_type", Value: []byte(errorType)},
			{Key: "error_string", Value: []byte(errorString)},
			{Key: "original_topic", Value: []byte(originalRecord.Topic)},
		},
	}
	// Sending asynchronously with a callback
	p.Produce(context.Background(), dlqRecord, func(r *kgo.Record, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: failed to produce message to DLQ: %v\n", err)
		}
	})
}
