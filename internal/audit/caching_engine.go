package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/domain"
	"payfort-gateway/internal/payfort"
)

// CachingRuleEngine implements the RuleEngine interface using Redis for the
// stateful frequency rule.
type CachingRuleEngine struct {
	rdb    *redis.Client
	cfg    config.AuditConfig
	logger *slog.Logger
}

// NewCachingRuleEngine creates a new engine connected to Redis.
func NewCachingRuleEngine(rdb *redis.Client, cfg config.AuditConfig, logger *slog.Logger) *CachingRuleEngine {
	return &CachingRuleEngine{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger,
	}
}

// CheckEvent applies the audit rules to one payment event.
func (e *CachingRuleEngine) CheckEvent(event domain.PaymentEvent) domain.AuditResult {
	ctx := context.Background()

	// Rule 1: settled amount above the review threshold.
	if amount, err := strconv.ParseInt(event.Amount, 10, 64); err == nil {
		if event.Status == payfort.SuccessStatus && amount > e.cfg.AmountThreshold {
			return domain.AuditResult{
				Flagged: true,
				Reason:  fmt.Sprintf("amount %d exceeds review threshold %d", amount, e.cfg.AmountThreshold),
			}
		}
	}

	// Rule 2: too many failed callbacks for one basket inside the window,
	// which usually means a retry loop or probing.
	if event.Status == payfort.SuccessStatus || event.BasketID == 0 {
		return domain.AuditResult{}
	}

	key := fmt.Sprintf("failed_callbacks:%d", event.BasketID)
	count, err := e.rdb.Incr(ctx, key).Result()
	if err != nil {
		e.logger.Error("redis INCR failed", "error", err)
		return domain.AuditResult{}
	}
	if count == 1 {
		ttl := time.Duration(e.cfg.FailureWindowSeconds) * time.Second
		e.rdb.Expire(ctx, key, ttl)
	}

	if count > int64(e.cfg.FailureThreshold) {
		return domain.AuditResult{
			Flagged: true,
			Reason: fmt.Sprintf(
				"basket %d: %d failed callbacks in %d seconds",
				event.BasketID, count, e.cfg.FailureWindowSeconds,
			),
		}
	}

	return domain.AuditResult{}
}
