package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"payfort-gateway/internal/core/domain"
)

// ExternalServiceRuleEngine delegates the decision to an external review
// service. Any failure along the way degrades to "not flagged": the audit
// stream must keep draining even when the scorer is down.
type ExternalServiceRuleEngine struct {
	client    *http.Client
	scorerURL string
	logger    *slog.Logger
}

func NewExternalServiceRuleEngine(scorerURL string, logger *slog.Logger) *ExternalServiceRuleEngine {
	return &ExternalServiceRuleEngine{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		scorerURL: scorerURL,
		logger:    logger,
	}
}

func (e *ExternalServiceRuleEngine) CheckEvent(event domain.PaymentEvent) domain.AuditResult {
	requestBody, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("failed to marshal event for review service", "error", err)
		return domain.AuditResult{}
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.scorerURL, bytes.NewBuffer(requestBody))
	if err != nil {
		e.logger.Error("failed to build review service request", "error", err)
		return domain.AuditResult{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("review service call failed", "error", err)
		return domain.AuditResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Error("review service returned non-200 status", "status", resp.Status)
		return domain.AuditResult{}
	}

	var result domain.AuditResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		e.logger.Error("failed to decode review service response", "error", err)
		return domain.AuditResult{}
	}
	return result
}
