// Package audit flags anomalous callback traffic on the payment events
// stream. It is advisory tooling for reconciliation; nothing here sits on
// the callback request path.
package audit

import "payfort-gateway/internal/core/domain"

// RuleEngine decides whether a payment event warrants a report.
type RuleEngine interface {
	CheckEvent(event domain.PaymentEvent) domain.AuditResult
}
