// Package publisher routes audit events to the publisher of their category.
package publisher

import (
	"context"
	"log/slog"

	audit "provenant/pkg/platform/audit"
)

// Emitter is implemented by the category publishers.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Publisher dispatches by event category. Compliance failures propagate to
// the caller; security events are fire-and-forget; operations events are
// logged only.
type Publisher struct {
	compliance Emitter
	security   Emitter
	logger     *slog.Logger
}

func New(compliance, security Emitter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{compliance: compliance, security: security, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	p.logger.InfoContext(ctx, event.Action,
		"log_type", "audit",
		"category", string(event.Category),
		"subject", event.Subject,
		"actor_id", event.ActorID,
		"request_id", event.RequestID,
	)
	switch event.Category {
	case audit.CategoryCompliance:
		if p.compliance != nil {
			return p.compliance.Emit(ctx, event)
		}
	case audit.CategorySecurity:
		if p.security != nil {
			_ = p.security.Emit(ctx, event)
		}
	}
	return nil
}
