package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/metrics"
)

// AuditService persists token lifecycle events. It is driven by the audit
// dispatcher's workers, never by request handlers directly.
type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record writes a single event to the audit trail.
func (s *AuditService) Record(ctx context.Context, event domain.AuthEvent) error {
	if event.Type == "" {
		metrics.AuditEventsTotal.WithLabelValues("unknown", "invalid").Inc()
		return fmt.Errorf("record audit event: missing type")
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "stored").Inc()
	s.log.Debug().
		Str("type", string(event.Type)).
		Str("username", event.Username).
		Msg("audit event recorded")
	return nil
}
