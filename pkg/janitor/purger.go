package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
)

// Purge kinds used in metrics
const (
	KindRevocations = "revoked_tokens"
	KindAuditEvents = "audit_events"
)

// AuditPurger removes audit events recorded before a cutoff
type AuditPurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Config holds the collaborators of a Purger
type Config struct {
	Revocations storage.RevocationStore
	// Audit and AuditRetention are optional; both must be set to purge events
	Audit          AuditPurger
	AuditRetention time.Duration
	Metrics        *observability.Metrics
	Now            func() time.Time
}

// Result counts what one pass removed
type Result struct {
	Revocations int64
	AuditEvents int64
}

// Purger deletes revocation entries whose token has expired and audit
// events past retention
type Purger struct {
	revocations storage.RevocationStore
	audit       AuditPurger
	retention   time.Duration
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewPurger creates a purger
func NewPurger(cfg Config) *Purger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Purger{
		revocations: cfg.Revocations,
		audit:       cfg.Audit,
		retention:   cfg.AuditRetention,
		metrics:     cfg.Metrics,
		now:         now,
	}
}

// Run performs one purge pass. A failure in one kind does not stop the other.
func (p *Purger) Run(ctx context.Context) (Result, error) {
	var (
		res  Result
		errs []error
	)
	now := p.now().UTC()

	n, err := p.revocations.PurgeExpired(ctx, now)
	p.metrics.RecordPurge(KindRevocations, n, err)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to purge revoked tokens: %w", err))
	}
	res.Revocations = n

	if p.audit != nil && p.retention > 0 {
		n, err := p.audit.Purge(ctx, now.Add(-p.retention))
		p.metrics.RecordPurge(KindAuditEvents, n, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to purge audit events: %w", err))
		}
		res.AuditEvents = n
	}

	return res, errors.Join(errs...)
}
