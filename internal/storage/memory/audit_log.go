package memory

import (
	"context"
	"sync"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// AuditLog is an in-memory implementation of storage.AuditLog.
type AuditLog struct {
	mu            sync.RWMutex
	draws         []domain.DrawResult
	distributions []domain.Distribution
}

var _ storage.AuditLog = (*AuditLog)(nil)

// NewAuditLog creates a new in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// RecordDraw appends a draw result.
func (l *AuditLog) RecordDraw(_ context.Context, r *domain.DrawResult) error {
	if r == nil {
		return storage.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.draws = append(l.draws, *r)
	return nil
}

// RecordDistribution appends a distribution.
func (l *AuditLog) RecordDistribution(_ context.Context, d *domain.Distribution) error {
	if d == nil {
		return storage.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.distributions = append(l.distributions, *d)
	return nil
}

// Draws returns recorded draws in append order.
func (l *AuditLog) Draws() []domain.DrawResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.DrawResult(nil), l.draws...)
}

// Distributions returns recorded distributions in append order.
func (l *AuditLog) Distributions() []domain.Distribution {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Distribution(nil), l.distributions...)
}
