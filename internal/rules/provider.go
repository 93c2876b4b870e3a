package rules

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// Provider hands out the current rule snapshot. Reload builds a fresh
// snapshot and swaps it in; snapshots already handed out stay valid.
type Provider struct {
	repo    port.CleaningRuleRepository
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// NewProvider creates a Provider. Call Reload before the first Current.
func NewProvider(repo port.CleaningRuleRepository, logger *zap.Logger) *Provider {
	return &Provider{repo: repo, logger: logger.Named("rules")}
}

// Current returns the active snapshot.
func (p *Provider) Current() (*Snapshot, error) {
	s := p.current.Load()
	if s == nil {
		return nil, domain.ErrRuleStoreUnavailable
	}
	return s, nil
}

// Reload reads the enabled rules and installs a new snapshot. On error the
// previous snapshot remains active.
func (p *Provider) Reload(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defs, err := p.repo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("rules.Reload: %w", err)
	}
	snap, err := NewSnapshot(defs)
	if err != nil {
		p.logger.Error("rule snapshot rejected", zap.Error(err))
		return nil, fmt.Errorf("rules.Reload: %w", err)
	}

	for _, c := range DetectConflicts(snap, ProbeSamples(snap)) {
		p.logger.Warn("order-dependent rules",
			zap.Int64("first", c.First),
			zap.Int64("second", c.Second),
			zap.String("column", c.Sample.Column),
			zap.String("sample", c.Sample.Value),
			zap.String("forward", c.Forward),
			zap.String("reverse", c.Reverse),
		)
	}

	p.current.Store(snap)
	p.logger.Info("rule snapshot loaded", zap.Int("rules", snap.Len()))
	return snap, nil
}
