package usecase

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// Profile is the full rule configuration swapped in as one unit
type Profile struct {
	Signals      *domain.SignalSet
	Verification domain.VerificationPolicy
}

// ProfileProvider serves the current profile and reloads it on demand
type ProfileProvider struct {
	cur    atomic.Pointer[Profile]
	load   func() (*Profile, error)
	logger *zap.Logger
}

// NewProfileProvider starts from initial; load is used by Reload and may be nil
func NewProfileProvider(initial *Profile, load func() (*Profile, error), logger *zap.Logger) *ProfileProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ProfileProvider{load: load, logger: logger}
	p.cur.Store(initial)
	return p
}

// Current returns the active profile
func (p *ProfileProvider) Current() *Profile {
	return p.cur.Load()
}

// Reload replaces the profile. On error the previous profile stays active.
func (p *ProfileProvider) Reload() error {
	if p.load == nil {
		return fmt.Errorf("profile reload is not configured")
	}
	next, err := p.load()
	if err != nil {
		p.logger.Warn("profile reload failed, keeping previous profile", zap.Error(err))
		return err
	}
	p.cur.Store(next)
	p.logger.Info("profile reloaded",
		zap.Int("keywords", len(next.Signals.Keywords)),
		zap.Int("domains", len(next.Signals.SuspiciousDomains)),
		zap.Int("challenges", len(next.Verification.Challenges)))
	return nil
}
