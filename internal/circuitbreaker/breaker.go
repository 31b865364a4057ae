// Package circuitbreaker guards venue fetches. A venue that fails several
// times in a row is held open for a cooldown instead of being hammered on
// every cycle; one probe is allowed through after the cooldown.
package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// State of a breaker.
type State string

const (
	// StateClosed lets requests through.
	StateClosed State = "closed"
	// StateOpen rejects requests until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen lets one probe through after the cooldown.
	StateHalfOpen State = "half-open"
)

// VenueBreaker tracks consecutive failures for one venue.
type VenueBreaker struct {
	venue            types.Platform
	failureThreshold int
	cooldown         time.Duration
	logger           *zap.Logger

	mu           sync.Mutex
	failures     int
	state        State
	openedAt     time.Time
	probeInUse   bool
	lastFailedAt time.Time
}

// Config holds breaker tuning.
type Config struct {
	Venue            types.Platform
	FailureThreshold int
	Cooldown         time.Duration
	Logger           *zap.Logger
}

// New creates a closed breaker.
func New(cfg *Config) (*VenueBreaker, error) {
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	b := &VenueBreaker{
		venue:            cfg.Venue,
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		logger:           cfg.Logger,
		state:            StateClosed,
	}

	BreakerState.WithLabelValues(string(cfg.Venue)).Set(0)
	return b, nil
}

// Allow reports whether a request may proceed. In the open state it flips to
// half-open once the cooldown has elapsed and admits a single probe.
func (b *VenueBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probeInUse = true
		b.logger.Info("breaker-half-open", zap.String("venue", string(b.venue)))
		return true

	case StateHalfOpen:
		if b.probeInUse {
			return false
		}
		b.probeInUse = true
		return true
	}

	return false
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *VenueBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.logger.Info("breaker-closed", zap.String("venue", string(b.venue)))
		BreakerTransitionsTotal.WithLabelValues(string(b.venue), string(StateClosed)).Inc()
	}
	b.state = StateClosed
	b.failures = 0
	b.probeInUse = false
	BreakerState.WithLabelValues(string(b.venue)).Set(0)
}

// RecordFailure counts a failure; at the threshold (or on a failed probe)
// the breaker opens.
func (b *VenueBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailedAt = time.Now()
	b.probeInUse = false

	shouldOpen := b.state == StateHalfOpen || b.failures >= b.failureThreshold
	if shouldOpen && b.state != StateOpen {
		b.state = StateOpen
		b.openedAt = time.Now()
		BreakerState.WithLabelValues(string(b.venue)).Set(1)
		BreakerTransitionsTotal.WithLabelValues(string(b.venue), string(StateOpen)).Inc()
		b.logger.Warn("breaker-opened",
			zap.String("venue", string(b.venue)),
			zap.Int("consecutive-failures", b.failures),
			zap.Duration("cooldown", b.cooldown))
	}
}

// CurrentState returns the breaker state for status endpoints.
func (b *VenueBreaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// MarketFetcher is the venue fetch operation being guarded.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context) ([]types.NormalizedMarket, error)
}

// GuardedSource wraps a venue source with a breaker.
type GuardedSource struct {
	inner   MarketFetcher
	breaker *VenueBreaker
}

// Guard wraps a market source so fetches feed the breaker and an open
// breaker short-circuits with a venue-unavailable error.
func Guard(inner MarketFetcher, breaker *VenueBreaker) *GuardedSource {
	return &GuardedSource{inner: inner, breaker: breaker}
}

// FetchMarkets proxies to the inner source when the breaker allows it.
func (g *GuardedSource) FetchMarkets(ctx context.Context) ([]types.NormalizedMarket, error) {
	if !g.breaker.Allow() {
		return nil, fmt.Errorf("%w: %s circuit open", types.ErrVenueUnavailable, g.breaker.venue)
	}

	markets, err := g.inner.FetchMarkets(ctx)
	if err != nil {
		g.breaker.RecordFailure()
		return nil, err
	}

	g.breaker.RecordSuccess()
	return markets, nil
}
