// Package fetch adds resilience and artifact resolution on top of release sources.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/git-pkgs/releasecheck"
)

// ErrUpstreamDown is returned while a host's circuit breaker is open.
var ErrUpstreamDown = errors.New("upstream registry unavailable")

const defaultTripThreshold = 5

// CircuitBreakerSource wraps a Source with per-host circuit breakers.
// Not-found responses do not count as failures.
type CircuitBreakerSource struct {
	source    releasecheck.Source
	breakers  map[string]*circuit.Breaker
	mu        sync.RWMutex
	threshold int64
	initial   time.Duration
}

// CircuitBreakerOption configures a CircuitBreakerSource.
type CircuitBreakerOption func(*CircuitBreakerSource)

// WithTripThreshold sets how many consecutive failures open a breaker.
func WithTripThreshold(n int64) CircuitBreakerOption {
	return func(s *CircuitBreakerSource) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithResetInterval sets the initial wait before an open breaker lets a
// trial request through. Later waits grow exponentially up to 5 minutes.
func WithResetInterval(d time.Duration) CircuitBreakerOption {
	return func(s *CircuitBreakerSource) {
		if d > 0 {
			s.initial = d
		}
	}
}

// NewCircuitBreakerSource creates a circuit breaker wrapper for a source.
func NewCircuitBreakerSource(src releasecheck.Source, opts ...CircuitBreakerOption) *CircuitBreakerSource {
	s := &CircuitBreakerSource{
		source:    src,
		breakers:  make(map[string]*circuit.Breaker),
		threshold: defaultTripThreshold,
		initial:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CircuitBreakerSource) Host() string {
	return s.source.Host()
}

func (s *CircuitBreakerSource) URLs() releasecheck.URLBuilder {
	return s.source.URLs()
}

// getBreaker returns or creates a circuit breaker for the given API host.
func (s *CircuitBreakerSource) getBreaker(host string) *circuit.Breaker {
	s.mu.RLock()
	breaker, exists := s.breakers[host]
	s.mu.RUnlock()

	if exists {
		return breaker
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if breaker, exists := s.breakers[host]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.initial
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(s.threshold),
	})

	s.breakers[host] = breaker
	return breaker
}

// FetchReleases calls the wrapped source unless the host's breaker is open.
func (s *CircuitBreakerSource) FetchReleases(ctx context.Context, owner, repo string) ([]releasecheck.Release, error) {
	host := extractHost(s.source.URLs().Releases(owner, repo))
	breaker := s.getBreaker(host)

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	var releases []releasecheck.Release
	var notFound error
	err := breaker.Call(func() error {
		r, fetchErr := s.source.FetchReleases(ctx, owner, repo)
		if errors.Is(fetchErr, releasecheck.ErrNotFound) {
			notFound = fetchErr
			return nil
		}
		releases = r
		return fetchErr
	}, 0)

	if notFound != nil {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return releases, nil
}

// extractHost returns the host of an API URL for breaker grouping.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// GetBreakerState returns the current state of circuit breakers (for health checks).
func (s *CircuitBreakerSource) GetBreakerState() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range s.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
