// Package simulate injects artificial latency and failures into request
// handling, either from server configuration or from per-request control
// parameters.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// Control parameter names recognized on any request.
const (
	// ParamDelay forces a delay in milliseconds for this request only.
	ParamDelay = "_delay"
	// ParamStatus forces the response status code for this request only.
	ParamStatus = "_status"
)

// maxRequestDelay caps per-request delays so a stray parameter cannot
// park a connection indefinitely.
const maxRequestDelay = 30 * time.Second

// Config holds the configured simulation behavior.
type Config struct {
	// DelayMs adds a fixed delay to every request. Ignored when the
	// random range below is set.
	DelayMs int

	// DelayMinMs and DelayMaxMs add a uniformly random delay in
	// [min, max] to every request. Active when max > 0.
	DelayMinMs int
	DelayMaxMs int

	// ErrorRate is the probability in [0, 1] that a request fails with
	// one of ErrorCodes instead of being handled.
	ErrorRate float64

	// ErrorCodes are the candidate failure status codes. Defaults to
	// 500 when ErrorRate is set and no codes are given.
	ErrorCodes []int
}

// Simulator applies a Config to individual requests.
type Simulator struct {
	cfg Config
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Simulator. Rate values are clamped to [0, 1] and an
// inverted delay range is swapped.
func New(cfg Config) *Simulator {
	if cfg.ErrorRate < 0 {
		cfg.ErrorRate = 0
	}
	if cfg.ErrorRate > 1 {
		cfg.ErrorRate = 1
	}
	if cfg.DelayMaxMs > 0 && cfg.DelayMinMs > cfg.DelayMaxMs {
		cfg.DelayMinMs, cfg.DelayMaxMs = cfg.DelayMaxMs, cfg.DelayMinMs
	}
	if cfg.ErrorRate > 0 && len(cfg.ErrorCodes) == 0 {
		cfg.ErrorCodes = []int{500}
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay computes the configured delay for one request. A non-empty
// override (the _delay parameter) takes precedence over configuration.
func (s *Simulator) Delay(override string) time.Duration {
	if override != "" {
		ms, err := strconv.Atoi(override)
		if err == nil && ms > 0 {
			d := time.Duration(ms) * time.Millisecond
			if d > maxRequestDelay {
				d = maxRequestDelay
			}
			return d
		}
		return 0
	}

	if s.cfg.DelayMaxMs > 0 {
		s.mu.Lock()
		ms := s.cfg.DelayMinMs + s.rng.Intn(s.cfg.DelayMaxMs-s.cfg.DelayMinMs+1)
		s.mu.Unlock()
		return time.Duration(ms) * time.Millisecond
	}
	if s.cfg.DelayMs > 0 {
		return time.Duration(s.cfg.DelayMs) * time.Millisecond
	}
	return 0
}

// Sleep blocks for the computed delay, returning early if the request
// context is cancelled.
func (s *Simulator) Sleep(ctx context.Context, override string) {
	d := s.Delay(override)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ForcedStatus parses the _status override. It returns 0 when the value
// is empty or not a valid HTTP status code.
func ForcedStatus(override string) int {
	if override == "" {
		return 0
	}
	code, err := strconv.Atoi(override)
	if err != nil || code < 100 || code > 599 {
		return 0
	}
	return code
}

// Fail rolls against the configured error rate. It returns a status
// code to fail with, or 0 when the request should proceed.
func (s *Simulator) Fail() int {
	if s.cfg.ErrorRate <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() >= s.cfg.ErrorRate {
		return 0
	}
	return s.cfg.ErrorCodes[s.rng.Intn(len(s.cfg.ErrorCodes))]
}

// ErrorBody is the response body for a simulated failure.
func ErrorBody(code int) map[string]any {
	return map[string]any{"error": fmt.Sprintf("Simulated %d error", code)}
}
