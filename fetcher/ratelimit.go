package fetcher

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// minRateFloor is the slowest a single host is ever throttled to.
	minRateFloor = 0.5

	// maxRateCeiling caps requests per second against a single host.
	maxRateCeiling = 20.0

	// emaAlpha weights a new RTT observation against the running average.
	emaAlpha = 0.2

	// recoveryFactor is the per-observation increase while a host is fast.
	recoveryFactor = 1.1

	// backoffFactor bounds how far the rate can drop in one step.
	backoffFactor = 0.5
)

// hostState is the adaptive limiter for one host.
type hostState struct {
	limiter     *rate.Limiter
	emaRTT      time.Duration
	currentRate float64
}

// HostLimiter rate-limits requests per host and slows a host down when its
// smoothed response time exceeds the target. Platforms are rate sensitive
// independently, so a slow YouTube never throttles VK lookups.
type HostLimiter struct {
	mu         sync.Mutex
	hosts      map[string]*hostState
	initialRPS float64
	targetRTT  time.Duration
}

// NewHostLimiter creates a HostLimiter starting every host at initialRPS.
func NewHostLimiter(initialRPS int, targetRTT time.Duration) *HostLimiter {
	return &HostLimiter{
		hosts:      make(map[string]*hostState),
		initialRPS: clampRate(float64(initialRPS)),
		targetRTT:  targetRTT,
	}
}

// Wait blocks until host may receive another request or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.state(host).limiter.Wait(ctx)
}

// ObserveRTT folds one response time for host into its moving average and
// adjusts the host's rate.
func (h *HostLimiter) ObserveRTT(host string, rtt time.Duration) {
	state := h.state(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	state.emaRTT = time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(state.emaRTT))

	ratio := float64(h.targetRTT) / float64(max(state.emaRTT, time.Millisecond))
	var next float64
	if ratio < 1 {
		next = max(state.currentRate*ratio, state.currentRate*backoffFactor)
	} else {
		next = state.currentRate * recoveryFactor
	}
	next = clampRate(next)

	if math.Abs(next-state.currentRate) > 0.05 {
		state.currentRate = next
		state.limiter.SetLimit(rate.Limit(next))
		state.limiter.SetBurst(int(math.Ceil(next)))
	}
}

// Rate returns the current requests-per-second allowance for host.
func (h *HostLimiter) Rate(host string) float64 {
	state := h.state(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	return state.currentRate
}

func (h *HostLimiter) state(host string) *hostState {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.hosts[host]
	if !ok {
		state = &hostState{
			limiter:     rate.NewLimiter(rate.Limit(h.initialRPS), int(math.Ceil(h.initialRPS))),
			emaRTT:      h.targetRTT,
			currentRate: h.initialRPS,
		}
		h.hosts[host] = state
	}
	return state
}

func clampRate(rps float64) float64 {
	return min(max(rps, minRateFloor), maxRateCeiling)
}
