// Package ratelimit provides per-tool token bucket rate limiting for the
// MCP server. Simulation runs are CPU bound, so each tool gets its own budget.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Tool names exposed by the MCP server.
const (
	ToolRun       = "drsim_run"
	ToolEstimate  = "drsim_estimate"
	ToolScenarios = "drsim_scenarios"
)

// Limiter is a token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling at rate tokens per second.
// Each key starts with burst tokens.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes a token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	return l.Take(key) == 0
}

// Take takes a token for key and returns 0, or returns how long the caller
// must wait before a token will be available. A limiter with a zero rate
// returns math.MaxInt64 once the burst is spent.
func (l *Limiter) Take(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b := l.refill(key, now)

	if b.tokens >= 1.0 {
		b.tokens--
		return 0
	}
	if l.rate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	wait := (1.0 - b.tokens) / l.rate
	return time.Duration(math.Ceil(wait * float64(time.Second)))
}

// Tokens reports the tokens currently available for key.
func (l *Limiter) Tokens(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refill(key, l.nowFunc()).tokens
}

// refill must be called with mu held.
func (l *Limiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
		return b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}
	return b
}

// LimitError is returned by CheckLimit when a tool's budget is spent.
type LimitError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.RetryAfter == time.Duration(math.MaxInt64) {
		return fmt.Sprintf("rate limit exceeded for %s", e.Tool)
	}
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Tool, e.RetryAfter.Round(time.Second))
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default per-tool limits.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolRun:       NewLimiter(6.0/60.0, 2),  // 6/minute, burst 2
		ToolEstimate:  NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		ToolScenarios: NewLimiter(1.0, 10),      // 60/minute, burst 10
	}
}

// CheckLimit returns nil if the call is allowed, or a *LimitError.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	if wait := limiter.Take(toolName); wait > 0 {
		return &LimitError{Tool: toolName, RetryAfter: wait}
	}
	return nil
}
