// Package decision bridges the fixed-cadence simulation loop and the
// slow decision provider.
//
// A single worker goroutine consumes one request at a time; the loop
// side submits and polls without ever blocking. The coordinator holds at
// most one in-flight request — a submit while the worker is busy is
// rejected outright rather than queued, so the provider never acts on
// stale state.
package decision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/provider"
)

// PassiveAction is the safe default applied when no real decision is
// available.
const PassiveAction = "wait"

// Result is the outcome of one decision request. Fallback results carry
// the passive action; TimedOut marks a result synthesized by the caller
// after its deadline expired.
type Result struct {
	Action     string              `json:"action"`
	Reasoning  string              `json:"reasoning"`
	GoalUpdate provider.GoalUpdate `json:"goal_update"`
	Fallback   bool                `json:"fallback,omitempty"`
	TimedOut   bool                `json:"timed_out,omitempty"`
	Elapsed    time.Duration       `json:"-"`
}

// TimeoutResult is the passive result the caller applies when its
// deadline expires with no answer from the worker.
func TimeoutResult(deadline time.Duration) Result {
	return Result{
		Action:    PassiveAction,
		Reasoning: fmt.Sprintf("decision timed out after %s", deadline),
		Fallback:  true,
		TimedOut:  true,
	}
}

type request struct {
	snapshot gamestate.Snapshot
	context  string
	stop     bool
}

// Config holds coordinator settings.
type Config struct {
	// ProviderTimeout bounds one provider call on the worker. Defaults
	// to 90 seconds if zero.
	ProviderTimeout time.Duration

	// StopTimeout bounds how long Stop waits for the worker to drain.
	// Defaults to 5 seconds if zero. Exceeding it is non-fatal.
	StopTimeout time.Duration
}

// Coordinator serializes decision requests onto one worker goroutine.
//
// The request and result channels each hold one element; the thinking
// flag is the only other state shared across the goroutine boundary.
type Coordinator struct {
	cfg      Config
	prov     provider.Provider
	logger   zerolog.Logger
	requests chan request
	results  chan Result

	mu       sync.Mutex
	thinking bool

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a coordinator and starts its worker.
func New(cfg Config, prov provider.Provider, logger zerolog.Logger) *Coordinator {
	if cfg.ProviderTimeout == 0 {
		cfg.ProviderTimeout = 90 * time.Second
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	c := &Coordinator{
		cfg:      cfg,
		prov:     prov,
		logger:   logger.With().Str("component", "decision").Logger(),
		requests: make(chan request, 1),
		results:  make(chan Result, 1),
		done:     make(chan struct{}),
	}
	go c.worker()
	return c
}

// Submit enqueues a decision request. It returns false while the worker
// is busy: requests are rejected, never queued behind an old one. On
// acceptance any stale queued request and any unconsumed late result are
// discarded first, so the worker always sees the freshest state.
func (c *Coordinator) Submit(snap gamestate.Snapshot, contextText string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.thinking {
		return false
	}

	// Coalesce: drop anything superseded by this submission.
	select {
	case <-c.requests:
	default:
	}
	select {
	case old := <-c.results:
		c.logger.Debug().Str("action", old.Action).Msg("discarding unconsumed late result")
	default:
	}

	c.thinking = true
	c.requests <- request{snapshot: snap, context: contextText}
	return true
}

// Poll returns the pending result, or nil if none is ready. A zero wait
// never blocks; otherwise Poll blocks up to wait for a result.
func (c *Coordinator) Poll(wait time.Duration) *Result {
	if wait <= 0 {
		select {
		case res := <-c.results:
			return &res
		default:
			return nil
		}
	}
	select {
	case res := <-c.results:
		return &res
	case <-time.After(wait):
		return nil
	}
}

// Thinking reports whether a request is currently in flight.
func (c *Coordinator) Thinking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thinking
}

// Stop signals the worker with a sentinel and waits up to the configured
// timeout for it to drain. A provider call that never returns leaks the
// worker; that is acceptable only at process exit.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		// Replace any pending request with the sentinel.
		select {
		case <-c.requests:
		default:
		}
		select {
		case c.requests <- request{stop: true}:
		default:
		}

		select {
		case <-c.done:
			c.logger.Info().Msg("coordinator stopped")
		case <-time.After(c.cfg.StopTimeout):
			c.logger.Warn().Dur("timeout", c.cfg.StopTimeout).Msg("worker did not stop in time, proceeding")
		}
	})
}

// worker consumes one request at a time and publishes exactly one
// result per accepted request. Provider failures and panics become
// fallback results; they never reach the loop as errors.
func (c *Coordinator) worker() {
	defer close(c.done)

	for req := range c.requests {
		if req.stop {
			return
		}

		start := time.Now()
		res := c.decide(req)
		res.Elapsed = time.Since(start)

		if res.Fallback {
			c.logger.Warn().Str("reasoning", res.Reasoning).Dur("elapsed", res.Elapsed).Msg("decision fell back to passive action")
		} else {
			c.logger.Info().Str("action", res.Action).Dur("elapsed", res.Elapsed).Msg("decision ready")
		}

		// Publish before clearing the busy flag: once Submit can
		// succeed again, the result is already in the slot for its
		// coalescing drain to find.
		select {
		case c.results <- res:
		default:
			<-c.results
			c.results <- res
		}

		c.mu.Lock()
		c.thinking = false
		c.mu.Unlock()
	}
}

// decide runs one provider call with panic recovery.
func (c *Coordinator) decide(req request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("provider panicked")
			res = Result{
				Action:    PassiveAction,
				Reasoning: fmt.Sprintf("error: provider panic: %v", r),
				Fallback:  true,
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProviderTimeout)
	defer cancel()

	d, err := c.prov.Decide(ctx, req.snapshot, req.context)
	if err != nil {
		return Result{
			Action:    PassiveAction,
			Reasoning: fmt.Sprintf("error: %v", err),
			Fallback:  true,
		}
	}
	return Result{
		Action:     d.Action,
		Reasoning:  d.Reasoning,
		GoalUpdate: d.GoalUpdate,
	}
}
