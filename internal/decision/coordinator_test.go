package decision

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/provider"
)

// gatedProvider blocks each Decide call until released, so tests control
// exactly when the worker finishes.
type gatedProvider struct {
	gate     chan struct{}
	calls    atomic.Int64
	decision provider.Decision
	err      error
	panicMsg string
}

func (p *gatedProvider) Decide(ctx context.Context, _ gamestate.Snapshot, _ string) (provider.Decision, error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return provider.Decision{}, ctx.Err()
		}
	}
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.err != nil {
		return provider.Decision{}, p.err
	}
	return p.decision, nil
}

func newTestCoordinator(t *testing.T, cfg Config, prov provider.Provider) *Coordinator {
	t.Helper()
	c := New(cfg, prov, zerolog.Nop())
	t.Cleanup(c.Stop)
	return c
}

func waitForResult(t *testing.T, c *Coordinator) *Result {
	t.Helper()
	res := c.Poll(2 * time.Second)
	if res == nil {
		t.Fatal("expected a result within 2s")
	}
	return res
}

func TestSubmitAndPoll(t *testing.T) {
	prov := &gatedProvider{decision: provider.Decision{
		Action:     "up",
		Reasoning:  "path north is unexplored",
		GoalUpdate: provider.GoalUpdate{Tier: provider.TierNone},
	}}
	c := newTestCoordinator(t, Config{}, prov)

	if !c.Submit(gamestate.Snapshot{}, "ctx") {
		t.Fatal("expected first submit to be accepted")
	}

	res := waitForResult(t, c)
	if res.Action != "up" {
		t.Errorf("expected action up, got %q", res.Action)
	}
	if res.Fallback {
		t.Error("expected a real decision, not a fallback")
	}
	if res.Elapsed <= 0 {
		t.Error("expected a positive elapsed duration")
	}

	// The busy flag clears just after the result is published.
	deadline := time.Now().Add(2 * time.Second)
	for c.Thinking() {
		if time.Now().After(deadline) {
			t.Fatal("thinking never cleared after the result was published")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubmitWhileThinkingRejected(t *testing.T) {
	prov := &gatedProvider{
		gate:     make(chan struct{}),
		decision: provider.Decision{Action: "a", Reasoning: "advance dialog"},
	}
	c := newTestCoordinator(t, Config{}, prov)

	if !c.Submit(gamestate.Snapshot{}, "first") {
		t.Fatal("expected first submit to be accepted")
	}
	if c.Submit(gamestate.Snapshot{}, "second") {
		t.Fatal("expected submit to be rejected while the worker is busy")
	}
	if !c.Thinking() {
		t.Error("expected Thinking during an in-flight request")
	}

	close(prov.gate)
	waitForResult(t, c)

	if got := prov.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", got)
	}
	if !c.Submit(gamestate.Snapshot{}, "third") {
		t.Error("expected submit to succeed once the worker is idle")
	}
}

func TestProviderErrorBecomesFallback(t *testing.T) {
	prov := &gatedProvider{err: errors.New("service unreachable")}
	c := newTestCoordinator(t, Config{}, prov)

	if !c.Submit(gamestate.Snapshot{}, "") {
		t.Fatal("submit rejected")
	}
	res := waitForResult(t, c)
	if res.Action != PassiveAction {
		t.Errorf("expected passive action, got %q", res.Action)
	}
	if !res.Fallback {
		t.Error("expected fallback flag")
	}
	if !strings.Contains(res.Reasoning, "service unreachable") {
		t.Errorf("expected reasoning to carry the provider error, got %q", res.Reasoning)
	}
}

func TestProviderPanicBecomesFallback(t *testing.T) {
	prov := &gatedProvider{panicMsg: "nil map write"}
	c := newTestCoordinator(t, Config{}, prov)

	if !c.Submit(gamestate.Snapshot{}, "") {
		t.Fatal("submit rejected")
	}
	res := waitForResult(t, c)
	if res.Action != PassiveAction || !res.Fallback {
		t.Errorf("expected passive fallback, got %+v", res)
	}
	if !strings.Contains(res.Reasoning, "nil map write") {
		t.Errorf("expected reasoning to carry the panic value, got %q", res.Reasoning)
	}

	// The worker survives the panic and serves the next request.
	prov.panicMsg = ""
	prov.decision = provider.Decision{Action: "b", Reasoning: "back out"}
	if !c.Submit(gamestate.Snapshot{}, "") {
		t.Fatal("expected submit to succeed after a panic")
	}
	res = waitForResult(t, c)
	if res.Action != "b" {
		t.Errorf("expected action b after recovery, got %q", res.Action)
	}
}

func TestLateResultDiscardedOnResubmit(t *testing.T) {
	prov := &gatedProvider{decision: provider.Decision{Action: "left", Reasoning: "stale"}}
	c := newTestCoordinator(t, Config{}, prov)

	// Complete a request but never consume its result.
	if !c.Submit(gamestate.Snapshot{}, "old") {
		t.Fatal("submit rejected")
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.Thinking() {
		if time.Now().After(deadline) {
			t.Fatal("worker never finished")
		}
		time.Sleep(time.Millisecond)
	}

	// A fresh submit must drain the stale result so Poll only ever
	// returns the answer to the newest request.
	prov.decision = provider.Decision{Action: "right", Reasoning: "fresh"}
	if !c.Submit(gamestate.Snapshot{}, "new") {
		t.Fatal("expected resubmit to be accepted")
	}
	res := waitForResult(t, c)
	if res.Action != "right" {
		t.Errorf("expected the fresh result, got %q (%s)", res.Action, res.Reasoning)
	}
	if extra := c.Poll(0); extra != nil {
		t.Errorf("expected no second result, got %+v", extra)
	}
}

func TestPollZeroWaitNeverBlocks(t *testing.T) {
	prov := &gatedProvider{gate: make(chan struct{})}
	c := newTestCoordinator(t, Config{}, prov)
	defer close(prov.gate)

	if !c.Submit(gamestate.Snapshot{}, "") {
		t.Fatal("submit rejected")
	}
	start := time.Now()
	if res := c.Poll(0); res != nil {
		t.Errorf("expected nil result while the worker is busy, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero-wait poll took %s", elapsed)
	}
}

func TestStopWithBlockedProviderReturns(t *testing.T) {
	prov := &gatedProvider{gate: make(chan struct{})}
	c := New(Config{StopTimeout: 50 * time.Millisecond}, prov, zerolog.Nop())
	defer close(prov.gate)

	if !c.Submit(gamestate.Snapshot{}, "") {
		t.Fatal("submit rejected")
	}

	start := time.Now()
	c.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %s despite a 50ms timeout", elapsed)
	}
}

func TestTimeoutResult(t *testing.T) {
	res := TimeoutResult(30 * time.Second)
	if res.Action != PassiveAction || !res.Fallback || !res.TimedOut {
		t.Errorf("unexpected timeout result: %+v", res)
	}
	if !strings.Contains(res.Reasoning, "30s") {
		t.Errorf("expected reasoning to name the deadline, got %q", res.Reasoning)
	}
}
