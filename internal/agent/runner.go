// Package agent drives the play loop: decode a snapshot, update the
// perception trackers, request a decision, and apply the action — while
// keeping the emulator ticking at a fixed cadence throughout.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/actions"
	"github.com/MJE43/red-agent-go/internal/api"
	"github.com/MJE43/red-agent-go/internal/decision"
	"github.com/MJE43/red-agent-go/internal/emu"
	"github.com/MJE43/red-agent-go/internal/explore"
	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/goals"
	"github.com/MJE43/red-agent-go/internal/history"
	"github.com/MJE43/red-agent-go/internal/progress"
	"github.com/MJE43/red-agent-go/internal/store"
	"github.com/MJE43/red-agent-go/internal/stuck"
)

// Config holds loop driver settings.
type Config struct {
	// DecisionDeadline bounds how long one cycle waits for a decision.
	// Defaults to 60 seconds if zero.
	DecisionDeadline time.Duration

	// PollInterval is the sleep between zero-wait polls while waiting
	// for a decision. Defaults to 50ms if zero.
	PollInterval time.Duration

	// PollTickFrames is how many frames the emulator advances between
	// polls, keeping it responsive while the provider thinks.
	// Defaults to 6 if zero (about 100ms of game time).
	PollTickFrames int

	// TurnTickFrames is how many frames the emulator advances at the
	// end of each cycle. Defaults to 10 if zero.
	TurnTickFrames int

	// CheckpointEvery persists state every N turns. Defaults to 100 if
	// zero.
	CheckpointEvery int

	// ExploreRadius is the window for unexplored-tile hints in the
	// decision context. Defaults to 3 if zero.
	ExploreRadius int
}

// Deps are the collaborators the runner coordinates. Store and
// Publisher may be nil: persistence and the status feed are optional.
type Deps struct {
	Device     emu.Device
	Decoder    *gamestate.Decoder
	Explorer   *explore.Tracker
	History    *history.History
	Summarizer history.Summarizer
	Stuck      *stuck.Detector
	Coord      *decision.Coordinator
	Executor   *actions.Executor
	Goals      *goals.Ledger
	Progress   *progress.Tracker
	Store      *store.Store
	Publisher  *api.Publisher
}

// Runner is the loop driver. Everything it owns runs on one goroutine;
// the only shared state is the coordinator's slots and the publisher.
type Runner struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	sessionID      uuid.UUID
	turn           int
	lastCheckpoint int
	stuckHint      bool
}

// NewRunner creates a runner with a fresh session id.
func NewRunner(cfg Config, deps Deps, logger zerolog.Logger) *Runner {
	if cfg.DecisionDeadline == 0 {
		cfg.DecisionDeadline = 60 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.PollTickFrames == 0 {
		cfg.PollTickFrames = 6
	}
	if cfg.TurnTickFrames == 0 {
		cfg.TurnTickFrames = 10
	}
	if cfg.CheckpointEvery == 0 {
		cfg.CheckpointEvery = 100
	}
	if cfg.ExploreRadius == 0 {
		cfg.ExploreRadius = 3
	}
	return &Runner{
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With().Str("component", "agent").Logger(),
		sessionID: uuid.New(),
	}
}

// SessionID returns this run's identity.
func (r *Runner) SessionID() uuid.UUID {
	return r.sessionID
}

// Restore seeds the trackers from the store and registers the session.
// A missing or unreadable store leaves everything empty: a fresh start
// is never an error.
func (r *Runner) Restore() {
	if r.deps.Store == nil {
		return
	}

	tiles, err := r.deps.Store.LoadTiles()
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not restore exploration, starting empty")
	} else {
		for zone, list := range tiles {
			r.deps.Explorer.Seed(zone, list)
		}
	}

	digests, turns, err := r.deps.Store.LoadHistory()
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not restore turn history, starting empty")
	} else {
		r.deps.History.Seed(digests, turns)
		r.turn = r.deps.History.LastTurnNumber()
		r.lastCheckpoint = r.turn
	}

	goalList, err := r.deps.Store.LoadGoals()
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not restore goals, starting empty")
	} else {
		r.deps.Goals.Seed(goalList)
	}

	progState, ok, err := r.deps.Store.LoadProgress()
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not restore progress, starting empty")
	} else if ok {
		r.deps.Progress.Seed(progState)
	}

	if err := r.deps.Store.CreateSession(store.Session{
		ID:        r.sessionID,
		StartedAt: time.Now().UTC(),
		Turns:     r.turn,
	}); err != nil {
		r.logger.Warn().Err(err).Msg("could not register session")
	}

	r.logger.Info().Str("session", r.sessionID.String()).Int("turn", r.turn).Msg("state restored")
}

// Run executes cycles until the context is cancelled, then checkpoints.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Str("session", r.sessionID.String()).Msg("loop starting")

	for {
		select {
		case <-ctx.Done():
			r.checkpoint()
			r.logger.Info().Int("turns", r.turn).Msg("loop stopped")
			return nil
		default:
		}
		r.step(ctx)
	}
}

// step runs one full decision cycle.
func (r *Runner) step(ctx context.Context) {
	r.turn++

	snap := r.deps.Decoder.Snapshot(ctx, r.turn)
	r.deps.Explorer.Update(snap.Position.Zone, snap.Position.X, snap.Position.Y)
	r.deps.Progress.Observe(snap)

	isStuck := r.deps.Stuck.IsStuck()
	if isStuck {
		r.logger.Warn().Strs("recent", r.deps.Stuck.History(10)).Msg("stuck pattern detected")
		r.stuckHint = true
		r.deps.Stuck.Reset()
	}

	if r.deps.History.NeedsCompaction() {
		r.deps.History.Compact(ctx, r.deps.Summarizer)
	}

	contextText := r.renderContext(snap)

	var res decision.Result
	if r.deps.Coord.Submit(snap, contextText) {
		r.stuckHint = false
		res = r.awaitDecision(ctx)
	} else {
		// The worker is still on an older request (a previous cycle
		// timed out). Stay passive; the next accepted submit discards
		// whatever late result that request produces.
		res = decision.Result{
			Action:    decision.PassiveAction,
			Reasoning: "decision provider busy",
			Fallback:  true,
		}
	}
	if ctx.Err() != nil {
		return
	}

	if !res.GoalUpdate.None() {
		r.deps.Goals.Set(res.GoalUpdate.Tier, res.GoalUpdate.Text)
	}

	outcome := "ok"
	if err := r.deps.Executor.Execute(ctx, res.Action); err != nil {
		outcome = fmt.Sprintf("failed: %v", err)
		r.logger.Warn().Str("action", res.Action).Err(err).Msg("action failed")
	}

	r.deps.History.Append(history.Turn{
		Number:    r.turn,
		Timestamp: snap.Timestamp,
		Snapshot:  &snap,
		Action:    res.Action,
		Reasoning: res.Reasoning,
		Outcome:   outcome,
	})
	r.deps.Stuck.Record(res.Action)

	r.publish(snap, res, isStuck)

	if r.turn-r.lastCheckpoint >= r.cfg.CheckpointEvery {
		r.checkpoint()
	}

	if err := r.deps.Device.Tick(ctx, r.cfg.TurnTickFrames); err != nil {
		r.logger.Warn().Err(err).Msg("end-of-turn tick failed")
	}
}

// awaitDecision polls for the submitted decision with zero wait,
// interleaving short emulator advances and brief sleeps, bounded by the
// configured deadline. On expiry it returns the passive timeout result;
// the worker's late answer, if any, is discarded by the next accepted
// submit.
func (r *Runner) awaitDecision(ctx context.Context) decision.Result {
	start := time.Now()

	for time.Since(start) < r.cfg.DecisionDeadline {
		if res := r.deps.Coord.Poll(0); res != nil {
			return *res
		}

		if err := r.deps.Device.Tick(ctx, r.cfg.PollTickFrames); err != nil {
			r.logger.Warn().Err(err).Msg("poll tick failed")
		}

		select {
		case <-ctx.Done():
			return decision.Result{
				Action:    decision.PassiveAction,
				Reasoning: "shutdown requested",
				Fallback:  true,
			}
		case <-time.After(r.cfg.PollInterval):
		}
	}

	r.logger.Warn().Dur("deadline", r.cfg.DecisionDeadline).Msg("decision deadline expired")
	return decision.TimeoutResult(r.cfg.DecisionDeadline)
}

// renderContext assembles the provider-facing context: goals, compacted
// history, exploration hints, and the stuck warning when one is due.
// The snapshot itself travels alongside; providers render it.
func (r *Runner) renderContext(snap gamestate.Snapshot) string {
	var b strings.Builder

	b.WriteString(r.deps.Goals.Render())
	b.WriteString("\n")
	b.WriteString(r.deps.History.RenderForProvider())

	stats := r.deps.Explorer.Stats(snap.Position.Zone)
	fmt.Fprintf(&b, "\n=== EXPLORATION (Zone %d) ===\n", snap.Position.Zone)
	fmt.Fprintf(&b, "Visited %d of ~%d tiles (%.1f%%)\n", stats.Visited, stats.EstimatedTotal, stats.Percent)

	nearby := r.deps.Explorer.UnexploredNear(snap.Position.Zone, snap.Position.X, snap.Position.Y, r.cfg.ExploreRadius)
	if len(nearby) > 0 {
		b.WriteString("Nearest unexplored tiles:")
		for _, tile := range nearby {
			fmt.Fprintf(&b, " (%d,%d)", tile.X, tile.Y)
		}
		b.WriteString("\n")
	}

	if r.stuckHint {
		b.WriteString("\nWARNING: recent actions show a stuck pattern. Try a different approach.\n")
	}

	return b.String()
}

// publish pushes the slim per-cycle state document to the status feed.
func (r *Runner) publish(snap gamestate.Snapshot, res decision.Result, wasStuck bool) {
	if r.deps.Publisher == nil {
		return
	}

	party := make([]api.PartySummary, 0, len(snap.Party))
	for _, m := range snap.Party {
		party = append(party, api.PartySummary{
			Species:   m.Species,
			Level:     m.Level,
			CurrentHP: m.CurrentHP,
			MaxHP:     m.MaxHP,
		})
	}

	goalsDoc := make(map[string]string, 3)
	for _, tier := range []string{goals.TierPrimary, goals.TierSecondary, goals.TierTertiary} {
		if g := r.deps.Goals.Current(tier); g != nil {
			goalsDoc[tier] = g.Description
		}
	}

	detailed := r.deps.History.Detailed()
	if len(detailed) > 10 {
		detailed = detailed[len(detailed)-10:]
	}
	recent := make([]api.TurnSummary, 0, len(detailed))
	for _, t := range detailed {
		recent = append(recent, api.TurnSummary{
			Number:  t.Number,
			Action:  t.Action,
			Outcome: t.Outcome,
		})
	}

	r.deps.Publisher.Publish(api.StateDoc{
		SessionID:     r.sessionID.String(),
		Turn:          snap.Turn,
		Timestamp:     snap.Timestamp,
		Position:      snap.Position,
		Party:         party,
		Money:         snap.Money,
		BadgeCount:    snap.BadgeCount,
		Badges:        r.deps.Progress.Badges(),
		InBattle:      snap.InBattle,
		Goals:         goalsDoc,
		LastAction:    res.Action,
		LastReasoning: res.Reasoning,
		Stuck:         wasStuck,
		Exploration:   r.deps.Explorer.Stats(snap.Position.Zone),
		RecentTurns:   recent,
		DigestCount:   len(r.deps.History.Digests()),
		Progress:      r.deps.Progress.Export(),
	})
}

// checkpoint persists every tracker. Failures are logged and skipped;
// persistence never stops the loop.
func (r *Runner) checkpoint() {
	if r.deps.Store == nil {
		return
	}

	for zone, tiles := range r.deps.Explorer.Export() {
		if err := r.deps.Store.ReplaceTiles(zone, tiles); err != nil {
			r.logger.Warn().Err(err).Int("zone", zone).Msg("could not persist tiles")
		}
	}
	if err := r.deps.Store.ReplaceHistory(r.deps.History.Digests(), r.deps.History.Detailed()); err != nil {
		r.logger.Warn().Err(err).Msg("could not persist history")
	}
	if err := r.deps.Store.ReplaceGoals(r.deps.Goals.Export()); err != nil {
		r.logger.Warn().Err(err).Msg("could not persist goals")
	}
	if err := r.deps.Store.SaveProgress(r.deps.Progress.Export()); err != nil {
		r.logger.Warn().Err(err).Msg("could not persist progress")
	}
	if err := r.deps.Store.TouchSession(r.sessionID, r.turn); err != nil {
		r.logger.Warn().Err(err).Msg("could not update session")
	}

	r.lastCheckpoint = r.turn
	r.logger.Info().Int("turn", r.turn).Msg("checkpoint saved")
}
