// Package history keeps the bounded turn log the decision provider sees.
//
// Detailed turns accumulate until a configured ceiling, then the oldest
// stretch is handed to a summarization collaborator and replaced by a
// short text digest. Digests retain no structured data: compaction is
// irreversible by design, trading fidelity for a bounded context.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/gamestate"
)

// Turn is one decision cycle's record. The snapshot pointer is the heavy
// part and is dropped on persistence.
type Turn struct {
	Number    int                 `json:"number"`
	Timestamp time.Time           `json:"timestamp"`
	Snapshot  *gamestate.Snapshot `json:"-"`
	Action    string              `json:"action,omitempty"`
	Reasoning string              `json:"reasoning,omitempty"`
	Outcome   string              `json:"outcome,omitempty"`
}

// Digest is a compacted stretch of turns reduced to text.
type Digest struct {
	FirstTurn int    `json:"first_turn"`
	LastTurn  int    `json:"last_turn"`
	Text      string `json:"text"`
}

// Summarizer reduces a stretch of turns to a short digest. The provider
// package implements it; tests stub it.
type Summarizer interface {
	SummarizeTurns(ctx context.Context, turns []Turn) (string, error)
}

// Config holds history settings.
type Config struct {
	// MaxTurns is the detailed-tail length that triggers compaction.
	// Defaults to 100 if zero.
	MaxTurns int

	// KeepRecent is how many recent turns survive a compaction pass in
	// full detail. Defaults to 20 if zero.
	KeepRecent int
}

// History is the bounded turn log. It is confined to the loop driver
// goroutine and needs no locking.
type History struct {
	cfg     Config
	logger  zerolog.Logger
	turns   []Turn
	digests []Digest
}

// New creates an empty history.
func New(cfg Config, logger zerolog.Logger) *History {
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 100
	}
	if cfg.KeepRecent == 0 {
		cfg.KeepRecent = 20
	}
	return &History{
		cfg:    cfg,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Append adds a turn to the detailed tail.
func (h *History) Append(turn Turn) {
	h.turns = append(h.turns, turn)
}

// NeedsCompaction reports whether the detailed tail has reached the
// configured ceiling.
func (h *History) NeedsCompaction() bool {
	return len(h.turns) >= h.cfg.MaxTurns
}

// TurnsToCompact returns every detailed turn except the most recent
// KeepRecent. It returns nil when there is nothing beyond that window.
func (h *History) TurnsToCompact() []Turn {
	if len(h.turns) <= h.cfg.KeepRecent {
		return nil
	}
	return h.turns[:len(h.turns)-h.cfg.KeepRecent]
}

// RecordDigest appends a digest covering the given turn range and drops
// every detailed turn up to and including lastTurn.
func (h *History) RecordDigest(text string, firstTurn, lastTurn int) {
	h.digests = append(h.digests, Digest{
		FirstTurn: firstTurn,
		LastTurn:  lastTurn,
		Text:      text,
	})

	kept := h.turns[:0]
	for _, t := range h.turns {
		if t.Number > lastTurn {
			kept = append(kept, t)
		}
	}
	h.turns = kept
	h.logger.Info().Int("first_turn", firstTurn).Int("last_turn", lastTurn).
		Int("detailed", len(h.turns)).Msg("compacted turn history")
}

// Compact runs one compaction pass if due: the oldest stretch goes to
// the summarizer, the digest is recorded, and the stretch is dropped.
// Summarizer failure yields a placeholder digest; the turns are dropped
// either way so the history never stays over capacity. Returns true if
// a pass ran.
func (h *History) Compact(ctx context.Context, s Summarizer) bool {
	if !h.NeedsCompaction() {
		return false
	}
	turns := h.TurnsToCompact()
	if len(turns) == 0 {
		return false
	}

	text, err := s.SummarizeTurns(ctx, turns)
	if err != nil {
		h.logger.Warn().Err(err).Int("turns", len(turns)).Msg("summarization failed, recording placeholder digest")
		text = fmt.Sprintf("Summary unavailable. %d turns of activity occurred.", len(turns))
	}
	h.RecordDigest(text, turns[0].Number, turns[len(turns)-1].Number)
	return true
}

// RenderForProvider formats digests (oldest first) followed by detailed
// turns (oldest first) into the textual context handed to the decision
// provider.
func (h *History) RenderForProvider() string {
	var b strings.Builder

	if len(h.digests) > 0 {
		b.WriteString("=== PREVIOUS ACTIVITY SUMMARY ===\n")
		for _, d := range h.digests {
			fmt.Fprintf(&b, "[Turns %d-%d]: %s\n", d.FirstTurn, d.LastTurn, d.Text)
		}
		b.WriteString("\n")
	}

	if len(h.turns) > 0 {
		b.WriteString("=== RECENT TURNS (Detailed) ===\n")
		for _, t := range h.turns {
			fmt.Fprintf(&b, "\n--- Turn %d ---\n", t.Number)
			if t.Action != "" {
				fmt.Fprintf(&b, "Action: %s\n", t.Action)
			}
			if t.Reasoning != "" {
				fmt.Fprintf(&b, "Reasoning: %s\n", t.Reasoning)
			}
			if t.Outcome != "" {
				fmt.Fprintf(&b, "Outcome: %s\n", t.Outcome)
			}
		}
	}

	return b.String()
}

// Detailed returns a copy of the detailed tail, oldest first.
func (h *History) Detailed() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Digests returns a copy of the digest list, oldest first.
func (h *History) Digests() []Digest {
	out := make([]Digest, len(h.digests))
	copy(out, h.digests)
	return out
}

// Len returns the detailed tail length.
func (h *History) Len() int {
	return len(h.turns)
}

// LastTurnNumber returns the highest turn number seen, or 0 when empty.
func (h *History) LastTurnNumber() int {
	if n := len(h.turns); n > 0 {
		return h.turns[n-1].Number
	}
	if n := len(h.digests); n > 0 {
		return h.digests[n-1].LastTurn
	}
	return 0
}

// Seed restores persisted digests and detailed turns. Restored turns
// carry no snapshot payload.
func (h *History) Seed(digests []Digest, turns []Turn) {
	h.digests = append(h.digests, digests...)
	h.turns = append(h.turns, turns...)
}

// Clear drops all digests and detailed turns.
func (h *History) Clear() {
	h.turns = nil
	h.digests = nil
}
