// Package goals keeps the agent's objective ledger: one goal per tier
// plus the completed-goal history.
package goals

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Goal tiers, strongest intent first.
const (
	TierPrimary   = "primary"
	TierSecondary = "secondary"
	TierTertiary  = "tertiary"
)

// Goal is one objective.
type Goal struct {
	Tier        string     `json:"tier"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ledger holds the current goal per tier and the completed history. It
// is confined to the loop driver goroutine and needs no locking.
type Ledger struct {
	logger    zerolog.Logger
	current   map[string]*Goal
	completed []Goal
}

// NewLedger creates an empty ledger.
func NewLedger(logger zerolog.Logger) *Ledger {
	return &Ledger{
		logger:  logger.With().Str("component", "goals").Logger(),
		current: make(map[string]*Goal),
	}
}

// validTier reports whether the tier is one of primary, secondary,
// tertiary.
func validTier(tier string) bool {
	return tier == TierPrimary || tier == TierSecondary || tier == TierTertiary
}

// Set replaces a tier's goal. A still-open goal on that tier is marked
// completed first. Unknown tiers are ignored with a warning.
func (l *Ledger) Set(tier, description string) {
	if !validTier(tier) {
		l.logger.Warn().Str("tier", tier).Msg("ignoring goal for unknown tier")
		return
	}
	l.Complete(tier)
	l.current[tier] = &Goal{
		Tier:        tier,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	l.logger.Info().Str("tier", tier).Str("goal", description).Msg("new goal")
}

// Complete marks a tier's open goal done and moves it to the history.
func (l *Ledger) Complete(tier string) {
	g, ok := l.current[tier]
	if !ok || g.Completed {
		return
	}
	now := time.Now().UTC()
	g.Completed = true
	g.CompletedAt = &now
	l.completed = append(l.completed, *g)
	delete(l.current, tier)
	l.logger.Info().Str("tier", tier).Str("goal", g.Description).Msg("goal completed")
}

// Current returns the open goal for a tier, or nil.
func (l *Ledger) Current(tier string) *Goal {
	g, ok := l.current[tier]
	if !ok {
		return nil
	}
	copied := *g
	return &copied
}

// Completed returns the completed-goal history, oldest first.
func (l *Ledger) Completed() []Goal {
	out := make([]Goal, len(l.completed))
	copy(out, l.completed)
	return out
}

// Render formats the ledger for the decision context.
func (l *Ledger) Render() string {
	var b strings.Builder
	b.WriteString("=== CURRENT GOALS ===\n")

	for _, tier := range []string{TierPrimary, TierSecondary, TierTertiary} {
		label := strings.ToUpper(tier)
		if g, ok := l.current[tier]; ok {
			fmt.Fprintf(&b, "%s: %s\n", label, g.Description)
		} else {
			fmt.Fprintf(&b, "%s: Not set\n", label)
		}
	}

	if len(l.completed) > 0 {
		fmt.Fprintf(&b, "\nCOMPLETED GOALS: %d\n", len(l.completed))
		recent := l.completed
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		for _, g := range recent {
			fmt.Fprintf(&b, "  [done] %s\n", g.Description)
		}
	}

	return b.String()
}

// Export returns every current and completed goal for persistence.
func (l *Ledger) Export() []Goal {
	out := make([]Goal, 0, len(l.current)+len(l.completed))
	for _, tier := range []string{TierPrimary, TierSecondary, TierTertiary} {
		if g, ok := l.current[tier]; ok {
			out = append(out, *g)
		}
	}
	out = append(out, l.completed...)
	return out
}

// Seed restores persisted goals.
func (l *Ledger) Seed(goals []Goal) {
	for _, g := range goals {
		if !validTier(g.Tier) {
			continue
		}
		if g.Completed {
			l.completed = append(l.completed, g)
			continue
		}
		copied := g
		l.current[g.Tier] = &copied
	}
}
