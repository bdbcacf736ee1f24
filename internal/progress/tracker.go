// Package progress watches decoded snapshots for durable milestones:
// badges earned, species seen, zones entered.
package progress

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/gamestate"
)

// Tracker accumulates milestones across a run. It is confined to the
// loop driver goroutine and needs no locking.
type Tracker struct {
	logger zerolog.Logger

	totalTurns  int
	startedAt   time.Time
	badges      []string
	species     map[string]struct{}
	zones       map[int]struct{}
	battlesSeen int
	inBattle    bool

	// milestoneTurns records the turn each named milestone landed on.
	milestoneTurns map[string]int
}

// State is the persistable view of a tracker.
type State struct {
	TotalTurns     int            `json:"total_turns"`
	Badges         []string       `json:"badges"`
	Species        []string       `json:"species"`
	Zones          []int          `json:"zones"`
	BattlesSeen    int            `json:"battles_seen"`
	MilestoneTurns map[string]int `json:"milestone_turns"`
}

// NewTracker creates an empty tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		logger:         logger.With().Str("component", "progress").Logger(),
		startedAt:      time.Now().UTC(),
		species:        make(map[string]struct{}),
		zones:          make(map[int]struct{}),
		milestoneTurns: make(map[string]int),
	}
}

// Observe folds one snapshot into the milestone state.
func (t *Tracker) Observe(snap gamestate.Snapshot) {
	t.totalTurns = snap.Turn

	for _, badge := range snap.Badges {
		if !badge.Obtained || t.hasBadge(badge.Name) {
			continue
		}
		t.badges = append(t.badges, badge.Name)
		t.milestoneTurns["badge_"+badge.Name] = snap.Turn
		t.logger.Info().Str("badge", badge.Name).Int("turn", snap.Turn).Msg("badge earned")
	}

	for _, member := range snap.Party {
		if member.Species == gamestate.UnknownSpecies {
			continue
		}
		if _, seen := t.species[member.Species]; !seen {
			t.species[member.Species] = struct{}{}
			t.logger.Info().Str("species", member.Species).Int("turn", snap.Turn).Msg("new species in party")
		}
	}

	if _, seen := t.zones[snap.Position.Zone]; !seen {
		t.zones[snap.Position.Zone] = struct{}{}
		t.milestoneTurns[fmt.Sprintf("zone_%d", snap.Position.Zone)] = snap.Turn
	}

	// Count battle entries on the rising edge only.
	if snap.InBattle && !t.inBattle {
		t.battlesSeen++
	}
	t.inBattle = snap.InBattle
}

func (t *Tracker) hasBadge(name string) bool {
	for _, b := range t.badges {
		if b == name {
			return true
		}
	}
	return false
}

// Badges returns earned badge names in the order they were earned.
func (t *Tracker) Badges() []string {
	out := make([]string, len(t.badges))
	copy(out, t.badges)
	return out
}

// Export returns the persistable state.
func (t *Tracker) Export() State {
	species := make([]string, 0, len(t.species))
	for s := range t.species {
		species = append(species, s)
	}
	sort.Strings(species)

	zones := make([]int, 0, len(t.zones))
	for z := range t.zones {
		zones = append(zones, z)
	}
	sort.Ints(zones)

	milestones := make(map[string]int, len(t.milestoneTurns))
	for k, v := range t.milestoneTurns {
		milestones[k] = v
	}

	return State{
		TotalTurns:     t.totalTurns,
		Badges:         t.Badges(),
		Species:        species,
		Zones:          zones,
		BattlesSeen:    t.battlesSeen,
		MilestoneTurns: milestones,
	}
}

// Seed restores persisted state.
func (t *Tracker) Seed(s State) {
	t.totalTurns = s.TotalTurns
	t.badges = append(t.badges, s.Badges...)
	for _, sp := range s.Species {
		t.species[sp] = struct{}{}
	}
	for _, z := range s.Zones {
		t.zones[z] = struct{}{}
	}
	t.battlesSeen = s.BattlesSeen
	for k, v := range s.MilestoneTurns {
		t.milestoneTurns[k] = v
	}
}

// Summary formats a human-readable progress report.
func (t *Tracker) Summary() string {
	var b strings.Builder
	b.WriteString("=== PROGRESS SUMMARY ===\n")
	fmt.Fprintf(&b, "Total Turns: %d\n", t.totalTurns)
	fmt.Fprintf(&b, "Badges: %d/8", len(t.badges))
	if len(t.badges) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(t.badges, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Species Seen: %d\n", len(t.species))
	fmt.Fprintf(&b, "Zones Visited: %d\n", len(t.zones))
	fmt.Fprintf(&b, "Battles: %d\n", t.battlesSeen)
	return b.String()
}
