package progress

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/gamestate"
)

func snapshotAt(turn, zone int) gamestate.Snapshot {
	return gamestate.Snapshot{
		Turn:     turn,
		Position: gamestate.Position{Zone: zone},
	}
}

func TestBadgeRecordedOnce(t *testing.T) {
	tr := NewTracker(zerolog.Nop())

	snap := snapshotAt(10, 1)
	snap.Badges = []gamestate.Badge{
		{Name: "Boulder", Obtained: true},
		{Name: "Cascade", Obtained: false},
	}
	tr.Observe(snap)

	// Same badge on a later turn must not re-record or move the
	// milestone turn.
	snap.Turn = 11
	tr.Observe(snap)

	badges := tr.Badges()
	if len(badges) != 1 || badges[0] != "Boulder" {
		t.Fatalf("expected [Boulder], got %v", badges)
	}
	state := tr.Export()
	if state.MilestoneTurns["badge_Boulder"] != 10 {
		t.Errorf("expected badge milestone on turn 10, got %d", state.MilestoneTurns["badge_Boulder"])
	}
}

func TestSpeciesDedupedAndUnknownSkipped(t *testing.T) {
	tr := NewTracker(zerolog.Nop())

	snap := snapshotAt(1, 1)
	snap.Party = []gamestate.PartyMember{
		{Species: "Charmander"},
		{Species: gamestate.UnknownSpecies},
	}
	tr.Observe(snap)
	tr.Observe(snap)

	state := tr.Export()
	if len(state.Species) != 1 || state.Species[0] != "Charmander" {
		t.Errorf("expected [Charmander], got %v", state.Species)
	}
}

func TestZoneMilestones(t *testing.T) {
	tr := NewTracker(zerolog.Nop())

	tr.Observe(snapshotAt(1, 40))
	tr.Observe(snapshotAt(2, 40))
	tr.Observe(snapshotAt(3, 0))

	state := tr.Export()
	if len(state.Zones) != 2 {
		t.Fatalf("expected 2 zones, got %v", state.Zones)
	}
	if state.Zones[0] != 0 || state.Zones[1] != 40 {
		t.Errorf("expected sorted zones [0 40], got %v", state.Zones)
	}
	if state.MilestoneTurns["zone_40"] != 1 {
		t.Errorf("expected zone 40 milestone on turn 1, got %d", state.MilestoneTurns["zone_40"])
	}
	if state.MilestoneTurns["zone_0"] != 3 {
		t.Errorf("expected zone 0 milestone on turn 3, got %d", state.MilestoneTurns["zone_0"])
	}
}

func TestBattlesCountedOnRisingEdge(t *testing.T) {
	tr := NewTracker(zerolog.Nop())

	inBattle := func(turn int, fighting bool) gamestate.Snapshot {
		snap := snapshotAt(turn, 1)
		snap.InBattle = fighting
		return snap
	}

	tr.Observe(inBattle(1, false))
	tr.Observe(inBattle(2, true))
	tr.Observe(inBattle(3, true)) // still the same battle
	tr.Observe(inBattle(4, false))
	tr.Observe(inBattle(5, true))

	if got := tr.Export().BattlesSeen; got != 2 {
		t.Errorf("expected 2 battles, got %d", got)
	}
}

func TestExportSeedRoundtrip(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	snap := snapshotAt(42, 2)
	snap.Badges = []gamestate.Badge{{Name: "Boulder", Obtained: true}}
	snap.Party = []gamestate.PartyMember{{Species: "Pidgey"}}
	snap.InBattle = true
	tr.Observe(snap)

	restored := NewTracker(zerolog.Nop())
	restored.Seed(tr.Export())

	state := restored.Export()
	if state.TotalTurns != 42 {
		t.Errorf("expected 42 total turns, got %d", state.TotalTurns)
	}
	if len(state.Badges) != 1 || state.Badges[0] != "Boulder" {
		t.Errorf("badges not restored: %v", state.Badges)
	}
	if len(state.Species) != 1 || state.Species[0] != "Pidgey" {
		t.Errorf("species not restored: %v", state.Species)
	}
	if state.BattlesSeen != 1 {
		t.Errorf("battles not restored: %d", state.BattlesSeen)
	}
	if state.MilestoneTurns["badge_Boulder"] != 42 {
		t.Errorf("milestone turns not restored: %v", state.MilestoneTurns)
	}

	// A badge already present must not re-trigger after restore.
	snap.Turn = 50
	restored.Observe(snap)
	if got := restored.Export().MilestoneTurns["badge_Boulder"]; got != 42 {
		t.Errorf("restored badge milestone moved to %d", got)
	}
}

func TestSummary(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	snap := snapshotAt(7, 1)
	snap.Badges = []gamestate.Badge{{Name: "Boulder", Obtained: true}}
	tr.Observe(snap)

	out := tr.Summary()
	if !strings.Contains(out, "Badges: 1/8 (Boulder)") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "Total Turns: 7") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}
