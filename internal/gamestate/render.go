package gamestate

import (
	"fmt"
	"strings"
)

// Render produces the plain-text state summary handed to the decision
// provider. The layout is stable: downstream prompts anchor on the
// section headers.
func (s Snapshot) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== GAME STATE (Turn %d) ===\n\n", s.Turn)

	b.WriteString("POSITION:\n")
	fmt.Fprintf(&b, "- Map ID: %d\n", s.Position.Zone)
	fmt.Fprintf(&b, "- Coordinates: (%d, %d)\n", s.Position.X, s.Position.Y)

	fmt.Fprintf(&b, "\nBADGES: %d/%d\n", s.BadgeCount, len(s.Badges))
	for _, badge := range s.Badges {
		status := "[ ]"
		if badge.Obtained {
			status = "[X]"
		}
		fmt.Fprintf(&b, "  %s %s\n", status, badge.Name)
	}

	fmt.Fprintf(&b, "\nMONEY: $%d\n", s.Money)

	fmt.Fprintf(&b, "\nPARTY: %d Pokemon\n", len(s.Party))
	for i, p := range s.Party {
		hpPercent := 0.0
		if p.MaxHP > 0 {
			hpPercent = float64(p.CurrentHP) / float64(p.MaxHP) * 100
		}
		fmt.Fprintf(&b, "  %d. %s Lv.%d - HP: %d/%d (%.0f%%)\n",
			i+1, p.Species, p.Level, p.CurrentHP, p.MaxHP, hpPercent)
		fmt.Fprintf(&b, "     Moves: %d |", len(p.Moves))
		for _, m := range p.Moves {
			fmt.Fprintf(&b, " [PP:%d]", m.PP)
		}
		b.WriteString("\n")
	}

	if s.InBattle {
		b.WriteString("\nCURRENTLY IN BATTLE\n")
	}

	return b.String()
}
