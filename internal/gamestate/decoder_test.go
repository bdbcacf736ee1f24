package gamestate

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const testMapJSON = `{
  "player": {
    "position": {
      "x": {"address": "0xD362"},
      "y": {"address": "0xD361"},
      "map_id": {"address": "0xD35E"}
    },
    "money": {"address": "0xD347"}
  },
  "badges": {
    "address": "0xD356",
    "bits": {
      "0": "Boulder Badge",
      "1": "Cascade Badge",
      "2": "Thunder Badge",
      "3": "Rainbow Badge",
      "4": "Soul Badge",
      "5": "Marsh Badge",
      "6": "Volcano Badge",
      "7": "Earth Badge"
    }
  },
  "party": {
    "count": {"address": "0xD163"},
    "pokemon": {
      "base_address": "0xD16B",
      "size": 44,
      "fields": {
        "species": {"offset": 0},
        "current_hp": {"offset": 1},
        "move1": {"offset": 8},
        "move2": {"offset": 9},
        "move3": {"offset": 10},
        "move4": {"offset": 11},
        "move1_pp": {"offset": 29},
        "move2_pp": {"offset": 30},
        "move3_pp": {"offset": 31},
        "move4_pp": {"offset": 32},
        "level": {"offset": 33},
        "max_hp": {"offset": 34},
        "attack": {"offset": 36},
        "defense": {"offset": 38},
        "speed": {"offset": 40},
        "special": {"offset": 42}
      }
    }
  },
  "battle": {
    "in_battle": {"address": "0xD057"}
  }
}`

// fakeMemory serves reads from a sparse address→byte map. Unset
// addresses read as zero.
type fakeMemory map[uint16]byte

func (f fakeMemory) ReadMemory(_ context.Context, addr uint16, buf []byte) int {
	for i := range buf {
		buf[i] = f[addr+uint16(i)]
	}
	return len(buf)
}

func (f fakeMemory) set(addr uint16, data ...byte) {
	for i, b := range data {
		f[addr+uint16(i)] = b
	}
}

func testDecoder(t *testing.T, mem fakeMemory) *Decoder {
	t.Helper()
	m, err := ParseAddressMap([]byte(testMapJSON))
	if err != nil {
		t.Fatalf("Failed to parse test address map: %v", err)
	}
	return NewDecoder(mem, m, zerolog.Nop())
}

func TestMoneyBCD(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  int
	}{
		{"mixed digits", []byte{0x01, 0x23, 0x45}, 12345},
		{"zero", []byte{0x00, 0x00, 0x00}, 0},
		{"max", []byte{0x99, 0x99, 0x99}, 999999},
		{"leading zeros", []byte{0x00, 0x03, 0x00}, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := fakeMemory{}
			mem.set(0xD347, tt.bytes...)
			d := testDecoder(t, mem)

			if got := d.Money(context.Background()); got != tt.want {
				t.Errorf("expected money %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPartyCountGuard(t *testing.T) {
	for _, count := range []byte{0, 7, 255} {
		mem := fakeMemory{}
		mem.set(0xD163, count)
		d := testDecoder(t, mem)

		party := d.Party(context.Background())
		if len(party) != 0 {
			t.Errorf("count %d: expected empty roster, got %d members", count, len(party))
		}
	}
}

func TestPartyDecode(t *testing.T) {
	mem := fakeMemory{}
	mem.set(0xD163, 3)

	// First member: Pikachu (internal id 0x54), level 12, HP 20/35,
	// moves 45 and 33 with 30 and 15 PP, stats 14/12/25/13.
	base := uint16(0xD16B)
	mem.set(base+0, 0x54)
	mem.set(base+1, 0x14, 0x00)
	mem.set(base+8, 45, 33)
	mem.set(base+29, 30, 15)
	mem.set(base+33, 12)
	mem.set(base+34, 0x23, 0x00)
	mem.set(base+36, 0x0E, 0x00)
	mem.set(base+38, 0x0C, 0x00)
	mem.set(base+40, 0x19, 0x00)
	mem.set(base+42, 0x0D, 0x00)

	// Second member: species id past the name table.
	mem.set(base+44, 0xFF)
	mem.set(base+44+33, 5)

	// Third member: Bulbasaur (internal id 0x99), no moves set.
	mem.set(base+88, 0x99)
	mem.set(base+88+33, 7)

	d := testDecoder(t, mem)
	party := d.Party(context.Background())

	if len(party) != 3 {
		t.Fatalf("expected 3 members, got %d", len(party))
	}

	first := party[0]
	if first.Species != "Pikachu" {
		t.Errorf("expected Pikachu, got %s", first.Species)
	}
	if first.Level != 12 {
		t.Errorf("expected level 12, got %d", first.Level)
	}
	if first.CurrentHP != 20 || first.MaxHP != 35 {
		t.Errorf("expected HP 20/35, got %d/%d", first.CurrentHP, first.MaxHP)
	}
	if len(first.Moves) != 2 {
		t.Fatalf("expected 2 moves (zero slots skipped), got %d", len(first.Moves))
	}
	if first.Moves[0].ID != 45 || first.Moves[0].PP != 30 {
		t.Errorf("expected move 45 pp 30, got move %d pp %d", first.Moves[0].ID, first.Moves[0].PP)
	}
	if first.Stats.Attack != 14 || first.Stats.Speed != 25 {
		t.Errorf("unexpected stats: %+v", first.Stats)
	}

	if party[1].Species != UnknownSpecies {
		t.Errorf("expected %s for id 0xFF, got %s", UnknownSpecies, party[1].Species)
	}
	if party[2].Species != "Bulbasaur" {
		t.Errorf("expected Bulbasaur, got %s", party[2].Species)
	}
	if len(party[2].Moves) != 0 {
		t.Errorf("expected no moves, got %d", len(party[2].Moves))
	}
}

func TestUint16LittleEndian(t *testing.T) {
	mem := fakeMemory{}
	mem.set(0xD163, 1)
	mem.set(0xD16B+1, 0x34, 0x12) // current HP low, high

	d := testDecoder(t, mem)
	party := d.Party(context.Background())
	if len(party) != 1 {
		t.Fatalf("expected 1 member, got %d", len(party))
	}
	if party[0].CurrentHP != 0x1234 {
		t.Errorf("expected HP 0x1234 (%d), got %d", 0x1234, party[0].CurrentHP)
	}
}

func TestBadges(t *testing.T) {
	mem := fakeMemory{}
	mem.set(0xD356, 0b00000101) // Boulder + Thunder
	d := testDecoder(t, mem)
	ctx := context.Background()

	badges := d.Badges(ctx)
	if len(badges) != 8 {
		t.Fatalf("expected 8 badges, got %d", len(badges))
	}
	if !badges[0].Obtained || badges[0].Name != "Boulder Badge" {
		t.Errorf("expected Boulder Badge obtained, got %+v", badges[0])
	}
	if badges[1].Obtained {
		t.Errorf("Cascade Badge should not be obtained")
	}
	if !badges[2].Obtained {
		t.Errorf("Thunder Badge should be obtained")
	}

	if got := d.BadgeCount(ctx); got != 2 {
		t.Errorf("expected badge count 2, got %d", got)
	}
}

func TestPositionAndBattle(t *testing.T) {
	mem := fakeMemory{}
	mem.set(0xD362, 5) // x
	mem.set(0xD361, 9) // y
	mem.set(0xD35E, 3) // map id
	mem.set(0xD057, 2) // battle type

	d := testDecoder(t, mem)
	ctx := context.Background()

	pos := d.Position(ctx)
	if pos.X != 5 || pos.Y != 9 || pos.Zone != 3 {
		t.Errorf("expected (5,9) zone 3, got (%d,%d) zone %d", pos.X, pos.Y, pos.Zone)
	}
	if !d.InBattle(ctx) {
		t.Error("expected in battle")
	}

	mem.set(0xD057, 0)
	if d.InBattle(ctx) {
		t.Error("expected not in battle")
	}
}

func TestSnapshotAssembly(t *testing.T) {
	mem := fakeMemory{}
	mem.set(0xD362, 10)
	mem.set(0xD361, 11)
	mem.set(0xD35E, 1)
	mem.set(0xD356, 0b00000001)
	mem.set(0xD347, 0x00, 0x30, 0x99)
	mem.set(0xD163, 1)
	mem.set(0xD16B, 0x54)
	mem.set(0xD16B+33, 8)

	d := testDecoder(t, mem)
	snap := d.Snapshot(context.Background(), 42)

	if snap.Turn != 42 {
		t.Errorf("expected turn 42, got %d", snap.Turn)
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if snap.Money != 3099 {
		t.Errorf("expected money 3099, got %d", snap.Money)
	}
	if snap.BadgeCount != 1 {
		t.Errorf("expected 1 badge, got %d", snap.BadgeCount)
	}
	if len(snap.Party) != 1 || snap.Party[0].Species != "Pikachu" {
		t.Errorf("unexpected party: %+v", snap.Party)
	}
	if snap.InBattle {
		t.Error("expected not in battle")
	}
}

func TestSpeciesName(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "None"},
		{1, "Rhydon"},
		{0x54, "Pikachu"},
		{0x99, "Bulbasaur"},
		{0xB0, "Charmander"},
		{31, "Missingno"},
		{200, UnknownSpecies},
		{-1, UnknownSpecies},
	}
	for _, tt := range tests {
		if got := SpeciesName(tt.id); got != tt.want {
			t.Errorf("SpeciesName(%d): expected %s, got %s", tt.id, tt.want, got)
		}
	}
}

func TestParseAddressMapErrors(t *testing.T) {
	if _, err := ParseAddressMap([]byte(`{`)); err == nil {
		t.Error("expected error for truncated JSON")
	}

	bad := strings.Replace(testMapJSON, `"0xD362"`, `"0xZZZZ"`, 1)
	if _, err := ParseAddressMap([]byte(bad)); err == nil {
		t.Error("expected error for bad hex address")
	}

	missing := strings.Replace(testMapJSON, `"species": {"offset": 0},`, ``, 1)
	if _, err := ParseAddressMap([]byte(missing)); err == nil {
		t.Error("expected error for missing party field")
	}

	oob := strings.Replace(testMapJSON, `"special": {"offset": 42}`, `"special": {"offset": 43}`, 1)
	if _, err := ParseAddressMap([]byte(oob)); err == nil {
		t.Error("expected error for out-of-bounds field offset")
	}
}

func TestRender(t *testing.T) {
	snap := Snapshot{
		Turn:     5,
		Position: Position{Zone: 3, X: 7, Y: 2},
		Party: []PartyMember{
			{
				Species: "Pikachu", Level: 12, CurrentHP: 20, MaxHP: 35,
				Moves: []Move{{ID: 45, PP: 30}, {ID: 33, PP: 15}},
			},
		},
		Money:      12345,
		Badges:     []Badge{{Name: "Boulder Badge", Obtained: true}, {Name: "Cascade Badge"}},
		BadgeCount: 1,
		InBattle:   true,
	}

	text := snap.Render()

	for _, want := range []string{
		"=== GAME STATE (Turn 5) ===",
		"- Map ID: 3",
		"- Coordinates: (7, 2)",
		"BADGES: 1/2",
		"[X] Boulder Badge",
		"[ ] Cascade Badge",
		"MONEY: $12345",
		"PARTY: 1 Pokemon",
		"1. Pikachu Lv.12 - HP: 20/35 (57%)",
		"Moves: 2 | [PP:30] [PP:15]",
		"CURRENTLY IN BATTLE",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("render missing %q in:\n%s", want, text)
		}
	}
}

func TestRenderZeroMaxHP(t *testing.T) {
	snap := Snapshot{
		Turn:  1,
		Party: []PartyMember{{Species: "Ditto", Level: 5}},
	}
	text := snap.Render()
	if !strings.Contains(text, "HP: 0/0 (0%)") {
		t.Errorf("expected 0%% HP for zero max HP, got:\n%s", text)
	}
}
