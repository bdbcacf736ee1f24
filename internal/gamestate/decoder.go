// Package gamestate decodes raw Game Boy memory into structured game
// state.
//
// The decoder is driven by an external address map (see AddressMap) and a
// byte-read primitive, so it carries no emulator dependency. Decoding
// never fails: out-of-domain bytes degrade to sentinel values (an empty
// roster, the "Unknown" species) rather than errors, because transient
// garbage is normal while the game is mid-transition.
package gamestate

import (
	"context"
	"math/bits"
	"time"

	"github.com/rs/zerolog"
)

// Memory is the read capability the decoder needs. *emu.Bridge satisfies
// it, as does any in-process core.
type Memory interface {
	ReadMemory(ctx context.Context, addr uint16, buf []byte) int
}

// Decoder reads and interprets the game's working memory.
type Decoder struct {
	mem    Memory
	m      *AddressMap
	logger zerolog.Logger
}

// NewDecoder creates a decoder over the given memory and address map.
func NewDecoder(mem Memory, m *AddressMap, logger zerolog.Logger) *Decoder {
	return &Decoder{
		mem:    mem,
		m:      m,
		logger: logger.With().Str("component", "gamestate").Logger(),
	}
}

// Snapshot decodes the full game state for the given turn number.
func (d *Decoder) Snapshot(ctx context.Context, turn int) Snapshot {
	badges := d.Badges(ctx)
	count := 0
	for _, b := range badges {
		if b.Obtained {
			count++
		}
	}
	return Snapshot{
		Turn:       turn,
		Timestamp:  time.Now().UTC(),
		Position:   d.Position(ctx),
		Party:      d.Party(ctx),
		Money:      d.Money(ctx),
		Badges:     badges,
		BadgeCount: count,
		InBattle:   d.InBattle(ctx),
	}
}

// Position reads the player's zone id and tile coordinates.
func (d *Decoder) Position(ctx context.Context) Position {
	return Position{
		X:    int(d.readByte(ctx, uint16(d.m.Player.Position.X.Address))),
		Y:    int(d.readByte(ctx, uint16(d.m.Player.Position.Y.Address))),
		Zone: int(d.readByte(ctx, uint16(d.m.Player.Position.MapID.Address))),
	}
}

// Badges reads the badge byte and maps each configured bit to its name.
func (d *Decoder) Badges(ctx context.Context) []Badge {
	b := d.readByte(ctx, uint16(d.m.Badges.Address))
	bitNames := d.m.badgeBits()
	out := make([]Badge, 0, len(bitNames))
	for _, bn := range bitNames {
		out = append(out, Badge{
			Name:     bn.name,
			Obtained: b&(1<<bn.bit) != 0,
		})
	}
	return out
}

// BadgeCount returns the number of obtained badges (the popcount of the
// configured bits).
func (d *Decoder) BadgeCount(ctx context.Context) int {
	b := d.readByte(ctx, uint16(d.m.Badges.Address))
	var mask byte
	for _, bn := range d.m.badgeBits() {
		mask |= 1 << bn.bit
	}
	return bits.OnesCount8(b & mask)
}

// Party decodes the roster. A count byte outside [1,6] yields an empty
// roster: the count is garbage while the game rewrites party memory.
func (d *Decoder) Party(ctx context.Context) []PartyMember {
	count := int(d.readByte(ctx, uint16(d.m.Party.Count.Address)))
	if count == 0 || count > 6 {
		if count > 6 {
			d.logger.Debug().Int("count", count).Msg("party count out of range, treating roster as empty")
		}
		return []PartyMember{}
	}

	size := d.m.Party.Pokemon.Size
	base := uint16(d.m.Party.Pokemon.BaseAddress)
	party := make([]PartyMember, 0, count)
	record := make([]byte, size)
	for i := 0; i < count; i++ {
		addr := base + uint16(i*size)
		d.mem.ReadMemory(ctx, addr, record)
		party = append(party, d.decodeMember(record))
	}
	return party
}

// decodeMember decodes one fixed-stride party record.
func (d *Decoder) decodeMember(record []byte) PartyMember {
	speciesID := int(record[d.m.fieldOffset("species")])

	moves := make([]Move, 0, 4)
	moveFields := [4][2]string{
		{"move1", "move1_pp"},
		{"move2", "move2_pp"},
		{"move3", "move3_pp"},
		{"move4", "move4_pp"},
	}
	for _, mf := range moveFields {
		moveID := int(record[d.m.fieldOffset(mf[0])])
		if moveID == 0 {
			continue
		}
		moves = append(moves, Move{
			ID: moveID,
			PP: int(record[d.m.fieldOffset(mf[1])]),
		})
	}

	return PartyMember{
		SpeciesID: speciesID,
		Species:   SpeciesName(speciesID),
		Level:     int(record[d.m.fieldOffset("level")]),
		CurrentHP: d.uint16At(record, "current_hp"),
		MaxHP:     d.uint16At(record, "max_hp"),
		Moves:     moves,
		Stats: Stats{
			Attack:  d.uint16At(record, "attack"),
			Defense: d.uint16At(record, "defense"),
			Speed:   d.uint16At(record, "speed"),
			Special: d.uint16At(record, "special"),
		},
	}
}

// Money decodes the three-byte binary-coded-decimal balance. Each byte
// packs two decimal digits, most significant byte first.
func (d *Decoder) Money(ctx context.Context) int {
	buf := make([]byte, 3)
	d.mem.ReadMemory(ctx, uint16(d.m.Player.Money.Address), buf)

	money := 0
	for _, b := range buf {
		high := int(b>>4) & 0xF
		low := int(b) & 0xF
		money = money*100 + high*10 + low
	}
	return money
}

// InBattle reports whether the battle-type byte is non-zero.
func (d *Decoder) InBattle(ctx context.Context) bool {
	return d.readByte(ctx, uint16(d.m.Battle.InBattle.Address)) != 0
}

// uint16At reads a little-endian 16-bit field from a party record.
func (d *Decoder) uint16At(record []byte, field string) int {
	off := d.m.fieldOffset(field)
	low := int(record[off])
	high := int(record[off+1])
	return high<<8 | low
}

func (d *Decoder) readByte(ctx context.Context, addr uint16) byte {
	var buf [1]byte
	d.mem.ReadMemory(ctx, addr, buf[:])
	return buf[0]
}
