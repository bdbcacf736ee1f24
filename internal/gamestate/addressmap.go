package gamestate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// HexAddr is a 16-bit memory address parsed from a JSON hex string
// such as "0xD362".
type HexAddr uint16

func (h *HexAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("address must be a hex string: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	*h = HexAddr(v)
	return nil
}

type addrField struct {
	Address HexAddr `json:"address"`
}

type offsetField struct {
	Offset int `json:"offset"`
}

// AddressMap locates the decoded game fields in emulated memory. It is
// loaded from an external JSON file so the agent binary carries no
// hard-coded ROM knowledge beyond the species name table.
type AddressMap struct {
	Player struct {
		Position struct {
			X     addrField `json:"x"`
			Y     addrField `json:"y"`
			MapID addrField `json:"map_id"`
		} `json:"position"`
		Money addrField `json:"money"`
	} `json:"player"`
	Badges struct {
		Address HexAddr           `json:"address"`
		Bits    map[string]string `json:"bits"`
	} `json:"badges"`
	Party struct {
		Count   addrField `json:"count"`
		Pokemon struct {
			BaseAddress HexAddr                `json:"base_address"`
			Size        int                    `json:"size"`
			Fields      map[string]offsetField `json:"fields"`
		} `json:"pokemon"`
	} `json:"party"`
	Battle struct {
		InBattle addrField `json:"in_battle"`
	} `json:"battle"`
}

// requiredPartyFields maps each party-record field the decoder reads to
// the byte width of that read.
var requiredPartyFields = map[string]int{
	"species":    1,
	"current_hp": 2,
	"max_hp":     2,
	"level":      1,
	"attack":     2,
	"defense":    2,
	"speed":      2,
	"special":    2,
	"move1":      1, "move2": 1, "move3": 1, "move4": 1,
	"move1_pp": 1, "move2_pp": 1, "move3_pp": 1, "move4_pp": 1,
}

// LoadAddressMap reads and validates an address map from a JSON file.
func LoadAddressMap(path string) (*AddressMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gamestate: read address map: %w", err)
	}
	return ParseAddressMap(data)
}

// ParseAddressMap parses and validates an address map document.
func ParseAddressMap(data []byte) (*AddressMap, error) {
	var m AddressMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("gamestate: parse address map: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("gamestate: invalid address map: %w", err)
	}
	return &m, nil
}

func (m *AddressMap) validate() error {
	if m.Party.Pokemon.Size <= 0 {
		return fmt.Errorf("party.pokemon.size must be positive, got %d", m.Party.Pokemon.Size)
	}
	for name, width := range requiredPartyFields {
		f, ok := m.Party.Pokemon.Fields[name]
		if !ok {
			return fmt.Errorf("party.pokemon.fields missing %q", name)
		}
		if f.Offset < 0 || f.Offset+width > m.Party.Pokemon.Size {
			return fmt.Errorf("party field %q offset %d out of record bounds (size %d)", name, f.Offset, m.Party.Pokemon.Size)
		}
	}
	for bit := range m.Badges.Bits {
		n, err := strconv.Atoi(bit)
		if err != nil || n < 0 || n > 7 {
			return fmt.Errorf("badge bit key %q must be a digit 0-7", bit)
		}
	}
	return nil
}

// badgeBits returns the bit→name pairs in ascending bit order.
func (m *AddressMap) badgeBits() []badgeBit {
	out := make([]badgeBit, 0, len(m.Badges.Bits))
	for k, name := range m.Badges.Bits {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out = append(out, badgeBit{bit: n, name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].bit < out[j].bit })
	return out
}

type badgeBit struct {
	bit  int
	name string
}

// fieldOffset returns the record offset for a validated party field.
func (m *AddressMap) fieldOffset(name string) int {
	return m.Party.Pokemon.Fields[name].Offset
}
