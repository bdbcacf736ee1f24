package gamestate

import "time"

// Position is the player's location: a zone (map) id plus tile
// coordinates within that zone.
type Position struct {
	Zone int `json:"zone"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// Move is one learned move slot: the move id and its remaining PP.
type Move struct {
	ID int `json:"move_id"`
	PP int `json:"pp"`
}

// Stats are the four battle stats of a party member.
type Stats struct {
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
	Special int `json:"special"`
}

// PartyMember is one decoded roster entry.
type PartyMember struct {
	SpeciesID int    `json:"species_id"`
	Species   string `json:"species"`
	Level     int    `json:"level"`
	CurrentHP int    `json:"current_hp"`
	MaxHP     int    `json:"max_hp"`
	Moves     []Move `json:"moves"`
	Stats     Stats  `json:"stats"`
}

// Badge is one gym badge flag, in badge-byte bit order.
type Badge struct {
	Name     string `json:"name"`
	Obtained bool   `json:"obtained"`
}

// Snapshot is one fully decoded observation of game memory. It is
// produced once per decision cycle and never mutated afterwards.
type Snapshot struct {
	Turn       int           `json:"turn"`
	Timestamp  time.Time     `json:"timestamp"`
	Position   Position      `json:"position"`
	Party      []PartyMember `json:"party"`
	Money      int           `json:"money"`
	Badges     []Badge       `json:"badges"`
	BadgeCount int           `json:"badge_count"`
	InBattle   bool          `json:"in_battle"`
}
