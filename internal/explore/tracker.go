// Package explore tracks which map tiles the player has visited, zone by
// zone, and answers "where haven't we been" queries for the decision
// prompt.
package explore

import (
	"sort"

	"github.com/rs/zerolog"
)

// Tile coordinates are bounded to one unsigned byte each; positions are
// decoded from single-byte reads so nothing outside this range can be
// visited.
const (
	MinCoord = 0
	MaxCoord = 255
)

// maxNearbyTiles caps an UnexploredNear result to the closest tiles so
// prompt text stays bounded regardless of radius.
const maxNearbyTiles = 10

// Tile is one map coordinate pair.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Stats summarizes exploration coverage for one zone.
//
// There is no ground-truth map size available from memory, so the total
// is estimated: at least the configured floor, growing once visited
// count exceeds it.
type Stats struct {
	Visited        int     `json:"visited"`
	EstimatedTotal int     `json:"estimated_total"`
	Percent        float64 `json:"percent"`
}

// Config holds tracker settings.
type Config struct {
	// TotalTilesFloor is the minimum estimated zone size used for
	// percentage reporting. Defaults to 200 if zero.
	TotalTilesFloor int
}

// Tracker records visited tiles per zone. It is confined to the loop
// driver goroutine and needs no locking.
type Tracker struct {
	cfg     Config
	logger  zerolog.Logger
	visited map[int]map[Tile]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	if cfg.TotalTilesFloor == 0 {
		cfg.TotalTilesFloor = 200
	}
	return &Tracker{
		cfg:     cfg,
		logger:  logger.With().Str("component", "explore").Logger(),
		visited: make(map[int]map[Tile]struct{}),
	}
}

// Update marks exactly the given tile as visited.
func (t *Tracker) Update(zone, x, y int) {
	tiles, ok := t.visited[zone]
	if !ok {
		tiles = make(map[Tile]struct{})
		t.visited[zone] = tiles
		t.logger.Debug().Int("zone", zone).Msg("entered new zone")
	}
	tiles[Tile{X: x, Y: y}] = struct{}{}
}

// Visited reports whether the tile has been visited.
func (t *Tracker) Visited(zone, x, y int) bool {
	_, ok := t.visited[zone][Tile{X: x, Y: y}]
	return ok
}

// UnexploredNear returns unvisited tiles in the square window of the
// given radius around (x, y), clipped to the coordinate domain, sorted
// ascending by Manhattan distance from (x, y), and truncated to the
// closest few. Distance ties order by X then Y.
func (t *Tracker) UnexploredNear(zone, x, y, radius int) []Tile {
	tiles := t.visited[zone]
	var out []Tile
	for tx := x - radius; tx <= x+radius; tx++ {
		if tx < MinCoord || tx > MaxCoord {
			continue
		}
		for ty := y - radius; ty <= y+radius; ty++ {
			if ty < MinCoord || ty > MaxCoord {
				continue
			}
			tile := Tile{X: tx, Y: ty}
			if _, seen := tiles[tile]; seen {
				continue
			}
			out = append(out, tile)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		di := manhattan(out[i], x, y)
		dj := manhattan(out[j], x, y)
		if di != dj {
			return di < dj
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})

	if len(out) > maxNearbyTiles {
		out = out[:maxNearbyTiles]
	}
	return out
}

// Stats reports coverage for a zone.
func (t *Tracker) Stats(zone int) Stats {
	visited := len(t.visited[zone])
	total := t.cfg.TotalTilesFloor
	if visited > total {
		total = visited
	}
	percent := 0.0
	if total > 0 {
		percent = float64(visited) / float64(total) * 100
	}
	return Stats{Visited: visited, EstimatedTotal: total, Percent: percent}
}

// Zones returns the ids of all zones with at least one visited tile, in
// ascending order.
func (t *Tracker) Zones() []int {
	out := make([]int, 0, len(t.visited))
	for zone := range t.visited {
		out = append(out, zone)
	}
	sort.Ints(out)
	return out
}

// ResetZone forgets all visited tiles in one zone.
func (t *Tracker) ResetZone(zone int) {
	delete(t.visited, zone)
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.visited = make(map[int]map[Tile]struct{})
}

// Export returns every zone's tiles sorted by X then Y, for persistence.
func (t *Tracker) Export() map[int][]Tile {
	out := make(map[int][]Tile, len(t.visited))
	for zone, tiles := range t.visited {
		list := make([]Tile, 0, len(tiles))
		for tile := range tiles {
			list = append(list, tile)
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].X != list[j].X {
				return list[i].X < list[j].X
			}
			return list[i].Y < list[j].Y
		})
		out[zone] = list
	}
	return out
}

// Seed loads previously persisted tiles into a zone, merging with
// anything already recorded.
func (t *Tracker) Seed(zone int, tiles []Tile) {
	for _, tile := range tiles {
		t.Update(zone, tile.X, tile.Y)
	}
}

func manhattan(t Tile, x, y int) int {
	return abs(t.X-x) + abs(t.Y-y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
