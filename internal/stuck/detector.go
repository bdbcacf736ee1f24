// Package stuck watches the recent action stream for the two failure
// shapes a wandering agent produces: hammering one action, and
// oscillating between two.
package stuck

import (
	"github.com/rs/zerolog"
)

// Config holds detector settings.
type Config struct {
	// Threshold is the window capacity: the number of identical
	// consecutive actions that counts as stuck. Defaults to 10 if zero.
	Threshold int
}

// Detector keeps a fixed-capacity window of recent action tokens. It is
// confined to the loop driver goroutine and needs no locking.
type Detector struct {
	cfg    Config
	logger zerolog.Logger
	window []string
}

// New creates an empty detector.
func New(cfg Config, logger zerolog.Logger) *Detector {
	if cfg.Threshold == 0 {
		cfg.Threshold = 10
	}
	return &Detector{
		cfg:    cfg,
		logger: logger.With().Str("component", "stuck").Logger(),
		window: make([]string, 0, cfg.Threshold),
	}
}

// Record pushes an action into the window, evicting the oldest entry
// once the window is full.
func (d *Detector) Record(action string) {
	if len(d.window) == d.cfg.Threshold {
		copy(d.window, d.window[1:])
		d.window = d.window[:len(d.window)-1]
	}
	d.window = append(d.window, action)
}

// IsStuck reports whether the window shows a stuck pattern: every
// buffered action identical with the window full, or the last four
// strictly alternating between exactly two actions (a,b,a,b).
func (d *Detector) IsStuck() bool {
	if len(d.window) == d.cfg.Threshold && allSame(d.window) {
		d.logger.Warn().Str("action", d.window[0]).Int("count", len(d.window)).Msg("repeating one action")
		return true
	}
	if len(d.window) >= 4 {
		last := d.window[len(d.window)-4:]
		if last[0] == last[2] && last[1] == last[3] && last[0] != last[1] {
			d.logger.Warn().Str("a", last[0]).Str("b", last[1]).Msg("oscillating between two actions")
			return true
		}
	}
	return false
}

// History returns the last n recorded actions, oldest first. It returns
// fewer when the window holds fewer.
func (d *Detector) History(n int) []string {
	if n > len(d.window) {
		n = len(d.window)
	}
	out := make([]string, n)
	copy(out, d.window[len(d.window)-n:])
	return out
}

// Reset clears the window.
func (d *Detector) Reset() {
	d.window = d.window[:0]
}

// Len returns the number of buffered actions.
func (d *Detector) Len() int {
	return len(d.window)
}

func allSame(actions []string) bool {
	for _, a := range actions[1:] {
		if a != actions[0] {
			return false
		}
	}
	return true
}
