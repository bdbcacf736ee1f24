// Package actions turns decision tokens into emulator input.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/emu"
)

// Vocabulary is the full set of accepted action tokens, in a stable
// order for display.
var Vocabulary = []string{
	"up", "down", "left", "right",
	"a", "b", "start", "select",
	"wait",
}

var vocabularySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Vocabulary))
	for _, a := range Vocabulary {
		m[a] = struct{}{}
	}
	return m
}()

// ErrInvalidAction marks a token outside the vocabulary.
var ErrInvalidAction = errors.New("actions: invalid action")

// Valid reports whether a token is in the vocabulary.
func Valid(token string) bool {
	_, ok := vocabularySet[token]
	return ok
}

// Config holds executor timing, in frames (the emulator runs 60/s).
type Config struct {
	// PressFrames is how long a button is held. Defaults to 10 if zero.
	PressFrames int

	// WaitFrames is how long a "wait" action idles. Defaults to 30 if
	// zero.
	WaitFrames int

	// SettleFrames run after every action so the game can react before
	// the next observation. Defaults to 6 if zero.
	SettleFrames int
}

// Executor applies validated actions to the emulator.
type Executor struct {
	cfg    Config
	emu    emu.Emulator
	logger zerolog.Logger
}

// NewExecutor creates an executor over the given emulator.
func NewExecutor(cfg Config, device emu.Emulator, logger zerolog.Logger) *Executor {
	if cfg.PressFrames == 0 {
		cfg.PressFrames = 10
	}
	if cfg.WaitFrames == 0 {
		cfg.WaitFrames = 30
	}
	if cfg.SettleFrames == 0 {
		cfg.SettleFrames = 6
	}
	return &Executor{
		cfg:    cfg,
		emu:    device,
		logger: logger.With().Str("component", "actions").Logger(),
	}
}

// Execute applies one action. Tokens outside the vocabulary are
// rejected with ErrInvalidAction; the loop reports them as failed
// outcomes and continues.
func (e *Executor) Execute(ctx context.Context, action string) error {
	action = strings.ToLower(strings.TrimSpace(action))

	if !Valid(action) {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	e.logger.Debug().Str("action", action).Msg("executing action")

	if action == "wait" {
		if err := e.emu.Tick(ctx, e.cfg.WaitFrames); err != nil {
			return fmt.Errorf("actions: wait: %w", err)
		}
	} else {
		if err := e.emu.PressButton(ctx, action, e.cfg.PressFrames); err != nil {
			return fmt.Errorf("actions: press %s: %w", action, err)
		}
	}

	if err := e.emu.Tick(ctx, e.cfg.SettleFrames); err != nil {
		return fmt.Errorf("actions: settle after %s: %w", action, err)
	}
	return nil
}
