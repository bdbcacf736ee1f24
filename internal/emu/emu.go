// Package emu defines the boundary to the running Game Boy emulator.
//
// The agent never embeds an emulator core. It talks to one through the
// interfaces below, which a transport adapter (see Bridge) or a test fake
// implements. Interfaces are split by capability so callers depend only on
// what they use: the decision loop needs ticking and input, the memory
// decoder needs reads, checkpointing needs save states.
package emu

import "context"

// Emulator advances emulation and delivers input.
type Emulator interface {
	// Tick advances emulation by the given number of frames.
	Tick(ctx context.Context, frames int) error

	// PressButton holds a button down for the given number of frames and
	// releases it. Button names follow the hardware labels: "up", "down",
	// "left", "right", "a", "b", "start", "select".
	PressButton(ctx context.Context, button string, frames int) error

	// Close releases the connection to the emulator.
	Close() error
}

// MemoryInspector reads emulated memory.
type MemoryInspector interface {
	// ReadMemory fills buf with bytes starting at addr and returns the
	// number of bytes read. A read that cannot be served returns 0 and
	// leaves buf zeroed; it never fails.
	ReadMemory(ctx context.Context, addr uint16, buf []byte) int
}

// SaveStater captures and restores full emulator state.
type SaveStater interface {
	SaveState(ctx context.Context) ([]byte, error)
	LoadState(ctx context.Context, data []byte) error
}

// Device is the full capability set the agent expects from an emulator.
type Device interface {
	Emulator
	MemoryInspector
	SaveStater
}
