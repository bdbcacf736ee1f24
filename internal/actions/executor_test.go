package actions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

// recordingEmu records every Tick and PressButton call in order.
type recordingEmu struct {
	calls []string
	fail  error
}

func (e *recordingEmu) Tick(_ context.Context, frames int) error {
	e.calls = append(e.calls, fmt.Sprintf("tick(%d)", frames))
	return e.fail
}

func (e *recordingEmu) PressButton(_ context.Context, button string, frames int) error {
	e.calls = append(e.calls, fmt.Sprintf("press(%s,%d)", button, frames))
	return e.fail
}

func (e *recordingEmu) Close() error { return nil }

func newTestExecutor(device *recordingEmu) *Executor {
	return NewExecutor(Config{PressFrames: 10, WaitFrames: 30, SettleFrames: 6}, device, zerolog.Nop())
}

func TestExecuteButtonPress(t *testing.T) {
	device := &recordingEmu{}
	e := newTestExecutor(device)

	if err := e.Execute(context.Background(), "a"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"press(a,10)", "tick(6)"}
	if len(device.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, device.calls)
	}
	for i := range want {
		if device.calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], device.calls[i])
		}
	}
}

func TestExecuteWait(t *testing.T) {
	device := &recordingEmu{}
	e := newTestExecutor(device)

	if err := e.Execute(context.Background(), "wait"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"tick(30)", "tick(6)"}
	if len(device.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, device.calls)
	}
	for i := range want {
		if device.calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], device.calls[i])
		}
	}
}

func TestExecuteNormalizesToken(t *testing.T) {
	device := &recordingEmu{}
	e := newTestExecutor(device)

	if err := e.Execute(context.Background(), "  Start \n"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if device.calls[0] != "press(start,10)" {
		t.Errorf("expected normalized press, got %s", device.calls[0])
	}
}

func TestExecuteInvalidAction(t *testing.T) {
	device := &recordingEmu{}
	e := newTestExecutor(device)

	err := e.Execute(context.Background(), "teleport")
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if len(device.calls) != 0 {
		t.Errorf("expected no emulator calls for an invalid action, got %v", device.calls)
	}
}

func TestExecuteEmulatorFailure(t *testing.T) {
	device := &recordingEmu{fail: errors.New("bridge down")}
	e := newTestExecutor(device)

	err := e.Execute(context.Background(), "up")
	if err == nil {
		t.Fatal("expected error from emulator failure")
	}
	if errors.Is(err, ErrInvalidAction) {
		t.Error("emulator failure must not look like an invalid action")
	}
}

func TestValid(t *testing.T) {
	for _, token := range Vocabulary {
		if !Valid(token) {
			t.Errorf("expected %q to be valid", token)
		}
	}
	if Valid("UP") || Valid("") {
		t.Error("Valid must match exact lowercase tokens only")
	}
}
