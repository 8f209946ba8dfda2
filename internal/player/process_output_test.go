//go:build unix

package player

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

type eventRecorder struct {
	ready  chan uint64
	ended  chan uint64
	errors chan uint64
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{
		ready:  make(chan uint64, 4),
		ended:  make(chan uint64, 4),
		errors: make(chan uint64, 4),
	}
}

func (r *eventRecorder) HandleReady(token uint64) { r.ready <- token }
func (r *eventRecorder) HandleEnded(token uint64) { r.ended <- token }
func (r *eventRecorder) HandleError(token uint64, _ error) { r.errors <- token }

func writePlayerScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "player")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write player script: %v", err)
	}
	return path
}

func receive(t *testing.T, ch chan uint64, what string) uint64 {
	t.Helper()
	select {
	case token := <-ch:
		return token
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return 0
	}
}

func TestProcessOutputReportsEnd(t *testing.T) {
	events := newEventRecorder()
	output := NewProcessOutput(writePlayerScript(t, "exit 0"), zap.NewNop())
	output.Bind(events)

	if err := output.SetSource(Source{Token: 3, URL: "https://audio/x"}); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	if token := receive(t, events.ready, "ready"); token != 3 {
		t.Errorf("ready token = %d, want 3", token)
	}

	if err := output.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if token := receive(t, events.ended, "ended"); token != 3 {
		t.Errorf("ended token = %d, want 3", token)
	}
}

func TestProcessOutputReportsFailure(t *testing.T) {
	events := newEventRecorder()
	output := NewProcessOutput(writePlayerScript(t, "exit 2"), zap.NewNop())
	output.Bind(events)

	if err := output.SetSource(Source{Token: 5, Blob: []byte("audio")}); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	receive(t, events.ready, "ready")

	if err := output.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if token := receive(t, events.errors, "error"); token != 5 {
		t.Errorf("error token = %d, want 5", token)
	}
}

func TestProcessOutputStopSuppressesEvents(t *testing.T) {
	events := newEventRecorder()
	output := NewProcessOutput(writePlayerScript(t, "exec sleep 30"), zap.NewNop())
	output.Bind(events)

	if err := output.SetSource(Source{Token: 1, URL: "https://audio/x"}); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	receive(t, events.ready, "ready")
	if err := output.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := output.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	paused := output.Position()
	time.Sleep(20 * time.Millisecond)
	if output.Position() != paused {
		t.Error("Position() advanced while paused")
	}

	if err := output.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-events.ended:
		t.Error("killed process reported ended")
	case <-events.errors:
		t.Error("killed process reported error")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestProcessOutputWithoutCommand(t *testing.T) {
	output := NewProcessOutput("  ", zap.NewNop())
	if err := output.SetSource(Source{Token: 1}); err != ErrNoPlayerCommand {
		t.Errorf("SetSource() error = %v, want ErrNoPlayerCommand", err)
	}
}
