// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"testing"

	"github.com/decred/slog"
	"github.com/google/go-cmp/cmp"
)

func TestSubsystems(t *testing.T) {
	a := NewSubsystem("TSTA")
	b := NewSubsystem("TSTB")
	if NewSubsystem("TSTA") != a {
		t.Errorf("subsystem logger was created twice")
	}

	got := SupportedSubsystems()
	want := []string{"TSTA", "TSTB"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("subsystems mismatch (-want +got):\n%s", diff)
	}

	SetLogLevels("debug")
	if a.Level() != slog.LevelDebug || b.Level() != slog.LevelDebug {
		t.Errorf("log levels were not set")
	}

	SetLogLevel("TSTB", "warn")
	if b.Level() != slog.LevelWarn {
		t.Errorf("got level %v, want warn", b.Level())
	}
	if a.Level() != slog.LevelDebug {
		t.Errorf("unrelated subsystem level changed")
	}

	// Unknown subsystems are ignored
	SetLogLevel("NONE", "trace")
	if len(SupportedSubsystems()) != 2 {
		t.Errorf("unknown subsystem was created")
	}
}

func TestLogClosure(t *testing.T) {
	var called bool
	c := NewLogClosure(func() string {
		called = true
		return "expensive"
	})
	if called {
		t.Fatalf("closure was invoked before formatting")
	}
	if got := fmt.Sprintf("%v", c); got != "expensive" {
		t.Errorf("got %q", got)
	}
}
