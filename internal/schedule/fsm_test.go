/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"testing"
	"time"
)

func TestInitialState(t *testing.T) {
	f := NewFSM()
	if f.State() != Initial {
		t.Fatalf("new FSM state = %v, want Initial", f.State())
	}
}

func TestHappyPathTransitions(t *testing.T) {
	f := NewFSM()
	steps := []State{Starting, Started, Stopping, Stopped}
	for _, s := range steps {
		if err := f.Transition(s); err != nil {
			t.Fatalf("transition to %v failed: %v", s, err)
		}
	}
	if f.State() != Stopped {
		t.Fatalf("final state = %v, want Stopped", f.State())
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	f := NewFSM()
	if err := f.Transition(Started); err == nil {
		t.Fatal("expected Initial -> Started to be rejected")
	}
	if f.State() != Initial {
		t.Fatal("state must not change on a rejected transition")
	}
}

func TestBusErrorShortcutsToStopped(t *testing.T) {
	f := NewFSM()
	_ = f.Transition(Starting)
	if err := f.Transition(Stopped); err != nil {
		t.Fatalf("Starting -> Stopped (bus error path) should be legal: %v", err)
	}
}

func TestTerminalStateRejectsEverything(t *testing.T) {
	f := NewFSM()
	_ = f.Transition(Starting)
	_ = f.Transition(Started)
	_ = f.Transition(Stopping)
	_ = f.Transition(Stopped)

	if err := f.Transition(Starting); err == nil {
		t.Fatal("Stopped must be terminal")
	}
}

func TestSameStateTransitionIsNoop(t *testing.T) {
	f := NewFSM()
	if err := f.Transition(Initial); err != nil {
		t.Fatalf("transitioning to the current state should succeed trivially: %v", err)
	}
}

func TestRescheduleOnlyValidInInitialOrStarting(t *testing.T) {
	f := NewFSM()
	cue := time.Now().Add(time.Minute)

	if err := f.SetSchedule(cue, nil); err != nil {
		t.Fatalf("schedule from Initial should succeed: %v", err)
	}
	_ = f.Transition(Starting)
	if err := f.SetSchedule(cue.Add(time.Minute), nil); err != nil {
		t.Fatalf("reschedule from Starting should succeed: %v", err)
	}

	_ = f.Transition(Started)
	if err := f.SetSchedule(cue, nil); err == nil {
		t.Fatal("reschedule from Started must fail")
	}
}

func TestCueAndEndTimeRoundTrip(t *testing.T) {
	f := NewFSM()
	cue := time.Now().Add(time.Second)
	end := cue.Add(time.Hour)

	if err := f.SetSchedule(cue, &end); err != nil {
		t.Fatal(err)
	}
	gotCue, ok := f.CueTime()
	if !ok || !gotCue.Equal(cue) {
		t.Fatalf("CueTime() = %v, %v; want %v, true", gotCue, ok, cue)
	}
	gotEnd := f.EndTime()
	if gotEnd == nil || !gotEnd.Equal(end) {
		t.Fatalf("EndTime() = %v, want %v", gotEnd, end)
	}
}
