/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule implements the Schedulable contract: a small state
// machine that carries a node through Initial -> Starting -> Started ->
// Stopping -> Stopped, with optional cue-time / end-time scheduling.
package schedule

import (
	"fmt"
	"sync"
	"time"
)

// State is one of the five lifecycle states a Schedulable node passes
// through.
type State int

const (
	Initial State = iota
	Starting
	Started
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FSM is the state holder. It does not itself own timers: the owning node
// (the Mixer actor, in this codebase) arms time.Timers against its own
// select loop and calls Transition when they fire, so that all state
// mutation happens on the actor goroutine.
type FSM struct {
	mu      sync.Mutex
	state   State
	cueTime time.Time
	endTime *time.Time
	hasCue  bool
}

// NewFSM returns an FSM in the Initial state.
func NewFSM() *FSM {
	return &FSM{state: Initial}
}

// State returns the current state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CueTime and EndTime return the currently scheduled times, if any.
func (f *FSM) CueTime() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cueTime, f.hasCue
}

func (f *FSM) EndTime() *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endTime
}

// SetSchedule records cue/end times. Valid only from Initial or Starting;
// rescheduling once a node has reached Started or later is a logical error.
func (f *FSM) SetSchedule(cueTime time.Time, endTime *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Initial && f.state != Starting {
		return fmt.Errorf("schedule: cannot (re)schedule from state %s", f.state)
	}
	f.cueTime = cueTime
	f.hasCue = true
	f.endTime = endTime
	return nil
}

// allowed enumerates the legal direct transitions.
var allowed = map[State]map[State]bool{
	Initial:  {Starting: true, Stopped: true},
	Starting: {Started: true, Stopped: true},
	Started:  {Stopping: true, Stopped: true},
	Stopping: {Stopped: true},
	Stopped:  {},
}

// Transition validates and applies a state change. Initial->Stopped and
// Starting->Stopped cover pipeline construction and bus error paths, which
// may shortcut straight to Stopped from any non-terminal state.
func (f *FSM) Transition(target State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == target {
		return nil
	}
	if !allowed[f.state][target] {
		return fmt.Errorf("schedule: illegal transition %s -> %s", f.state, target)
	}
	f.state = target
	return nil
}
