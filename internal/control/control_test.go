/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"testing"
	"time"

	"github.com/friendsincode/auteur/internal/setting"
)

// fakeTarget is a minimal Target for exercising Controller in isolation.
type fakeTarget struct {
	kind     setting.Kind
	current  setting.Value
	applyErr error
}

func (t *fakeTarget) Kind() setting.Kind     { return t.kind }
func (t *fakeTarget) Current() setting.Value { return t.current }
func (t *fakeTarget) Apply(v setting.Value) error {
	if t.applyErr != nil {
		return t.applyErr
	}
	t.current = v
	return nil
}

func TestEnqueueRejectsTypeMismatch(t *testing.T) {
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := New("slot-a", "audio::volume", target)

	err := c.Enqueue(Point{ID: "p1", Time: time.Now(), Value: setting.I32Value(1)})
	if err == nil {
		t.Fatal("expected type-mismatched point to be rejected")
	}
}

func TestEnqueueRejectsOutOfOrderTime(t *testing.T) {
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := New("slot-a", "audio::volume", target)

	t0 := time.Now()
	if err := c.Enqueue(Point{ID: "p1", Time: t0.Add(time.Second), Value: setting.F64Value(0.5)}); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	// A later-arriving point whose Time precedes the last queued point's
	// Time must be rejected outright, per the documented policy (§4.2, §9).
	err := c.Enqueue(Point{ID: "p2", Time: t0, Value: setting.F64Value(0.25)})
	if err == nil {
		t.Fatal("expected out-of-order point to be rejected")
	}
}

func TestRemoveByID(t *testing.T) {
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := New("slot-a", "audio::volume", target)

	t0 := time.Now()
	_ = c.Enqueue(Point{ID: "p1", Time: t0.Add(time.Second), Value: setting.F64Value(0.5)})
	_ = c.Enqueue(Point{ID: "p2", Time: t0.Add(2 * time.Second), Value: setting.F64Value(0.0)})

	if !c.Remove("p1") {
		t.Fatal("Remove(p1) reported false, wanted true")
	}
	for _, p := range c.Points() {
		if p.ID == "p1" {
			t.Fatal("removed point p1 still present in Points()")
		}
	}
	if c.Remove("p1") {
		t.Fatal("second Remove(p1) reported true, wanted false (already gone)")
	}
}

func TestRemoveActiveSegment(t *testing.T) {
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := New("slot-a", "audio::volume", target)

	t0 := time.Now()
	_ = c.Enqueue(Point{ID: "p1", Time: t0.Add(time.Second), Value: setting.F64Value(0.0), Interpolation: InterpLinear})
	// Activate the segment; its end time is still in the future, so it stays active.
	if _, err := c.Synchronize(t0, 0, false); err != nil {
		t.Fatal(err)
	}
	if !c.Remove("p1") {
		t.Fatal("expected Remove to cancel the active segment")
	}
	done, err := c.Synchronize(t0.Add(time.Second), time.Second, true)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("expected controller to be done after removing its only point")
	}
}

func TestSynchronizeLinearRamp(t *testing.T) {
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := New("slot-a", "audio::volume", target)

	t0 := time.Now()
	duration := 1000 * time.Millisecond
	_ = c.Enqueue(Point{ID: "p1", Time: t0.Add(duration), Value: setting.F64Value(0.0), Interpolation: InterpLinear})

	// First tick activates the segment (current value 1.0 ramping toward
	// 0.0) but does not integrate yet, since duration is not yet known.
	if _, err := c.Synchronize(t0, 0, false); err != nil {
		t.Fatal(err)
	}

	// Advance halfway through the ramp.
	half := t0.Add(duration / 2)
	done, err := c.Synchronize(half, duration/2, true)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("controller reported done mid-ramp")
	}
	got := target.Current().F64
	if got < 0.45 || got > 0.55 {
		t.Fatalf("mid-ramp value = %v, want within [0.45, 0.55]", got)
	}

	// Complete the ramp.
	done, err = c.Synchronize(t0.Add(duration), duration/2, true)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("expected controller to report done once the segment commits and no points remain")
	}
	if target.Current().F64 != 0.0 {
		t.Fatalf("final value = %v, want 0.0", target.Current().F64)
	}
}

func TestSynchronizeUnknownDurationDoesNotIntegrateLinear(t *testing.T) {
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := New("slot-a", "audio::volume", target)

	t0 := time.Now()
	_ = c.Enqueue(Point{ID: "p1", Time: t0.Add(time.Second), Value: setting.F64Value(0.0), Interpolation: InterpLinear})

	// durationKnown = false: the segment activates but no ramp integration
	// may fire on this tick (§9 "unused duration on first tick"), and its end
	// time is still in the future so it does not commit outright either.
	if _, err := c.Synchronize(t0, 0, false); err != nil {
		t.Fatal(err)
	}
	if target.Current().F64 != 1.0 {
		t.Fatalf("value changed on an unknown-duration tick: got %v, want unchanged 1.0", target.Current().F64)
	}
}

func TestSynchronizeStepwiseAppliesAtPointTime(t *testing.T) {
	target := &fakeTarget{kind: setting.KindI32, current: setting.I32Value(0)}
	c := New("mixer", "width", target)

	t0 := time.Now()
	_ = c.Enqueue(Point{ID: "p1", Time: t0, Value: setting.I32Value(1280), Interpolation: InterpNone})

	done, err := c.Synchronize(t0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if target.Current().I32 != 1280 {
		t.Fatalf("stepwise value = %d, want 1280", target.Current().I32)
	}
	if !done {
		t.Fatal("expected done=true once the only point commits with nothing pending")
	}
}

func TestMapSynchronizePrunesDoneControllers(t *testing.T) {
	m := NewMap()
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	c := m.GetOrCreate("slot-a|audio::volume", func() *Controller {
		return New("slot-a", "audio::volume", target)
	})

	t0 := time.Now()
	_ = c.Enqueue(Point{ID: "p1", Time: t0, Value: setting.F64Value(0.0), Interpolation: InterpNone})

	if err := m.Synchronize(t0, 0, false); err != nil {
		t.Fatal(err)
	}
	if m.Get("slot-a|audio::volume") != nil {
		t.Fatal("expected drained controller to be pruned from the map")
	}
}

func TestMapSnapshotIsolated(t *testing.T) {
	m := NewMap()
	target := &fakeTarget{kind: setting.KindF64, current: setting.F64Value(1.0)}
	m.GetOrCreate("k", func() *Controller { return New("c", "p", target) })

	snap := m.Snapshot()
	delete(snap, "k")
	if m.Get("k") == nil {
		t.Fatal("mutating the snapshot must not affect the underlying map")
	}
}
