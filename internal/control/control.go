/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package control implements ControlPoint and the PropertyController /
// SettingController interpolation engine that drives a target (a mixer pad
// property or a Setting) toward a stream of timestamped values in step with
// the sample clock.
package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/auteur/internal/setting"
)

// Interpolation selects how a controller moves its target toward a point's
// value once the point becomes active.
type Interpolation int

const (
	// InterpNone applies the value in one step at the point's Time.
	InterpNone Interpolation = iota
	// InterpLinear ramps the target linearly from the value it held when
	// the segment started to the point's value, over the span between the
	// previous point (or segment start) and this point's Time.
	InterpLinear
)

// Point is a timestamped target value with an interpolation mode.
type Point struct {
	ID            string
	Time          time.Time
	Value         setting.Value
	Interpolation Interpolation
}

// Target is anything a Controller can drive: a Setting, or a pad property
// exposed through the graph package's PadProperty capability.
type Target interface {
	Kind() setting.Kind
	Current() setting.Value
	Apply(setting.Value) error
}

// segment is the controller's currently-interpolating point.
type segment struct {
	end   Point
	lastT time.Time
}

// Controller applies a stream of Points to a single Target, one point at a
// time, in enqueue order. It is safe for concurrent use; callers typically
// serialize access themselves via the owning mixing-state mutex, but the
// controller does not rely on that.
type Controller struct {
	ControlleeID string
	PropName     string

	mu      sync.Mutex
	target  Target
	pending []Point
	active  *segment
}

// New creates a controller bound to target, identified by controlleeID and
// propName for GetNodeInfo / removal bookkeeping.
func New(controlleeID, propName string, target Target) *Controller {
	return &Controller{ControlleeID: controlleeID, PropName: propName, target: target}
}

// Enqueue validates p's value type against the target and appends it to the
// pending queue. A point whose Time precedes the last currently-pending
// point's Time (or the active segment's end Time, if nothing is pending) is
// rejected outright rather than reordered into the queue.
func (c *Controller) Enqueue(p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Value.Kind != c.target.Kind() {
		return fmt.Errorf("control: point value kind %s does not match target kind %s", p.Value.Kind, c.target.Kind())
	}

	lastTime, have := c.lastKnownTimeLocked()
	if have && p.Time.Before(lastTime) {
		return fmt.Errorf("control: point time %s precedes last queued point time %s", p.Time, lastTime)
	}

	c.pending = append(c.pending, p)
	return nil
}

func (c *Controller) lastKnownTimeLocked() (time.Time, bool) {
	if n := len(c.pending); n > 0 {
		return c.pending[n-1].Time, true
	}
	if c.active != nil {
		return c.active.end.Time, true
	}
	return time.Time{}, false
}

// Remove removes a pending point by id, or cancels the active segment if it
// is the one carrying that id. Returns whether anything was removed.
func (c *Controller) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.pending {
		if p.ID == id {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	if c.active != nil && c.active.end.ID == id {
		c.active = nil
		return true
	}
	return false
}

// Points returns a snapshot of every point still owned by the controller
// (the active segment's end point, followed by pending points), for
// GetNodeInfo reporting.
func (c *Controller) Points() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Point, 0, len(c.pending)+1)
	if c.active != nil {
		out = append(out, c.active.end)
	}
	out = append(out, c.pending...)
	return out
}

// Synchronize advances the controller by one samples-selected tick. now is
// the output pts; duration is now minus the previous tick's pts, and
// durationKnown is false on the very first tick of the mixer's lifetime, in
// which case no linear ramp is integrated -- only a stepwise value change can
// apply on an unknown-duration tick. The tick that activates a segment only
// starts it: a linear ramp is integrated from the following tick on, so the
// ramp is measured from the activation instant. It reports done = true once
// the controller has neither an active segment nor pending points, at which
// point the owning map is expected to drop it.
func (c *Controller) Synchronize(now time.Time, duration time.Duration, durationKnown bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	activated := false
	if c.active == nil && len(c.pending) > 0 {
		p := c.pending[0]
		c.pending = c.pending[1:]
		c.active = &segment{end: p, lastT: now}
		activated = true
	}

	if c.active != nil && !now.Before(c.active.end.Time) {
		if err := c.target.Apply(c.active.end.Value); err != nil {
			return false, err
		}
		c.active = nil
	}

	if c.active != nil && c.active.end.Interpolation == InterpLinear && durationKnown && !activated {
		remaining := c.active.end.Time.Sub(c.active.lastT)
		factor := 1.0
		if remaining > 0 {
			factor = float64(duration) / float64(remaining)
			if factor > 1 {
				factor = 1
			} else if factor < 0 {
				factor = 0
			}
		}

		cur, err := c.target.Current().AsF64()
		if err != nil {
			return false, err
		}
		end, err := c.active.end.Value.AsF64()
		if err != nil {
			return false, err
		}

		next := cur + (end-cur)*factor
		if err := c.target.Apply(c.target.Current().WithF64(next)); err != nil {
			return false, err
		}
		c.active.lastT = now
	}

	return c.active == nil && len(c.pending) == 0, nil
}

// Map is a collection of Controllers keyed by an arbitrary string: slot id
// + property for a slot's video/audio controllers, or setting name for the
// mixer's own output-level controllers.
type Map struct {
	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewMap creates an empty controller map.
func NewMap() *Map {
	return &Map{controllers: make(map[string]*Controller)}
}

// GetOrCreate returns the controller for key, creating it via newController
// if absent.
func (m *Map) GetOrCreate(key string, newController func() *Controller) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[key]
	if !ok {
		c = newController()
		m.controllers[key] = c
	}
	return c
}

// Get returns the controller for key, or nil.
func (m *Map) Get(key string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controllers[key]
}

// Synchronize advances every controller in the map by one tick and prunes
// those that report done.
func (m *Map) Synchronize(now time.Time, duration time.Duration, durationKnown bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, c := range m.controllers {
		done, err := c.Synchronize(now, duration, durationKnown)
		if err != nil {
			return fmt.Errorf("control: synchronizing %q: %w", key, err)
		}
		if done {
			delete(m.controllers, key)
		}
	}
	return nil
}

// Snapshot returns a shallow copy of the map's controllers, safe to range
// over without holding the map's lock.
func (m *Map) Snapshot() map[string]*Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Controller, len(m.controllers))
	for k, v := range m.controllers {
		out[k] = v
	}
	return out
}
