/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/setting"
)

// SamplesSelectedFunc is the per-output-sample hook an Aggregator-style
// element invokes as it selects inputs for one output sample.
type SamplesSelectedFunc func(pts time.Time)

// Compositor is the reference implementation of the `compositor` element:
// a video Aggregator with a reserved sink_0 (the base plate) and any number
// of request pads for real inputs. It emits samples-selected at a fixed
// frame rate once Running.
type Compositor struct {
	id string

	mu         sync.Mutex
	pads       map[string]*Pad
	order      []string
	fps        int
	cb         SamplesSelectedFunc
	background string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCompositor creates a compositor with a reserved base-plate pad
// (sink_0) and the given output frame rate.
func NewCompositor(id string, fps int) *Compositor {
	c := &Compositor{id: id, pads: make(map[string]*Pad), fps: fps}
	basePlate := NewPad("sink_0", map[string]setting.Value{
		"alpha":         setting.F64Value(0),
		"width":         setting.I32Value(0),
		"height":        setting.I32Value(0),
		"zorder":        setting.I32Value(0),
		"sizing-policy": setting.StrValue("none"),
	})
	c.pads["sink_0"] = basePlate
	c.order = append(c.order, "sink_0")
	return c
}

// SetBackground sets the compositor's background property (e.g. "black").
func (c *Compositor) SetBackground(bg string) { c.background = bg }

// BasePlatePad returns the reserved sink_0 pad.
func (c *Compositor) BasePlatePad() *Pad {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pads["sink_0"]
}

// RequestSinkPad allocates a new sink pad, named "sink_" plus the first
// eight characters of a random UUID, with the standard video mixer pad
// properties.
func (c *Compositor) RequestSinkPad() *Pad {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := "sink_" + uuid.NewString()[:8]
	p := NewPad(id, map[string]setting.Value{
		"alpha":  setting.F64Value(1),
		"width":  setting.I32Value(0),
		"height": setting.I32Value(0),
		"xpos":   setting.I32Value(0),
		"ypos":   setting.I32Value(0),
		"zorder": setting.I32Value(1),
	})
	c.pads[id] = p
	c.order = append(c.order, id)
	return p
}

// ReleaseSinkPad removes a previously requested pad.
func (c *Compositor) ReleaseSinkPad(p *Pad) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pads, p.ID())
	for i, id := range c.order {
		if id == p.ID() {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SinkPads implements Aggregator.
func (c *Compositor) SinkPads() []PadProperty {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PadProperty, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.pads[id])
	}
	return out
}

// NonBasePlatePads returns every sink pad other than sink_0.
func (c *Compositor) NonBasePlatePads() []*Pad {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Pad, 0, len(c.order))
	for _, id := range c.order {
		if id == "sink_0" {
			continue
		}
		out = append(out, c.pads[id])
	}
	return out
}

// SetSamplesSelectedCallback installs the per-frame hook; emit-signals in
// the reference is implied by installing a non-nil callback.
func (c *Compositor) SetSamplesSelectedCallback(fn SamplesSelectedFunc) {
	c.mu.Lock()
	c.cb = fn
	c.mu.Unlock()
}

// Run starts the fixed-rate output clock that calls the samples-selected
// callback once per frame, until ctx is cancelled.
func (c *Compositor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	interval := time.Second / time.Duration(c.fps)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				c.mu.Lock()
				cb := c.cb
				c.mu.Unlock()
				if cb != nil {
					cb(t)
				}
			}
		}
	}()
}

// Stop halts the output clock and waits for it to exit.
func (c *Compositor) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Push delivers a sample to the named sink pad's single-slot buffer.
func (c *Compositor) Push(padID string, s media.Sample) {
	c.mu.Lock()
	p := c.pads[padID]
	c.mu.Unlock()
	if p != nil {
		p.Push(s)
	}
}
