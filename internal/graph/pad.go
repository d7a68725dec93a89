/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package graph

import (
	"fmt"
	"sync"

	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/setting"
)

// propEntry holds one named property of a Pad: its Kind, fixed at pad
// creation (mirroring a media framework's introspectable element
// properties), and its current value.
type propEntry struct {
	kind  setting.Kind
	value setting.Value
}

// Pad is the reference PadProperty implementation: a named bag of typed
// properties plus (for sink pads feeding an Aggregator) a single-slot sample
// buffer that can be peeked without being consumed, and popped by the
// element's tick loop.
type Pad struct {
	id string

	mu    sync.Mutex
	props map[string]*propEntry

	pending *media.Sample
}

// NewPad creates a pad with the given initial properties.
func NewPad(id string, defaults map[string]setting.Value) *Pad {
	props := make(map[string]*propEntry, len(defaults))
	for name, v := range defaults {
		props[name] = &propEntry{kind: v.Kind, value: v}
	}
	return &Pad{id: id, props: props}
}

func (p *Pad) ID() string { return p.id }

func (p *Pad) Get(name string) (setting.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.props[name]
	if !ok {
		return setting.Value{}, fmt.Errorf("graph: pad %q has no property %q", p.id, name)
	}
	return e.value, nil
}

func (p *Pad) Set(name string, v setting.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.props[name]
	if !ok {
		return fmt.Errorf("graph: pad %q has no property %q", p.id, name)
	}
	if e.kind != v.Kind {
		return fmt.Errorf("graph: pad %q property %q expects kind %s, got %s", p.id, name, e.kind, v.Kind)
	}
	e.value = v
	return nil
}

func (p *Pad) TypeOf(name string) (setting.Kind, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.props[name]
	if !ok {
		return 0, fmt.Errorf("graph: pad %q has no property %q", p.id, name)
	}
	return e.kind, nil
}

// Push installs a sample in the pad's single-slot buffer, replacing
// whatever was pending (the reference queue elements this pad sits behind
// are leaky-downstream, so the aggregator only ever cares about the latest
// sample).
func (p *Pad) Push(s media.Sample) {
	p.mu.Lock()
	p.pending = &s
	p.mu.Unlock()
}

// Peek reports whether a sample is queued, without consuming it.
func (p *Pad) Peek() (media.Sample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return media.Sample{}, false
	}
	return *p.pending, true
}

// Pop consumes and returns the pending sample, if any.
func (p *Pad) Pop() (media.Sample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return media.Sample{}, false
	}
	s := *p.pending
	p.pending = nil
	return s, true
}
