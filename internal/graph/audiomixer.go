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

// AudioMixer is the reference implementation of the `audiomixer` element: an
// audio Aggregator with per-pad volume, ticking at a fixed buffer interval.
type AudioMixer struct {
	id string

	mu       sync.Mutex
	pads     map[string]*Pad
	order    []string
	interval time.Duration
	cb       SamplesSelectedFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAudioMixer creates an audio mixer that emits samples-selected once
// per interval (typically one audio buffer's worth of time).
func NewAudioMixer(id string, interval time.Duration) *AudioMixer {
	return &AudioMixer{id: id, pads: make(map[string]*Pad), interval: interval}
}

// RequestSinkPad allocates a new sink pad with a `volume` property.
func (m *AudioMixer) RequestSinkPad() *Pad {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "sink_" + uuid.NewString()[:8]
	p := NewPad(id, map[string]setting.Value{
		"volume": setting.F64Value(1.0),
	})
	m.pads[id] = p
	m.order = append(m.order, id)
	return p
}

// ReleaseSinkPad removes a previously requested pad.
func (m *AudioMixer) ReleaseSinkPad(p *Pad) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pads, p.ID())
	for i, id := range m.order {
		if id == p.ID() {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Pads returns every sink pad as its concrete type, for callers that need
// the pad's sample buffer rather than just its property bag.
func (m *AudioMixer) Pads() []*Pad {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Pad, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.pads[id])
	}
	return out
}

// SinkPads implements Aggregator.
func (m *AudioMixer) SinkPads() []PadProperty {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PadProperty, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.pads[id])
	}
	return out
}

// SetSamplesSelectedCallback installs the per-buffer hook.
func (m *AudioMixer) SetSamplesSelectedCallback(fn SamplesSelectedFunc) {
	m.mu.Lock()
	m.cb = fn
	m.mu.Unlock()
}

// Run starts the fixed-rate callback clock until ctx is cancelled.
func (m *AudioMixer) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				m.mu.Lock()
				cb := m.cb
				m.mu.Unlock()
				if cb != nil {
					cb(t)
				}
			}
		}
	}()
}

// Stop halts the callback clock and waits for it to exit.
func (m *AudioMixer) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Push delivers a sample to the named sink pad.
func (m *AudioMixer) Push(padID string, s media.Sample) {
	m.mu.Lock()
	p := m.pads[padID]
	m.mu.Unlock()
	if p != nil {
		p.Push(s)
	}
}
