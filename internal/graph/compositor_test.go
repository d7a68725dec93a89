/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package graph

import (
	"context"
	"testing"
	"time"

	"github.com/friendsincode/auteur/internal/media"
)

func TestCompositorReservesBasePlate(t *testing.T) {
	c := NewCompositor("mix-video", 30)
	base := c.BasePlatePad()
	if base == nil || base.ID() != "sink_0" {
		t.Fatalf("expected a reserved sink_0 base-plate pad, got %v", base)
	}
	alpha, _ := base.Get("alpha")
	if alpha.F64 != 0 {
		t.Fatalf("base plate default alpha = %v, want 0", alpha.F64)
	}
}

func TestCompositorRequestAndReleaseSinkPad(t *testing.T) {
	c := NewCompositor("mix-video", 30)
	p := c.RequestSinkPad()

	found := false
	for _, pp := range c.SinkPads() {
		if pp.ID() == p.ID() {
			found = true
		}
	}
	if !found {
		t.Fatal("requested pad not present in SinkPads()")
	}

	c.ReleaseSinkPad(p)
	for _, pp := range c.SinkPads() {
		if pp.ID() == p.ID() {
			t.Fatal("released pad still present in SinkPads()")
		}
	}
}

func TestCompositorNonBasePlatePadsExcludesSinkZero(t *testing.T) {
	c := NewCompositor("mix-video", 30)
	c.RequestSinkPad()
	c.RequestSinkPad()

	pads := c.NonBasePlatePads()
	if len(pads) != 2 {
		t.Fatalf("NonBasePlatePads() returned %d pads, want 2", len(pads))
	}
	for _, p := range pads {
		if p.ID() == "sink_0" {
			t.Fatal("NonBasePlatePads() must not include the base plate")
		}
	}
}

func TestCompositorSamplesSelectedCallbackInvoked(t *testing.T) {
	c := NewCompositor("mix-video", 30)

	calls := make(chan time.Time, 4)
	c.SetSamplesSelectedCallback(func(pts time.Time) { calls <- pts })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Run(ctx)
	defer c.Stop()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("samples-selected callback was never invoked")
	}
}

func TestCompositorPushDeliversToNamedPad(t *testing.T) {
	c := NewCompositor("mix-video", 30)
	p := c.RequestSinkPad()

	c.Push(p.ID(), media.Sample{Data: []byte{9}})
	s, ok := p.Peek()
	if !ok || s.Data[0] != 9 {
		t.Fatal("Push did not deliver to the named pad")
	}
}

func TestCompositorPushUnknownPadIsNoop(t *testing.T) {
	c := NewCompositor("mix-video", 30)
	// Must not panic.
	c.Push("sink_does_not_exist", media.Sample{})
}

func TestCompositorSetBackground(t *testing.T) {
	c := NewCompositor("mix-video", 30)
	c.SetBackground("black")
	if c.background != "black" {
		t.Fatalf("background = %q, want black", c.background)
	}
}
