/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package graph provides the two capabilities the mixer core depends on --
// PadProperty and Aggregator -- plus a reference, in-process implementation
// of the named elements a real media framework would supply (compositor,
// audiomixer, appsrc/appsink, videotestsrc/audiotestsrc/imagefreeze,
// capsfilter, queue, audioconvert, audioresample, videoconvert, level,
// decodebin).
//
// No Go binding exists in this ecosystem for the real framework those
// element names come from, so this package stands in for it: it is driven
// by goroutines and channels rather than C callbacks, but it honors the
// same element contracts the mixer core is written against, so a
// deployment with a real binding can satisfy PadProperty/Aggregator against
// that framework instead, without touching the mixer logic.
package graph

import (
	"time"

	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/setting"
)

// PadProperty is a named, typed property bag exposed by a pad or an
// element, introspectable by name -- the abstraction PropertyController
// drives.
type PadProperty interface {
	ID() string
	Get(name string) (setting.Value, error)
	Set(name string, v setting.Value) error
	TypeOf(name string) (setting.Kind, error)
}

// Aggregator is the capability exposed by mixer-style elements: iterate
// sink pads. Peeking whether a pad has a sample ready is done on the
// concrete *Pad (see SampleSource), not through this interface. The
// samples-selected callback registration lives on the concrete
// element types (Compositor, AudioMixer) since its signature differs
// between the video and audio sides (the video callback also owns the base
// plate).
type Aggregator interface {
	SinkPads() []PadProperty
}

// State mirrors the coarse element state the mixer cares about: whether an
// element is actively producing/consuming or torn down.
type State int

const (
	StateNull State = iota
	StatePlaying
)

// SampleSource is implemented by anything that can be peeked for a queued
// sample without removing it; in this package that is *Pad, the aggregator
// sink pad.
type SampleSource interface {
	Peek() (media.Sample, bool)
}

// clockNow is the clock DecodeBin stamps decoded frames with; it is a
// variable so a test can substitute a deterministic clock. The compositor
// and audiomixer output clocks run on real tickers; nothing in this package
// calls time.Now() directly outside of it.
var clockNow = time.Now
