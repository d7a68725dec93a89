/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/setting"
)

// Sink is a downstream function a source-side element pushes samples into;
// it models a linked pad-to-pad connection.
type Sink func(media.Sample) error

// Stage is a single pipeline processing element sitting between a source
// and a sink. Elements that do not change sample content in this in-process
// simulation (audioconvert, audioresample, videoconvert, level) still
// exist as named stages so the graph's topology mirrors a real pipeline
// exactly; a deployment with a real media framework backs these with
// actual conversion/metering.
type Stage struct {
	Name string
}

// Process is the identity transform: format/rate conversion and level
// metering are the media framework's job, not this package's.
func (s Stage) Process(in media.Sample) media.Sample { return in }

func NewAudioConvert() Stage  { return Stage{Name: "audioconvert"} }
func NewAudioResample() Stage { return Stage{Name: "audioresample"} }
func NewVideoConvert() Stage  { return Stage{Name: "videoconvert"} }
func NewLevel() Stage         { return Stage{Name: "level"} }

// CapsFilter holds a set of negotiated caps fields, settable/gettable like
// any other pad property. The mixer applies width/height control points to
// the output video CapsFilter's caps.
type CapsFilter struct {
	mu   sync.Mutex
	caps map[string]setting.Value
}

func NewCapsFilter(initial map[string]setting.Value) *CapsFilter {
	caps := make(map[string]setting.Value, len(initial))
	for k, v := range initial {
		caps[k] = v
	}
	return &CapsFilter{caps: caps}
}

func (c *CapsFilter) Get(field string) (setting.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.caps[field]
	if !ok {
		return setting.Value{}, fmt.Errorf("graph: capsfilter has no field %q", field)
	}
	return v, nil
}

func (c *CapsFilter) Set(field string, v setting.Value) {
	c.mu.Lock()
	c.caps[field] = v
	c.mu.Unlock()
}

// Snapshot returns a copy of every negotiated field.
func (c *CapsFilter) Snapshot() map[string]setting.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]setting.Value, len(c.caps))
	for k, v := range c.caps {
		out[k] = v
	}
	return out
}

// Queue is a bounded, leaky-downstream buffering stage: when full, the
// oldest queued sample is dropped in favor of the newest.
type Queue struct {
	mu      sync.Mutex
	maxSize int
	buf     []media.Sample
}

func NewQueue(maxSize int) *Queue {
	return &Queue{maxSize: maxSize}
}

// Push enqueues a sample, dropping the oldest if the queue is full.
func (q *Queue) Push(s media.Sample) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) >= q.maxSize {
		q.buf = q.buf[1:]
	}
	q.buf = append(q.buf, s)
}

// Pop dequeues the oldest sample, if any.
func (q *Queue) Pop() (media.Sample, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return media.Sample{}, false
	}
	s := q.buf[0]
	q.buf = q.buf[1:]
	return s, true
}

// VideoTestSrc is the reference `videotestsrc` element: a live, pattern-
// generating video source used for the synthetic base plate.
type VideoTestSrc struct {
	Pattern string
	IsLive  bool
}

func NewVideoTestSrc(pattern string) *VideoTestSrc {
	return &VideoTestSrc{Pattern: pattern, IsLive: true}
}

// Sample produces one synthetic frame stamped at pts. Content is a stand-in
// (pixel generation belongs to the real media framework); only size and
// timing are modeled.
func (v *VideoTestSrc) Sample(pts time.Time, width, height int) media.Sample {
	return media.Sample{Data: make([]byte, width*height), Timestamp: pts, Duration: time.Second / 30}
}

// AudioTestSrc is the reference `audiotestsrc` element.
type AudioTestSrc struct {
	Volume float64
	IsLive bool
}

func NewAudioTestSrc() *AudioTestSrc {
	return &AudioTestSrc{IsLive: true}
}

func (a *AudioTestSrc) Sample(pts time.Time, frames int) media.Sample {
	return media.Sample{Data: make([]byte, frames*4), Timestamp: pts, Duration: 20 * time.Millisecond}
}

// ImageFreeze is the reference `imagefreeze` element, fed by a decodebin
// whose pad-added callback links into it. The callback holds only a weak
// (non-owning) reference to the freeze element: once the owning bin is torn
// down, later pad-added events targeting it are no-ops rather than
// dangling writes.
type ImageFreeze struct {
	mu    sync.Mutex
	frame *media.Sample
	live  bool
}

func NewImageFreeze() *ImageFreeze {
	return &ImageFreeze{live: true}
}

// SetFrame installs the frozen frame, called from decodebin's pad-added
// handler once the source image has been decoded.
func (f *ImageFreeze) SetFrame(s media.Sample) {
	f.mu.Lock()
	f.frame = &s
	f.mu.Unlock()
}

func (f *ImageFreeze) Sample(pts time.Time) (media.Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frame == nil {
		return media.Sample{}, false
	}
	s := *f.frame
	s.Timestamp = pts
	return s, true
}

// WeakImageFreeze is a non-owning handle to an ImageFreeze, used by
// DecodeBin's pad-added callback so it does not extend the bin's lifetime.
type WeakImageFreeze struct {
	mu     sync.Mutex
	target *ImageFreeze
}

func NewWeakImageFreeze(f *ImageFreeze) *WeakImageFreeze {
	return &WeakImageFreeze{target: f}
}

// Invalidate severs the reference, called when the owning bin is torn
// down.
func (w *WeakImageFreeze) Invalidate() {
	w.mu.Lock()
	w.target = nil
	w.mu.Unlock()
}

// Upgrade returns the target and true, or false if it has been invalidated.
func (w *WeakImageFreeze) Upgrade() (*ImageFreeze, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.target == nil {
		return nil, false
	}
	return w.target, true
}

// DecodeBin is the reference `decodebin` element: decodes a fallback image
// file and, on completion, invokes its pad-added callback with the decoded
// frame.
type DecodeBin struct {
	onPadAdded func(media.Sample)
}

func NewDecodeBin(onPadAdded func(media.Sample)) *DecodeBin {
	return &DecodeBin{onPadAdded: onPadAdded}
}

// Decode simulates decoding location into a single freeze-able frame.
func (d *DecodeBin) Decode(location string) error {
	if location == "" {
		return fmt.Errorf("graph: decodebin: empty location")
	}
	if d.onPadAdded != nil {
		d.onPadAdded(media.Sample{Data: []byte(location), Timestamp: clockNow()})
	}
	return nil
}

// AppSrc is the reference `appsrc` element: the consumer-side endpoint a
// StreamProducer pushes samples into. It carries only a name, the last
// latency set on it, and the downstream sink it forwards samples to.
type AppSrc struct {
	name string

	mu      sync.Mutex
	latency time.Duration
	sink    Sink
}

// NewAppSrc creates an appsrc named name, forwarding pushed samples to
// sink once one is set via Link.
func NewAppSrc(name string) *AppSrc {
	return &AppSrc{name: name}
}

func (a *AppSrc) Name() string { return a.name }

// Link installs the downstream sink this appsrc feeds.
func (a *AppSrc) Link(sink Sink) {
	a.mu.Lock()
	a.sink = sink
	a.mu.Unlock()
}

// PushSample implements fanout.ConsumerSource.
func (a *AppSrc) PushSample(s media.Sample) error {
	a.mu.Lock()
	sink := a.sink
	a.mu.Unlock()
	if sink == nil {
		return nil
	}
	return sink(s)
}

// PushEOS implements fanout.ConsumerSource. The reference simulation has no
// separate EOS propagation path downstream of the appsrc, so this is a
// no-op.
func (a *AppSrc) PushEOS() error { return nil }

// SetLatency implements fanout.ConsumerSource.
func (a *AppSrc) SetLatency(d time.Duration) error {
	a.mu.Lock()
	a.latency = d
	a.mu.Unlock()
	return nil
}

// AppSink is the reference `appsink` element: the named producer-side
// endpoint of the mixer output chain. It carries only its name; the
// mixer's samples-selected callbacks hand composed samples straight to the
// output fanout.Producer.
type AppSink struct {
	name string
}

func NewAppSink(name string) *AppSink {
	return &AppSink{name: name}
}

func (s *AppSink) Name() string { return s.name }
