/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mixer implements the Mixer node: the pipeline builder
// that wires slots into a compositor and an audiomixer, and the
// single-threaded actor that exposes Connect/Disconnect/AddControlPoint/
// Start/Schedule/Stop/GetNodeInfo/GetProducer as its message surface.
package mixer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/friendsincode/auteur/internal/control"
	"github.com/friendsincode/auteur/internal/fanout"
	"github.com/friendsincode/auteur/internal/graph"
	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/schedule"
	"github.com/friendsincode/auteur/internal/setting"
	"github.com/friendsincode/auteur/internal/slot"
	"github.com/friendsincode/auteur/internal/telemetry"
)

var tracer = telemetry.Tracer("github.com/friendsincode/auteur/internal/mixer")

const (
	videoFPS          = 30
	audioTickInterval = 20 * time.Millisecond
	cmdQueueDepth     = 32
)

// Mixer is one mixer node. Every field below is touched only from the
// actor goroutine running Run, except for the command channel itself, the
// two output Producers (which are safe for concurrent use on their own
// terms, per package fanout), and the base-plate and last-pts fields:
// once startPipeline has started the output clocks, basePlateTimeout,
// showingBasePlate and lastVideoPTS are used by the video samples-selected
// callback on the compositor's goroutine, and lastAudioPTS by the audio one
// on the audiomixer's goroutine. The controller maps, settings and pads
// those callbacks drive carry their own mutexes.
type Mixer struct {
	ID  string
	log zerolog.Logger

	registry *setting.Registry
	fsm      *schedule.FSM

	videoOut *fanout.Producer
	audioOut *fanout.Producer

	videoMixer *graph.Compositor
	audioMixer *graph.AudioMixer
	videoCaps  *graph.CapsFilter
	audioCaps  *graph.CapsFilter
	videoSink  *graph.AppSink
	audioSink  *graph.AppSink

	basePlateSrc     *graph.VideoTestSrc
	fallbackFreeze   *graph.ImageFreeze
	fallbackDecode   *graph.DecodeBin
	fallbackWeak     *graph.WeakImageFreeze
	basePlateTimeout time.Time
	showingBasePlate bool
	lastVideoPTS     time.Time
	lastAudioPTS     time.Time

	mixerControllers     *control.Map
	slotVideoControllers *control.Map
	slotAudioControllers *control.Map

	slots map[string]*slot.Slot

	sink NotificationSink

	cmds   chan func()
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Mixer in the Initial state with the standard default
// settings table.
func New(id string, log zerolog.Logger, sink NotificationSink) *Mixer {
	return NewWithSettings(id, log, sink, setting.DefaultMixerSettings())
}

// NewWithSettings creates a Mixer whose settings table was seeded by the
// caller (operator defaults from the node's config, typically). The
// processing graph (compositor, audiomixer, caps, base plate) is built
// immediately, since ConsumerSlot pad allocation must succeed at Connect
// time regardless of mixer state; only starting the output clocks and
// wiring already-connected slots' sub-graphs waits for Start's cue time.
func NewWithSettings(id string, log zerolog.Logger, sink NotificationSink, registry *setting.Registry) *Mixer {
	if registry == nil {
		registry = setting.DefaultMixerSettings()
	}
	width, _ := registry.Get("width").AsI32()
	height, _ := registry.Get("height").AsI32()
	sampleRate, _ := registry.Get("sample-rate").AsI32()

	videoMixer := graph.NewCompositor(id+"-video", videoFPS)
	videoMixer.SetBackground("black")

	mx := &Mixer{
		ID:       id,
		log:      log.With().Str("mixer", id).Logger(),
		registry: registry,
		fsm:      schedule.NewFSM(),

		videoOut: fanout.New(id+"-video-out", log, nil),
		audioOut: fanout.New(id+"-audio-out", log, nil),

		videoMixer: videoMixer,
		audioMixer: graph.NewAudioMixer(id+"-audio", audioTickInterval),
		videoCaps: graph.NewCapsFilter(map[string]setting.Value{
			"format":         setting.StrValue("AYUV"),
			"colorimetry":    setting.StrValue("bt601"),
			"framerate-num":  setting.I32Value(videoFPS),
			"framerate-den":  setting.I32Value(1),
			"par-num":        setting.I32Value(1),
			"par-den":        setting.I32Value(1),
			"chroma-site":    setting.StrValue("jpeg"),
			"interlace-mode": setting.StrValue("progressive"),
			"width":          setting.I32Value(width),
			"height":         setting.I32Value(height),
		}),
		audioCaps: graph.NewCapsFilter(map[string]setting.Value{
			"channels": setting.I32Value(2),
			"format":   setting.StrValue("S16LE"),
			"rate":     setting.I32Value(sampleRate),
		}),
		videoSink: graph.NewAppSink(id + "-video-appsink"),
		audioSink: graph.NewAppSink(id + "-audio-appsink"),

		basePlateSrc: graph.NewVideoTestSrc("black"),

		mixerControllers:     control.NewMap(),
		slotVideoControllers: control.NewMap(),
		slotAudioControllers: control.NewMap(),

		slots: make(map[string]*slot.Slot),
		sink:  sink,

		cmds: make(chan func(), cmdQueueDepth),
	}
	mx.fallbackFreeze = graph.NewImageFreeze()
	mx.fallbackDecode = graph.NewDecodeBin(func(s media.Sample) {
		if freeze, ok := mx.fallbackWeak.Upgrade(); ok {
			freeze.SetFrame(s)
		}
	})
	mx.fallbackWeak = graph.NewWeakImageFreeze(mx.fallbackFreeze)

	mx.videoMixer.SetSamplesSelectedCallback(mx.onVideoSamplesSelected)
	mx.audioMixer.SetSamplesSelectedCallback(mx.onAudioSamplesSelected)

	mx.ctx, mx.cancel = context.WithCancel(context.Background())
	return mx
}

// Run drives the actor's command loop and cue/end-time scheduling until
// ctx is cancelled. It must be started exactly once, typically from the
// goroutine that owns this Mixer's lifecycle in the node registry. The
// actor's own internal context (armed at construction, independent of ctx)
// is always cancelled on exit, so any call() still in flight unblocks.
func (m *Mixer) Run(ctx context.Context) {
	defer m.cancel()

	// rearm recomputes the cue/end timers from the FSM's current schedule,
	// stopping and replacing any timer whose fire time has changed. Called
	// after every command and every timer fire, since Start/Schedule/Stop
	// may have altered the schedule -- a reschedule while a cue timer is
	// already pending must re-arm it to the new time.
	var cueTimer, endTimer *time.Timer
	var armedCue, armedEnd time.Time
	rearm := func() {
		if cueTime, ok := m.fsm.CueTime(); ok && m.fsm.State() == schedule.Starting {
			if cueTimer == nil || !armedCue.Equal(cueTime) {
				if cueTimer != nil {
					cueTimer.Stop()
				}
				cueTimer = time.NewTimer(time.Until(cueTime))
				armedCue = cueTime
			}
		} else if cueTimer != nil {
			cueTimer.Stop()
			cueTimer = nil
		}

		if end := m.fsm.EndTime(); end != nil && m.fsm.State() == schedule.Started {
			if endTimer == nil || !armedEnd.Equal(*end) {
				if endTimer != nil {
					endTimer.Stop()
				}
				endTimer = time.NewTimer(time.Until(*end))
				armedEnd = *end
			}
		} else if endTimer != nil {
			endTimer.Stop()
			endTimer = nil
		}
	}
	defer func() {
		if cueTimer != nil {
			cueTimer.Stop()
		}
		if endTimer != nil {
			endTimer.Stop()
		}
	}()

	for {
		var cueC, endC <-chan time.Time
		if cueTimer != nil {
			cueC = cueTimer.C
		}
		if endTimer != nil {
			endC = endTimer.C
		}

		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-m.ctx.Done():
			m.shutdown()
			return
		case fn := <-m.cmds:
			fn()
			rearm()
		case <-cueC:
			cueTimer = nil
			m.onCueFire()
			rearm()
		case <-endC:
			endTimer = nil
			m.onEndFire()
			rearm()
		}
	}
}

// call submits fn to the actor loop and blocks for its result. Safe to
// call from any goroutine; fn always runs on the actor goroutine.
func (m *Mixer) call(fn func() error) error {
	done := make(chan error, 1)
	select {
	case m.cmds <- func() { done <- fn() }:
	case <-m.ctx.Done():
		return stateErrorf("call", "mixer %s is shut down", m.ID)
	}
	select {
	case err := <-done:
		return err
	case <-m.ctx.Done():
		return stateErrorf("call", "mixer %s is shut down", m.ID)
	}
}

// callTraced wraps call in a span named "mixer.<op>", recording the
// outcome and, on error, the failure -- one span per request handled on the
// actor goroutine.
func (m *Mixer) callTraced(ctx context.Context, op string, fn func() error) error {
	_, span := tracer.Start(ctx, "mixer."+op, trace.WithAttributes(
		attribute.String("mixer.id", m.ID),
	))
	defer span.End()

	err := m.call(fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (m *Mixer) shutdown() {
	if m.videoMixer != nil {
		m.videoMixer.Stop()
	}
	if m.audioMixer != nil {
		m.audioMixer.Stop()
	}
	m.log.Info().Msg("mixer actor shut down")
}
