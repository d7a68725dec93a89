/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"time"

	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/schedule"
	"github.com/friendsincode/auteur/internal/setting"
	"github.com/friendsincode/auteur/internal/telemetry"
)

// startPipeline runs at cue time: it starts the compositor/audiomixer
// output clocks, wires every already-connected slot's sub-graph (slots
// connected before Start only had their pads allocated), forwards the
// output producers, and primes the fallback-image decode if one is
// configured.
func (m *Mixer) startPipeline() error {
	sampleRate, err := m.registry.Get("sample-rate").AsI32()
	if err != nil {
		return pipelineErrorf("start", "reading sample-rate: %w", err)
	}

	for id, s := range m.slots {
		if err := s.BuildSubgraph(m.videoMixer, m.audioMixer, sampleRate); err != nil {
			return pipelineErrorf("start", "wiring slot %s: %w", id, err)
		}
	}

	if loc, err := m.registry.Get("fallback-image").AsStr(); err == nil && loc != "" {
		if err := m.fallbackDecode.Decode(loc); err != nil {
			m.log.Warn().Err(err).Str("location", loc).Msg("fallback image decode failed")
		}
	}

	m.basePlateTimeout = time.Time{}
	m.showingBasePlate = false
	m.lastVideoPTS = time.Time{}
	m.lastAudioPTS = time.Time{}

	m.videoMixer.Run(m.ctx)
	m.audioMixer.Run(m.ctx)

	m.videoOut.Forward()
	m.audioOut.Forward()

	m.log.Info().Msg("pipeline started")
	return nil
}

// teardownPipeline runs on Stop: it halts the output clocks, tears
// down every connected slot's sub-graph, and sends EOS downstream.
func (m *Mixer) teardownPipeline() {
	m.videoMixer.Stop()
	m.audioMixer.Stop()

	for _, s := range m.slots {
		s.Teardown(m.videoMixer, m.audioMixer)
	}

	m.videoOut.EOS()
	m.audioOut.EOS()

	m.log.Info().Msg("pipeline torn down")
}

// fallbackTimeout reads the fallback-timeout setting as a duration.
func (m *Mixer) fallbackTimeout() time.Duration {
	ms, err := m.registry.Get("fallback-timeout").AsI32()
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// onVideoSamplesSelected is the compositor's per-frame hook: it
// determines whether any real input is live, toggles the base plate's
// visibility and fallback-image substitution accordingly, advances every
// video control point, propagates width/height onto the caps and base
// plate, and delivers one composed sample to the video output producer.
func (m *Mixer) onVideoSamplesSelected(pts time.Time) {
	start := time.Now()
	defer func() {
		telemetry.SamplesSelectedDuration.WithLabelValues(m.ID, "video").Observe(time.Since(start).Seconds())
	}()

	anyLive := false
	var liveSample media.Sample
	for _, pp := range m.videoMixer.NonBasePlatePads() {
		if s, ok := pp.Peek(); ok {
			anyLive = true
			liveSample = s
		}
		pp.Pop()
	}

	basePlate := m.videoMixer.BasePlatePad()
	if anyLive {
		if m.showingBasePlate {
			_ = basePlate.Set("alpha", setting.F64Value(0.0))
			m.showingBasePlate = false
		}
		m.basePlateTimeout = time.Time{}
	} else {
		if m.basePlateTimeout.IsZero() {
			m.basePlateTimeout = pts
		} else if !m.showingBasePlate && pts.Sub(m.basePlateTimeout) > m.fallbackTimeout() {
			_ = basePlate.Set("alpha", setting.F64Value(1.0))
			m.showingBasePlate = true
		}
	}

	duration := time.Duration(0)
	durationKnown := false
	if !m.lastVideoPTS.IsZero() {
		duration = pts.Sub(m.lastVideoPTS)
		durationKnown = true
	}
	m.lastVideoPTS = pts

	if err := m.mixerControllers.Synchronize(pts, duration, durationKnown); err != nil {
		m.log.Error().Err(err).Msg("video output control synchronize failed")
	}
	if err := m.slotVideoControllers.Synchronize(pts, duration, durationKnown); err != nil {
		m.log.Error().Err(err).Msg("video slot control synchronize failed")
	}

	width, _ := m.registry.Get("width").AsI32()
	height, _ := m.registry.Get("height").AsI32()
	m.videoCaps.Set("width", setting.I32Value(width))
	m.videoCaps.Set("height", setting.I32Value(height))
	_ = basePlate.Set("width", setting.I32Value(width))
	_ = basePlate.Set("height", setting.I32Value(height))

	out := liveSample
	if !anyLive {
		if m.showingBasePlate {
			if frame, ok := m.fallbackFreeze.Sample(pts); ok {
				out = frame
			} else {
				out = m.basePlateSrc.Sample(pts, int(width), int(height))
			}
		} else {
			out = m.basePlateSrc.Sample(pts, int(width), int(height))
		}
	}

	if err := m.videoOut.Deliver(out); err != nil {
		m.log.Warn().Err(err).Msg("delivering composed video sample")
	}
}

// onAudioSamplesSelected is the audiomixer's per-buffer hook: it
// advances every audio control point (slot volumes) and delivers one
// silence-or-mixed sample to the audio output producer. Real sample-level
// mixing arithmetic belongs to a real media framework; this reference
// implementation tracks topology and timing only.
func (m *Mixer) onAudioSamplesSelected(pts time.Time) {
	start := time.Now()
	defer func() {
		telemetry.SamplesSelectedDuration.WithLabelValues(m.ID, "audio").Observe(time.Since(start).Seconds())
	}()

	duration := time.Duration(0)
	durationKnown := false
	if !m.lastAudioPTS.IsZero() {
		duration = pts.Sub(m.lastAudioPTS)
		durationKnown = true
	}
	m.lastAudioPTS = pts

	if err := m.slotAudioControllers.Synchronize(pts, duration, durationKnown); err != nil {
		m.log.Error().Err(err).Msg("audio slot control synchronize failed")
	}

	out := media.Sample{Timestamp: pts, Duration: audioTickInterval}
	found := false
	for _, pp := range m.audioMixer.Pads() {
		if s, ok := pp.Peek(); ok {
			out = s
			found = true
		}
		pp.Pop()
	}
	if !found {
		out.Data = make([]byte, 0)
	}

	if err := m.audioOut.Deliver(out); err != nil {
		m.log.Warn().Err(err).Msg("delivering composed audio sample")
	}
}

// onCueFire runs when the armed cue timer expires: it builds and starts
// the pipeline and transitions Starting -> Started. A construction failure
// shortcuts straight to Stopped and reports an error to the node registry.
func (m *Mixer) onCueFire() {
	if err := m.startPipeline(); err != nil {
		m.log.Error().Err(err).Msg("pipeline construction failed")
		m.failAndStop(err)
		return
	}
	if err := m.fsm.Transition(schedule.Started); err != nil {
		m.log.Error().Err(err).Msg("transition to started failed")
	}
}

// onEndFire runs when the armed end timer expires: it stops the node.
func (m *Mixer) onEndFire() {
	m.doStop()
}

// failAndStop handles a pipeline construction or bus error: it tears
// down whatever was built and shortcuts straight to Stopped, regardless of
// the state the error was raised from.
func (m *Mixer) failAndStop(err error) {
	m.writeDebugArtifact(err)
	m.teardownPipeline()
	_ = m.fsm.Transition(schedule.Stopped)
	if m.sink != nil {
		m.sink.NotifyError(m.ID, err)
	}
	m.cancel()
}

// doStop runs the terminal shutdown path for an explicit Stop request or an
// elapsed end_time. From Started it passes through Stopping first, so
// a concurrent GetNodeInfo never observes an undefined transient state;
// Initial/Starting shortcut directly to Stopped since no pipeline exists yet.
func (m *Mixer) doStop() {
	if m.fsm.State() == schedule.Started {
		_ = m.fsm.Transition(schedule.Stopping)
	}
	m.teardownPipeline()
	_ = m.fsm.Transition(schedule.Stopped)
	if m.sink != nil {
		m.sink.NotifyStopped(m.ID, m.videoOut, m.audioOut)
	}
	m.cancel()
}
