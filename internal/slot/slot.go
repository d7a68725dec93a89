/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package slot implements ConsumerSlot: one input binding on a Mixer,
// wrapping an upstream video producer and audio producer, their dedicated
// source elements, the processing sub-graphs feeding the compositor and
// audiomixer, and the assigned mixer pads.
package slot

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/friendsincode/auteur/internal/fanout"
	"github.com/friendsincode/auteur/internal/graph"
	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/setting"
)

// queueDepth bounds every leaky-downstream queue in a slot's sub-graphs.
const queueDepth = 8

// Slot is one ConsumerSlot.
type Slot struct {
	ID string

	VideoProducer *fanout.Producer
	AudioProducer *fanout.Producer

	VideoAppSrc *graph.AppSrc
	AudioAppSrc *graph.AppSrc

	VideoPad *graph.Pad
	AudioPad *graph.Pad

	Volume float64

	videoQueue      *graph.Queue
	audioConvert    graph.Stage
	audioResample   graph.Stage
	audioCapsFilter *graph.CapsFilter
	audioQueue      *graph.Queue

	connected bool
	log       zerolog.Logger
}

// New allocates pads on the given mixer elements and returns a Slot ready
// to be connected. Pad allocation always happens at Connect time, even if
// the mixer is not yet Started.
func New(id string, videoProducer, audioProducer *fanout.Producer, videoMixer *graph.Compositor, audioMixer *graph.AudioMixer, log zerolog.Logger) *Slot {
	return &Slot{
		ID:            id,
		VideoProducer: videoProducer,
		AudioProducer: audioProducer,
		VideoAppSrc:   graph.NewAppSrc("mixer-slot-video-appsrc-" + id),
		AudioAppSrc:   graph.NewAppSrc("mixer-slot-audio-appsrc-" + id),
		VideoPad:      videoMixer.RequestSinkPad(),
		AudioPad:      audioMixer.RequestSinkPad(),
		Volume:        1.0,
		log:           log.With().Str("slot", id).Logger(),
	}
}

// BuildSubgraph wires the slot's processing chains and attaches its source
// elements as consumers of the upstream producers. Called either
// immediately (Connect while Started) or once per slot from the mixer's
// start_pipeline.
//
// Video sub-graph: source -> queue -> mixer pad.
// Audio sub-graph: source -> audioconvert -> audioresample ->
// capsfilter(2ch, S16LE, sampleRate) -> queue -> mixer pad.
func (s *Slot) BuildSubgraph(videoMixer *graph.Compositor, audioMixer *graph.AudioMixer, sampleRate int32) error {
	if s.connected {
		return fmt.Errorf("slot: %s: subgraph already built", s.ID)
	}

	s.videoQueue = graph.NewQueue(queueDepth)
	s.audioConvert = graph.NewAudioConvert()
	s.audioResample = graph.NewAudioResample()
	s.audioCapsFilter = graph.NewCapsFilter(map[string]setting.Value{
		"channels": setting.I32Value(2),
		"format":   setting.StrValue("S16LE"),
		"rate":     setting.I32Value(sampleRate),
	})
	s.audioQueue = graph.NewQueue(queueDepth)

	videoPadID := s.VideoPad.ID()
	s.VideoAppSrc.Link(func(sample media.Sample) error {
		s.videoQueue.Push(sample)
		if out, ok := s.videoQueue.Pop(); ok {
			videoMixer.Push(videoPadID, out)
		}
		return nil
	})

	audioPadID := s.AudioPad.ID()
	s.AudioAppSrc.Link(func(sample media.Sample) error {
		sample = s.audioConvert.Process(sample)
		sample = s.audioResample.Process(sample)
		s.audioQueue.Push(sample)
		if out, ok := s.audioQueue.Pop(); ok {
			audioMixer.Push(audioPadID, out)
		}
		return nil
	})

	if err := s.AudioPad.Set("volume", setting.F64Value(s.Volume)); err != nil {
		return fmt.Errorf("slot: %s: setting volume: %w", s.ID, err)
	}

	s.VideoProducer.Attach(s.ID, s.VideoAppSrc)
	s.AudioProducer.Attach(s.ID, s.AudioAppSrc)

	s.connected = true
	s.log.Debug().Msg("slot subgraph connected")
	return nil
}

// Teardown detaches the slot from its upstream producers and releases its
// mixer pads. Safe to call whether or not BuildSubgraph ran.
func (s *Slot) Teardown(videoMixer *graph.Compositor, audioMixer *graph.AudioMixer) {
	if s.connected {
		s.VideoProducer.Detach(s.ID)
		s.AudioProducer.Detach(s.ID)
		s.connected = false
	}
	videoMixer.ReleaseSinkPad(s.VideoPad)
	audioMixer.ReleaseSinkPad(s.AudioPad)
	s.log.Debug().Msg("slot torn down")
}

// CurrentVolume reports the slot's effective volume: the audiomixer pad's
// live value (which control points may have moved since Connect), falling
// back to the configured Volume field if the pad read fails.
func (s *Slot) CurrentVolume() float64 {
	if v, err := s.AudioPad.Get("volume"); err == nil {
		return v.F64
	}
	return s.Volume
}

// Properties returns the slot's video and audio pad properties, prefixed
// video:: / audio::, for GetNodeInfo's slot_settings response.
func (s *Slot) Properties() map[string]setting.Value {
	out := make(map[string]setting.Value)
	for _, name := range []string{"alpha", "width", "height", "xpos", "ypos", "zorder"} {
		if v, err := s.VideoPad.Get(name); err == nil {
			out["video::"+name] = v
		}
	}
	for _, name := range []string{"volume"} {
		if v, err := s.AudioPad.Get(name); err == nil {
			out["audio::"+name] = v
		}
	}
	return out
}

// ApplyConfig validates and applies a video::<prop> / audio::<prop> config
// map to the slot's pads: a malformed key or type-mismatched value fails
// the whole call, and the caller is expected to release the slot's pads on
// error rather than leave it half-configured.
func (s *Slot) ApplyConfig(config map[string]setting.Value) error {
	for key, value := range config {
		isVideo, prop, err := SplitNamespace(key)
		if err != nil {
			return fmt.Errorf("slot: %s: %w", s.ID, err)
		}
		if isVideo {
			if err := s.VideoPad.Set(prop, value); err != nil {
				return fmt.Errorf("slot: %s: %w", s.ID, err)
			}
			continue
		}
		if err := s.AudioPad.Set(prop, value); err != nil {
			return fmt.Errorf("slot: %s: %w", s.ID, err)
		}
		if prop == "volume" {
			if f, err := value.AsF64(); err == nil {
				s.Volume = f
			}
		}
	}
	return nil
}

// SplitNamespace parses a "video::<prop>" / "audio::<prop>" key into
// (isVideo, propName).
func SplitNamespace(key string) (isVideo bool, prop string, err error) {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == ':' && key[i+1] == ':' {
			ns, prop := key[:i], key[i+2:]
			switch ns {
			case "video":
				return true, prop, nil
			case "audio":
				return false, prop, nil
			default:
				return false, "", fmt.Errorf("slot: property media type must be one of {audio, video}, got %q", ns)
			}
		}
	}
	return false, "", fmt.Errorf("slot: property name must be of the form media-type::property-name, got %q", key)
}
