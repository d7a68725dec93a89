/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package slot

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/auteur/internal/fanout"
	"github.com/friendsincode/auteur/internal/graph"
	"github.com/friendsincode/auteur/internal/media"
	"github.com/friendsincode/auteur/internal/setting"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestSplitNamespace(t *testing.T) {
	tests := []struct {
		key       string
		wantVideo bool
		wantProp  string
		wantErr   bool
	}{
		{"video::alpha", true, "alpha", false},
		{"audio::volume", false, "volume", false},
		{"garbage", false, "", true},
		{"other::prop", false, "", true},
		{"video::", true, "", false},
	}
	for _, tt := range tests {
		isVideo, prop, err := SplitNamespace(tt.key)
		if (err != nil) != tt.wantErr {
			t.Fatalf("SplitNamespace(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err == nil && (isVideo != tt.wantVideo || prop != tt.wantProp) {
			t.Fatalf("SplitNamespace(%q) = %v, %q; want %v, %q", tt.key, isVideo, prop, tt.wantVideo, tt.wantProp)
		}
	}
}

func newTestMixers() (*graph.Compositor, *graph.AudioMixer) {
	return graph.NewCompositor("mix-video", 30), graph.NewAudioMixer("mix-audio", 20*time.Millisecond)
}

func TestSlotBuildSubgraphWiresAndAttaches(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)

	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())
	if err := s.BuildSubgraph(videoMixer, audioMixer, 48000); err != nil {
		t.Fatal(err)
	}

	if len(vp.ConsumerIDs()) != 1 {
		t.Fatal("expected the slot's video appsrc to be attached as a consumer of the video producer")
	}
	if len(ap.ConsumerIDs()) != 1 {
		t.Fatal("expected the slot's audio appsrc to be attached as a consumer of the audio producer")
	}

	vp.Forward()
	_ = vp.Deliver(media.Sample{Data: []byte{1, 2, 3}})

	if _, ok := s.VideoPad.Peek(); !ok {
		t.Fatal("expected a sample to reach the slot's assigned video mixer pad")
	}
}

func TestSlotBuildSubgraphTwiceFails(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)

	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())
	if err := s.BuildSubgraph(videoMixer, audioMixer, 48000); err != nil {
		t.Fatal(err)
	}
	if err := s.BuildSubgraph(videoMixer, audioMixer, 48000); err == nil {
		t.Fatal("expected building the subgraph twice to fail")
	}
}

func TestSlotTeardownDetachesAndReleasesPads(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)

	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())
	if err := s.BuildSubgraph(videoMixer, audioMixer, 48000); err != nil {
		t.Fatal(err)
	}

	s.Teardown(videoMixer, audioMixer)

	if len(vp.ConsumerIDs()) != 0 {
		t.Fatal("expected video producer consumer to be detached on teardown")
	}
	for _, p := range videoMixer.SinkPads() {
		if p.ID() == s.VideoPad.ID() {
			t.Fatal("expected video mixer pad to be released on teardown")
		}
	}
}

func TestSlotTeardownWithoutSubgraphIsSafe(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)

	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())
	s.Teardown(videoMixer, audioMixer) // never built; must not panic
}

func TestSlotApplyConfigValidNamespace(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)
	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())

	err := s.ApplyConfig(map[string]setting.Value{
		"video::alpha":  setting.F64Value(0.5),
		"audio::volume": setting.F64Value(0.25),
	})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := s.VideoPad.Get("alpha")
	if v.F64 != 0.5 {
		t.Fatalf("video::alpha = %v, want 0.5", v.F64)
	}
	if s.Volume != 0.25 {
		t.Fatalf("slot.Volume after audio::volume config = %v, want 0.25", s.Volume)
	}
}

func TestSlotApplyConfigMalformedKeyFailsWhole(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)
	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())

	err := s.ApplyConfig(map[string]setting.Value{
		"not-namespaced": setting.F64Value(1.0),
	})
	if err == nil {
		t.Fatal("expected a malformed config key to fail the whole Connect")
	}
}

func TestSlotCurrentVolumeTracksPad(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)
	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())

	if got := s.CurrentVolume(); got != 1.0 {
		t.Fatalf("CurrentVolume on a fresh slot = %v, want the pad default 1.0", got)
	}

	// A controller moving the pad directly must be reflected, not the
	// stale config-time Volume field.
	if err := s.AudioPad.Set("volume", setting.F64Value(0.3)); err != nil {
		t.Fatal(err)
	}
	if got := s.CurrentVolume(); got != 0.3 {
		t.Fatalf("CurrentVolume after a pad write = %v, want 0.3", got)
	}
}

func TestSlotProperties(t *testing.T) {
	videoMixer, audioMixer := newTestMixers()
	vp := fanout.New("slot-video-in", testLogger(), nil)
	ap := fanout.New("slot-audio-in", testLogger(), nil)
	s := New("slot-a", vp, ap, videoMixer, audioMixer, testLogger())

	props := s.Properties()
	if _, ok := props["video::alpha"]; !ok {
		t.Fatal("expected video::alpha in slot properties")
	}
	if _, ok := props["audio::volume"]; !ok {
		t.Fatal("expected audio::volume in slot properties")
	}
}
