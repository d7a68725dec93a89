/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package media defines the sample envelope that flows between producers,
// consumers, and the elements of the in-process mixing graph.
package media

import (
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
)

// Sample is a single timestamped unit of audio or video data. It is a type
// alias for the WebRTC media sample so that anything wired directly to a
// pion-based transport (outside the scope of this node) can hand its
// buffers to a StreamProducer without copying.
type Sample = media.Sample

// PTS returns the sample's presentation timestamp. This node never
// synchronizes clocks across hosts, so PTS is always interpreted as a local
// wall-clock instant.
func PTS(s Sample) time.Time {
	return s.Timestamp
}

// WithPTS returns a copy of s stamped with pts.
func WithPTS(s Sample, pts time.Time) Sample {
	s.Timestamp = pts
	return s
}
