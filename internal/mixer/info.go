/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"sort"
	"time"

	"github.com/friendsincode/auteur/internal/control"
	"github.com/friendsincode/auteur/internal/fanout"
	"github.com/friendsincode/auteur/internal/schedule"
	"github.com/friendsincode/auteur/internal/setting"
)

// NotificationSink receives the node-lifecycle notifications a Mixer emits
// toward its owning node registry: a Stopped announcement (carrying the
// two output producers so downstream consumers can be reattached
// elsewhere) and an out-of-band error report. A nil sink is valid; the
// Mixer simply logs instead.
type NotificationSink interface {
	NotifyStopped(nodeID string, videoProducer, audioProducer *fanout.Producer)
	NotifyError(nodeID string, err error)
}

// SlotInfo is the light per-slot view: id and current volume. The full pad
// property dump lives in Info.SlotSettings.
type SlotInfo struct {
	ID     string
	Volume float64
}

// Info is the snapshot GetNodeInfo returns, shaped after the node
// manager's MixerInfo: the light slots view and the ids attached to the
// output fan-out, mixer-level settings and control points, and the
// per-slot property and control-point dumps, each under its own key.
type Info struct {
	ID                string
	State             schedule.State
	CueTime           *time.Time
	EndTime           *time.Time
	Settings          map[string]setting.Value
	Slots             []SlotInfo
	ConsumerSlotIDs   []string
	ControlPoints     map[string][]control.Point
	SlotSettings      map[string]map[string]setting.Value
	SlotControlPoints map[string]map[string][]control.Point
}

// snapshotInfo builds the GetNodeInfo response. Called from the actor
// goroutine (via call) while the mixer is live, or directly once the actor
// has shut down and nothing mutates these fields anymore.
func (m *Mixer) snapshotInfo() Info {
	var cue *time.Time
	if cueTime, ok := m.fsm.CueTime(); ok {
		t := cueTime
		cue = &t
	}

	slots := make([]SlotInfo, 0, len(m.slots))
	slotSettings := make(map[string]map[string]setting.Value, len(m.slots))
	for id, s := range m.slots {
		slots = append(slots, SlotInfo{ID: id, Volume: s.CurrentVolume()})
		slotSettings[id] = s.Properties()
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })

	controlPoints := make(map[string][]control.Point)
	for _, c := range m.mixerControllers.Snapshot() {
		if points := c.Points(); len(points) > 0 {
			controlPoints[c.PropName] = append(controlPoints[c.PropName], points...)
		}
	}

	slotControlPoints := make(map[string]map[string][]control.Point)
	collectSlot := func(cm *control.Map) {
		for _, c := range cm.Snapshot() {
			points := c.Points()
			if len(points) == 0 {
				continue
			}
			byProp := slotControlPoints[c.ControlleeID]
			if byProp == nil {
				byProp = make(map[string][]control.Point)
				slotControlPoints[c.ControlleeID] = byProp
			}
			byProp[c.PropName] = append(byProp[c.PropName], points...)
		}
	}
	collectSlot(m.slotVideoControllers)
	collectSlot(m.slotAudioControllers)

	// The ids of the consumers attached to this mixer's video output
	// fan-out. Slots attach to their own upstream producers, never to the
	// mixer's output, so this set is independent of the slots map.
	consumerIDs := m.videoOut.ConsumerIDs()
	sort.Strings(consumerIDs)

	return Info{
		ID:                m.ID,
		State:             m.fsm.State(),
		CueTime:           cue,
		EndTime:           m.fsm.EndTime(),
		Settings:          m.registry.Snapshot(),
		Slots:             slots,
		ConsumerSlotIDs:   consumerIDs,
		ControlPoints:     controlPoints,
		SlotSettings:      slotSettings,
		SlotControlPoints: slotControlPoints,
	}
}
