/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/auteur/internal/control"
	"github.com/friendsincode/auteur/internal/fanout"
	"github.com/friendsincode/auteur/internal/graph"
	"github.com/friendsincode/auteur/internal/schedule"
	"github.com/friendsincode/auteur/internal/setting"
	"github.com/friendsincode/auteur/internal/slot"
	"github.com/friendsincode/auteur/internal/telemetry"
)

// Connect implements the Connect request: it allocates a
// ConsumerSlot's mixer pads, applies an optional video::/audio:: config map
// to them, and -- if the mixer is already Started -- immediately wires the
// slot's live sub-graphs and attaches it to the upstream producers. While
// the mixer is not yet Started, wiring is deferred to startPipeline.
func (m *Mixer) Connect(ctx context.Context, linkID string, videoProducer, audioProducer *fanout.Producer, config map[string]setting.Value) error {
	return m.callTraced(ctx, "connect", func() error {
		if _, exists := m.slots[linkID]; exists {
			telemetry.SlotConnections.WithLabelValues(m.ID, "connect", "rejected").Inc()
			return validationErrorf("connect", "slot %q is already connected", linkID)
		}

		s := slot.New(linkID, videoProducer, audioProducer, m.videoMixer, m.audioMixer, m.log)

		if len(config) > 0 {
			if err := s.ApplyConfig(config); err != nil {
				m.videoMixer.ReleaseSinkPad(s.VideoPad)
				m.audioMixer.ReleaseSinkPad(s.AudioPad)
				telemetry.SlotConnections.WithLabelValues(m.ID, "connect", "rejected").Inc()
				return validationErrorf("connect", "%w", err)
			}
		}

		if m.fsm.State() == schedule.Started {
			sampleRate, err := m.registry.Get("sample-rate").AsI32()
			if err != nil {
				m.videoMixer.ReleaseSinkPad(s.VideoPad)
				m.audioMixer.ReleaseSinkPad(s.AudioPad)
				telemetry.SlotConnections.WithLabelValues(m.ID, "connect", "rejected").Inc()
				return pipelineErrorf("connect", "reading sample-rate: %w", err)
			}
			if err := s.BuildSubgraph(m.videoMixer, m.audioMixer, sampleRate); err != nil {
				m.videoMixer.ReleaseSinkPad(s.VideoPad)
				m.audioMixer.ReleaseSinkPad(s.AudioPad)
				telemetry.SlotConnections.WithLabelValues(m.ID, "connect", "rejected").Inc()
				return pipelineErrorf("connect", "wiring slot %q: %w", linkID, err)
			}
		}

		m.slots[linkID] = s
		telemetry.SlotConnections.WithLabelValues(m.ID, "connect", "accepted").Inc()
		telemetry.ActiveSlots.WithLabelValues(m.ID).Set(float64(len(m.slots)))
		m.log.Info().Str("slot", linkID).Msg("slot connected")
		return nil
	})
}

// Disconnect implements the Disconnect request: it detaches the
// slot's upstream consumer bindings, tears down its sub-graphs, releases its
// mixer pads, and removes the slot entry.
func (m *Mixer) Disconnect(ctx context.Context, slotID string) error {
	return m.callTraced(ctx, "disconnect", func() error {
		s, ok := m.slots[slotID]
		if !ok {
			telemetry.SlotConnections.WithLabelValues(m.ID, "disconnect", "rejected").Inc()
			return validationErrorf("disconnect", "unknown slot %q", slotID)
		}
		s.Teardown(m.videoMixer, m.audioMixer)
		delete(m.slots, slotID)
		telemetry.SlotConnections.WithLabelValues(m.ID, "disconnect", "accepted").Inc()
		telemetry.ActiveSlots.WithLabelValues(m.ID).Set(float64(len(m.slots)))
		m.log.Info().Str("slot", slotID).Msg("slot disconnected")
		return nil
	})
}

// AddControlPoint implements the AddControlPoint request: it
// enqueues p on the mixer_controllers map, creating the setting's controller
// on first use. property must name a controllable Setting and p's value
// must match that setting's Kind.
func (m *Mixer) AddControlPoint(ctx context.Context, property string, p control.Point) error {
	return m.callTraced(ctx, "add-control-point", func() error {
		st := m.registry.Get(property)
		if st == nil {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "add-control-point").Inc()
			return validationErrorf("add-control-point", "unknown setting %q", property)
		}
		if !st.Controllable {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "add-control-point").Inc()
			return validationErrorf("add-control-point", "setting %q is not controllable", property)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}

		c := m.mixerControllers.GetOrCreate(property, func() *control.Controller {
			return control.NewSettingController(m.ID, st)
		})
		if err := c.Enqueue(p); err != nil {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "add-control-point").Inc()
			return validationErrorf("add-control-point", "%w", err)
		}
		telemetry.ControlPointChurn.WithLabelValues(m.ID, "mixer-setting", "add").Inc()
		return nil
	})
}

// RemoveControlPoint implements the RemoveControlPoint request: a
// best-effort removal of the point identified by controlPointID from the
// named setting's controller. An unknown property or point id is silently
// ignored.
func (m *Mixer) RemoveControlPoint(ctx context.Context, controlPointID, property string) error {
	return m.callTraced(ctx, "remove-control-point", func() error {
		if c := m.mixerControllers.Get(property); c != nil {
			c.Remove(controlPointID)
			telemetry.ControlPointChurn.WithLabelValues(m.ID, "mixer-setting", "remove").Inc()
		}
		return nil
	})
}

// AddSlotControlPoint implements the AddSlotControlPoint request: it
// enqueues p on the slot's video or audio controller map, as selected by
// property's "video::"/"audio::" namespace.
func (m *Mixer) AddSlotControlPoint(ctx context.Context, slotID, property string, p control.Point) error {
	return m.callTraced(ctx, "add-slot-control-point", func() error {
		s, ok := m.slots[slotID]
		if !ok {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "add-slot-control-point").Inc()
			return validationErrorf("add-slot-control-point", "unknown slot %q", slotID)
		}
		isVideo, prop, err := slot.SplitNamespace(property)
		if err != nil {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "add-slot-control-point").Inc()
			return validationErrorf("add-slot-control-point", "%w", err)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}

		controllerMap := m.slotAudioControllers
		namespace := "slot-audio"
		var pad *graph.Pad = s.AudioPad
		if isVideo {
			controllerMap = m.slotVideoControllers
			namespace = "slot-video"
			pad = s.VideoPad
		}

		key := slotID + "|" + property
		c := controllerMap.GetOrCreate(key, func() *control.Controller {
			return control.NewPadController(slotID, property, pad, prop)
		})
		if err := c.Enqueue(p); err != nil {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "add-slot-control-point").Inc()
			return validationErrorf("add-slot-control-point", "%w", err)
		}
		telemetry.ControlPointChurn.WithLabelValues(m.ID, namespace, "add").Inc()
		return nil
	})
}

// RemoveSlotControlPoint implements the RemoveSlotControlPoint request: a
// best-effort removal of controlPointID from the slot's video/audio
// controller for property. A bad namespace, unknown slot, or unknown point
// id is silently ignored.
func (m *Mixer) RemoveSlotControlPoint(ctx context.Context, controlPointID, slotID, property string) error {
	return m.callTraced(ctx, "remove-slot-control-point", func() error {
		isVideo, _, err := slot.SplitNamespace(property)
		if err != nil {
			return nil
		}

		key := slotID + "|" + property
		controllerMap := m.slotAudioControllers
		namespace := "slot-audio"
		if isVideo {
			controllerMap = m.slotVideoControllers
			namespace = "slot-video"
		}
		if c := controllerMap.Get(key); c != nil {
			c.Remove(controlPointID)
			telemetry.ControlPointChurn.WithLabelValues(m.ID, namespace, "remove").Inc()
		}
		return nil
	})
}

// Start implements the Start request: it records the cue/end
// time and transitions Initial -> Starting. The actor's own loop arms a
// timer against the cue time (immediately, if it is already past) and calls
// startPipeline when it fires.
func (m *Mixer) Start(ctx context.Context, cueTime time.Time, endTime *time.Time) error {
	return m.callTraced(ctx, "start", func() error {
		if err := m.fsm.SetSchedule(cueTime, endTime); err != nil {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "start").Inc()
			return stateErrorf("start", "%w", err)
		}
		if err := m.fsm.Transition(schedule.Starting); err != nil {
			telemetry.ValidationRejections.WithLabelValues(m.ID, "start").Inc()
			return stateErrorf("start", "%w", err)
		}
		return nil
	})
}

// Schedule implements the Schedule (reschedule) request: valid
// only while Initial or Starting, it overwrites the cue/end time without
// otherwise changing state.
func (m *Mixer) Schedule(ctx context.Context, cueTime time.Time, endTime *time.Time) error {
	return m.callTraced(ctx, "schedule", func() error {
		if err := m.fsm.SetSchedule(cueTime, endTime); err != nil {
			return stateErrorf("schedule", "%w", err)
		}
		return nil
	})
}

// Stop implements the Stop request: an idempotent terminal
// shutdown. Already-Stopped mixers accept a redundant Stop as a no-op.
func (m *Mixer) Stop(ctx context.Context) error {
	// A stopped mixer's actor has already exited, so answer without it.
	if m.fsm.State() == schedule.Stopped {
		return nil
	}
	return m.callTraced(ctx, "stop", func() error {
		if m.fsm.State() == schedule.Stopped {
			return nil
		}
		m.doStop()
		return nil
	})
}

// GetProducer implements the GetProducer request. The two output
// producers are fixed for the Mixer's lifetime, so this reads them directly
// without a round trip through the actor.
func (m *Mixer) GetProducer() (videoProducer, audioProducer *fanout.Producer) {
	return m.videoOut, m.audioOut
}

// GetNodeInfo implements the GetNodeInfo request: a point-in-time
// snapshot of settings, control points, slots, slot properties, and
// lifecycle state. Once the actor has shut down, nothing mutates the
// mixer's state anymore, so the snapshot is taken directly instead of
// through the (closed) command loop.
func (m *Mixer) GetNodeInfo(ctx context.Context) Info {
	var info Info
	err := m.callTraced(ctx, "get-node-info", func() error {
		info = m.snapshotInfo()
		return nil
	})
	if err != nil {
		return m.snapshotInfo()
	}
	return info
}
