/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/friendsincode/auteur/internal/setting"
)

// debugArtifactDir is where debug artifacts are written: the working
// directory the process was launched from, alongside its log output.
var debugArtifactDir = "."

// slotTopology is one connected slot's pad properties, as recorded in a
// debug artifact.
type slotTopology struct {
	ID         string                   `json:"id"`
	Properties map[string]setting.Value `json:"properties"`
}

// debugArtifact is the graph dump written on pipeline error: enough of
// the mixer's topology to diagnose what was wired when the failure hit,
// without pulling in a real media framework's introspection APIs.
type debugArtifact struct {
	MixerID   string                   `json:"mixer_id"`
	Error     string                   `json:"error"`
	Timestamp time.Time                `json:"timestamp"`
	State     string                   `json:"state"`
	Settings  map[string]setting.Value `json:"settings"`
	Slots     []slotTopology           `json:"slots"`
}

// writeDebugArtifact emits error-mixer-<id>.json next to the process's log
// output. Best-effort: a failure to write is logged, not propagated, since
// it runs from the already-failing shutdown path.
func (m *Mixer) writeDebugArtifact(cause error) {
	slots := make([]slotTopology, 0, len(m.slots))
	for id, s := range m.slots {
		slots = append(slots, slotTopology{ID: id, Properties: s.Properties()})
	}

	artifact := debugArtifact{
		MixerID:   m.ID,
		Error:     cause.Error(),
		Timestamp: time.Now(),
		State:     m.fsm.State().String(),
		Settings:  m.registry.Snapshot(),
		Slots:     slots,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		m.log.Warn().Err(err).Msg("marshaling debug artifact")
		return
	}

	path := filepath.Join(debugArtifactDir, "error-mixer-"+m.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.log.Warn().Err(err).Str("path", path).Msg("writing debug artifact")
		return
	}
	m.log.Info().Str("path", path).Msg("debug artifact written")
}
