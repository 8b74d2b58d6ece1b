// models holds the data exchanged with the remote simulation service.
// Everything here mirrors remote authoritative state; nothing is derived locally.
package models

import (
	"encoding/json"
	"strings"
)

// Cell is the world address of one live cell. Presence in a cell collection is
// the alive signal; there is no separate flag.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SimState is the run state of the remote simulation.
type SimState int

const (
	Stopped SimState = iota
	Running
	Paused
)

// ParseSimState maps the wire literal to a SimState. Anything that is not
// "running" or "paused" is treated as stopped.
func ParseSimState(s string) SimState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running":
		return Running
	case "paused":
		return Paused
	}
	return Stopped
}

func (st SimState) String() string {
	switch st {
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return "stopped"
}

func (st SimState) MarshalJSON() ([]byte, error) {
	return json.Marshal(st.String())
}

func (st *SimState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Non-string states are unknown states, which present as stopped.
		*st = Stopped
		return nil
	}
	*st = ParseSimState(s)
	return nil
}

// SimulationStatus is the status document returned by every control endpoint.
type SimulationStatus struct {
	State       SimState `json:"state"`
	TickCount   uint64   `json:"tick_count"`
	TPS         int      `json:"tps"`
	ActiveCells int      `json:"active_cells"`
}

// PresetDescriptor is metadata for a named pattern the remote service can load.
type PresetDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CellCount   int    `json:"cell_count"`
}

// PresetsList is the envelope of the preset listing endpoint.
type PresetsList struct {
	Presets []PresetDescriptor `json:"presets"`
}

// CellSet returns a lookup set for the passed cells.
func CellSet(cells []Cell) map[Cell]struct{} {
	set := make(map[Cell]struct{}, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}
