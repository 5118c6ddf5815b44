package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run      RunMetadata `json:"run"`
	Channels int         `json:"channels"`
	Ticks    []uint64    `json:"ticks"`
	Valid    []bool      `json:"valid"`
	Targets  [][]float64 `json:"targets"`
	Commands [][]float64 `json:"commands"`
	States   [][]float64 `json:"states"`
}

// ExportJSON writes a run as a single JSON document with one entry per tick.
// States are positions followed by velocities.
func ExportJSON(w io.Writer, meta *RunMetadata, trace *Trace) error {
	data := ExportData{
		Run:      *meta,
		Channels: trace.Channels,
		Ticks:    make([]uint64, len(trace.Rows)),
		Valid:    make([]bool, len(trace.Rows)),
		Targets:  make([][]float64, len(trace.Rows)),
		Commands: make([][]float64, len(trace.Rows)),
		States:   make([][]float64, len(trace.Rows)),
	}

	for i, r := range trace.Rows {
		data.Ticks[i] = r.Tick
		data.Valid[i] = r.Valid
		data.Targets[i] = r.Targets
		data.Commands[i] = r.Commands
		data.States[i] = append(append(make([]float64, 0, 2*len(r.Positions)), r.Positions...), r.Velocities...)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
