package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID                string             `json:"id"`
	Preset            string             `json:"preset,omitempty"`
	Model             string             `json:"model"`
	Integrator        string             `json:"integrator"`
	Actuators         int                `json:"actuators"`
	Timestamp         time.Time          `json:"timestamp"`
	Dt                float64            `json:"dt"`
	TickPeriodMs      uint64             `json:"tick_period_ms"`
	WatchdogTimeoutMs uint64             `json:"watchdog_timeout_ms"`
	Kp                float64            `json:"kp"`
	Kd                float64            `json:"kd"`
	Ticks             int                `json:"ticks"`
	Truncated         uint64             `json:"truncated,omitempty"`
	Metrics           map[string]float64 `json:"metrics"`
}

// Save writes a new run directory and returns its id.
func (s *Store) Save(meta RunMetadata, trace *Trace) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Ticks = len(trace.Rows)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, trace); err != nil {
		return "", err
	}
	return meta.ID, csvFile.Sync()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// CSV layout: tick, valid, tripped, count, then sp*, q*, v*, u* per channel.
// Floats use the shortest exact representation so traces round-trip
// bit-for-bit.

func csvHeader(n int) []string {
	header := []string{"tick", "valid", "tripped", "count"}
	for _, prefix := range []string{"sp", "q", "v", "u"} {
		for i := 0; i < n; i++ {
			header = append(header, fmt.Sprintf("%s%d", prefix, i))
		}
	}
	return header
}

func WriteCSV(w io.Writer, trace *Trace) error {
	cw := csv.NewWriter(w)
	n := trace.Channels
	if err := cw.Write(csvHeader(n)); err != nil {
		return err
	}

	row := make([]string, 4+4*n)
	for _, r := range trace.Rows {
		row[0] = strconv.FormatUint(r.Tick, 10)
		row[1] = strconv.FormatBool(r.Valid)
		row[2] = strconv.FormatBool(r.Tripped)
		row[3] = strconv.Itoa(r.Count)
		col := 4
		for _, vec := range [][]float64{r.Targets, r.Positions, r.Velocities, r.Commands} {
			for i := 0; i < n; i++ {
				row[col] = strconv.FormatFloat(vec[i], 'g', -1, 64)
				col++
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*Trace, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty trace")
	}

	width := len(records[0]) - 4
	if width < 0 || width%4 != 0 {
		return nil, fmt.Errorf("malformed trace header: %d columns", len(records[0]))
	}
	n := width / 4

	trace := &Trace{Channels: n, Rows: make([]Row, 0, len(records)-1)}
	for i, rec := range records[1:] {
		row, err := parseRow(rec, n)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", i+2, err)
		}
		trace.Rows = append(trace.Rows, row)
	}
	return trace, nil
}

func parseRow(rec []string, n int) (Row, error) {
	var row Row
	var err error
	if row.Tick, err = strconv.ParseUint(rec[0], 10, 64); err != nil {
		return row, err
	}
	if row.Valid, err = strconv.ParseBool(rec[1]); err != nil {
		return row, err
	}
	if row.Tripped, err = strconv.ParseBool(rec[2]); err != nil {
		return row, err
	}
	if row.Count, err = strconv.Atoi(rec[3]); err != nil {
		return row, err
	}

	vals := make([]float64, 4*n)
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(rec[4+i], 64); err != nil {
			return row, err
		}
	}
	row.Targets = vals[0:n]
	row.Positions = vals[n : 2*n]
	row.Velocities = vals[2*n : 3*n]
	row.Commands = vals[3*n : 4*n]
	return row, nil
}
