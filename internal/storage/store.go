package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/tauleap/internal/tauleap"
)

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
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Seed      uint64    `json:"seed"`
	EndTime   float64   `json:"end_time"`
	Exact     bool      `json:"exact"`
	Names     []string  `json:"names"`

	Params tauleap.Params `json:"params"`
	// MaxTau is stored separately since JSON has no infinity; nil means
	// unbounded.
	MaxTau     *float64           `json:"max_tau,omitempty"`
	Overrides  map[string]float64 `json:"overrides,omitempty"`
	Halting    string             `json:"halting_transition,omitempty"`
	Diagnostic string             `json:"diagnostic,omitempty"`
	Stats      tauleap.Stats      `json:"stats"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run is everything about one run that is not in its result.
type Run struct {
	Model     string
	Seed      uint64
	EndTime   float64
	Exact     bool
	Params    tauleap.Params
	Overrides map[string]float64
	// ReactionNames labels the halting transition.
	ReactionNames []string
}

// NewRunID returns <model>_<unix>_<short uuid>.
func NewRunID(model string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", model, now.Unix(), uuid.NewString()[:8])
}

func newMetadata(id string, run Run, result *tauleap.Result, now time.Time) RunMetadata {
	meta := RunMetadata{
		ID:         id,
		Model:      run.Model,
		Timestamp:  now,
		Seed:       run.Seed,
		EndTime:    run.EndTime,
		Exact:      run.Exact,
		Names:      result.Names,
		Params:     run.Params,
		Overrides:  run.Overrides,
		Diagnostic: result.Diagnostic,
		Stats:      result.Stats,
		Metrics:    result.Metrics,
	}
	if !math.IsInf(run.Params.MaxTau, 1) {
		v := run.Params.MaxTau
		meta.MaxTau = &v
	}
	if result.HasHalting {
		meta.Halting = result.HaltingLabel(run.ReactionNames)
	}
	return meta
}

// RestoredParams returns Params with MaxTau put back.
func (m *RunMetadata) RestoredParams() tauleap.Params {
	p := m.Params
	p.MaxTau = math.Inf(1)
	if m.MaxTau != nil {
		p.MaxTau = *m.MaxTau
	}
	return p
}

func (s *Store) Save(run Run, result *tauleap.Result) (string, error) {
	now := time.Now()
	runID := NewRunID(run.Model, now)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := newMetadata(runID, run, result, now)
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Names, result.Points); err != nil {
		return "", err
	}
	return runID, csvFile.Close()
}

// WriteCSV writes a time,<names...> header and one row per point.
func WriteCSV(w io.Writer, names []string, pts []tauleap.Point) error {
	cw := csv.NewWriter(w)
	header := append([]string{"time"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(names)+1)
	for _, p := range pts {
		row[0] = strconv.FormatFloat(p.Time, 'g', -1, 64)
		for i, v := range p.State {
			row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

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
	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	meta.Params = meta.RestoredParams()
	return &meta, nil
}

// LoadStates reads the time series of a run.
func (s *Store) LoadStates(runID string) ([]string, []tauleap.Point, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty states file", runID)
	}

	names := records[0][1:]
	pts := make([]tauleap.Point, 0, len(records)-1)
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: row %d: %w", runID, i+1, err)
		}
		x := make(tauleap.State, len(names))
		for j := range x {
			if x[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				return nil, nil, fmt.Errorf("%s: row %d: %w", runID, i+1, err)
			}
		}
		pts = append(pts, tauleap.Point{Time: t, State: x})
	}
	return names, pts, nil
}

// LoadResult rebuilds the result of a stored run. The halting transition is
// restored only as the label in the metadata.
func (s *Store) LoadResult(runID string) (*RunMetadata, *tauleap.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	names, pts, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, &tauleap.Result{
		Names:             names,
		Points:            pts,
		HasHalting:        meta.Halting != "",
		HaltingTransition: tauleap.NoTransition,
		Diagnostic:        meta.Diagnostic,
		Stats:             meta.Stats,
		Metrics:           meta.Metrics,
	}, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}
