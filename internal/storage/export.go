package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/tauleap/internal/tauleap"
)

type ExportData struct {
	RunMetadata
	Steps  int         `json:"steps"`
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

func NewExportData(meta *RunMetadata, pts []tauleap.Point) ExportData {
	data := ExportData{
		RunMetadata: *meta,
		Steps:       len(pts),
		Times:       make([]float64, len(pts)),
		States:      make([][]float64, len(pts)),
	}
	for i, p := range pts {
		data.Times[i] = p.Time
		data.States[i] = p.State
	}
	return data
}

// ExportJSON writes a stored run as one JSON document to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	_, pts, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(meta, pts))
}

func (s *Store) ExportJSONFile(path, runID string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := s.ExportJSON(f, runID); err != nil {
		return err
	}
	return f.Close()
}
