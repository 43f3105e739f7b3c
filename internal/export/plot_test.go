package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/tauleap/internal/analysis"
	"github.com/san-kum/tauleap/internal/tauleap"
)

func sampleResult() *tauleap.Result {
	return &tauleap.Result{
		Names: []string{"S", "I"},
		Points: []tauleap.Point{
			{Time: 0, State: tauleap.State{10, 1}},
			{Time: 0.5, State: tauleap.State{9, 2}},
			{Time: 2, State: tauleap.State{7, 3}},
		},
		HaltingTransition: tauleap.NoTransition,
	}
}

func TestTrajectory_SVG(t *testing.T) {
	p, err := Trajectory(sampleResult(), "sir", nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(p, &buf, "svg", DefaultWidth, DefaultHeight); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Error("output is not svg")
	}
}

func TestTrajectory_Errors(t *testing.T) {
	if _, err := Trajectory(sampleResult(), "x", []int{2}); err == nil {
		t.Error("expected error for variable out of range")
	}
	empty := &tauleap.Result{Names: []string{"S"}}
	if _, err := Trajectory(empty, "x", nil); err == nil {
		t.Error("expected error for empty result")
	}
}

func TestEnsemble_PNG(t *testing.T) {
	grid := analysis.Grid(2, 5)
	s, err := analysis.Summarize([]*tauleap.Result{sampleResult(), sampleResult()}, grid)
	if err != nil {
		t.Fatal(err)
	}
	p, err := Ensemble(s, "sir")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "ensemble.png")
	if err := Save(p, path, DefaultWidth, DefaultHeight); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not png")
	}
}

func TestSave_UnsupportedFormat(t *testing.T) {
	p, _ := Trajectory(sampleResult(), "sir", []int{0})
	if err := Save(p, filepath.Join(t.TempDir(), "plot.bmp"), DefaultWidth, DefaultHeight); err == nil {
		t.Error("expected error for bmp")
	}
}
