package viz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/tauleap/internal/analysis"
	"github.com/san-kum/tauleap/internal/tauleap"
)

func sampleResult() *tauleap.Result {
	return &tauleap.Result{
		Names: []string{"off", "on", "P"},
		Points: []tauleap.Point{
			{Time: 0, State: tauleap.State{1, 0, 0}},
			{Time: 1, State: tauleap.State{1, 0, 4}},
			{Time: 2.5, State: tauleap.State{0, 1, 9}},
		},
		HasHalting:        true,
		HaltingTransition: 2,
		Stats:             tauleap.Stats{Iterations: 2, ExactSteps: 2},
		Metrics:           map[string]float64{"peak_P": 9},
	}
}

func TestSummary(t *testing.T) {
	out := Summary("gene_switch", sampleResult(), []string{"express", "degrade", "activate"})
	for _, want := range []string{"gene_switch", "haltingTransition", "activate", "peak_P", "exact steps"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	res := sampleResult()
	res.HasHalting = false
	if strings.Contains(Summary("x", res, nil), "haltingTransition") {
		t.Error("halting line shown for a model without halting transitions")
	}
}

func TestPlotRun(t *testing.T) {
	out, err := PlotRun(sampleResult(), []int{2}, 30, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "P") || !strings.Contains(out, "t = 0 .. 2.5") {
		t.Errorf("unexpected chart:\n%s", out)
	}
	if _, err := PlotRun(sampleResult(), []int{7}, 30, 5); err == nil {
		t.Error("expected error for variable out of range")
	}
	short := &tauleap.Result{Names: []string{"X"}, Points: sampleResult().Points[:1]}
	if _, err := PlotRun(short, nil, 30, 5); err == nil {
		t.Error("expected error for a single point")
	}
}

func TestPlotSummary(t *testing.T) {
	s, err := analysis.Summarize([]*tauleap.Result{sampleResult()}, analysis.Grid(2.5, 20))
	if err != nil {
		t.Fatal(err)
	}
	if out := PlotSummary(s, 5); !strings.Contains(out, "on") {
		t.Errorf("unexpected chart:\n%s", out)
	}
}

func TestWatchModel_Update(t *testing.T) {
	msgs := make(chan tea.Msg, 4)
	cancelled := false
	m := NewWatchModel(context.Background(), "decay", []string{"X", "Y"}, 10, msgs, func() { cancelled = true })

	next, cmd := m.Update(PointMsg{Time: 1, State: tauleap.State{5, 1}})
	m = next.(WatchModel)
	if cmd == nil {
		t.Error("expected to keep waiting for points")
	}
	next, _ = m.Update(PointMsg{Time: 2, State: tauleap.State{4, 2}})
	m = next.(WatchModel)
	if m.points != 2 || len(m.history) != 2 || m.history[1] != 4 {
		t.Errorf("points=%d history=%v", m.points, m.history)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(WatchModel)
	if m.selected != 1 || len(m.history) != 0 {
		t.Errorf("tab should select Y and clear the chart, got %d %v", m.selected, m.history)
	}

	view := m.View()
	if !strings.Contains(view, "running") || !strings.Contains(view, "t = 2 / 10") {
		t.Errorf("unexpected view:\n%s", view)
	}

	res := &tauleap.Result{Names: []string{"X", "Y"}, Points: []tauleap.Point{{Time: 10, State: tauleap.State{0, 6}}}, HaltingTransition: tauleap.NoTransition}
	next, cmd = m.Update(DoneMsg{Result: res})
	m = next.(WatchModel)
	if cmd != nil || !m.done || m.current.Time != 10 {
		t.Errorf("done message not applied: %+v", m)
	}
	if !strings.Contains(m.View(), "done") {
		t.Error("view should report done")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled || cmd == nil {
		t.Error("q should cancel the run and quit")
	}
}

func TestWatchModel_Failed(t *testing.T) {
	m := NewWatchModel(context.Background(), "x", []string{"X"}, 1, nil, func() {})
	next, _ := m.Update(DoneMsg{Err: errors.New("rate callback failed")})
	if !strings.Contains(next.(WatchModel).View(), "rate callback failed") {
		t.Error("view should show the error")
	}
}

func TestWatchModel_WaitEndsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewWatchModel(ctx, "x", []string{"X"}, 1, make(chan tea.Msg), cancel)

	got := make(chan tea.Msg, 1)
	go func() { got <- m.Init()() }()

	_, quit := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if quit == nil {
		t.Fatal("q should quit")
	}
	select {
	case msg := <-got:
		if msg != nil {
			t.Errorf("expected no message after quitting, got %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("pending wait still blocked after quitting")
	}
}

func TestFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, 8)
	f := NewFeed(ctx, ch, time.Hour)

	f.OnPoint(tauleap.Point{Time: 1})
	f.OnPoint(tauleap.Point{Time: 2})
	if len(ch) != 1 {
		t.Errorf("expected one forwarded point within the interval, got %d", len(ch))
	}

	// a full channel must not block once the run is cancelled
	full := make(chan tea.Msg)
	cancel()
	NewFeed(ctx, full, 0).OnPoint(tauleap.Point{Time: 3})
}
