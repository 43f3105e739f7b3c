package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tauleap/internal/tauleap"
)

const historyCapacity = 600

type PointMsg tauleap.Point

type DoneMsg struct {
	Result *tauleap.Result
	Err    error
}

// Feed is an Observer that forwards points to a channel, at most one per
// interval. It never blocks the simulation past the end of ctx.
type Feed struct {
	ctx      context.Context
	ch       chan<- tea.Msg
	interval time.Duration
	last     time.Time
}

func NewFeed(ctx context.Context, ch chan<- tea.Msg, interval time.Duration) *Feed {
	return &Feed{ctx: ctx, ch: ch, interval: interval}
}

func (f *Feed) OnPoint(p tauleap.Point) {
	now := time.Now()
	if now.Sub(f.last) < f.interval {
		return
	}
	f.last = now
	select {
	case f.ch <- PointMsg(p):
	case <-f.ctx.Done():
	}
}

// RunFunc runs a simulation reporting points to obs.
type RunFunc func(ctx context.Context, obs tauleap.Observer) (*tauleap.Result, error)

// WatchModel is the Bubble Tea model of a run in progress.
type WatchModel struct {
	title    string
	names    []string
	tf       float64
	msgs     <-chan tea.Msg
	stop     <-chan struct{}
	cancel   context.CancelFunc
	selected int

	current tauleap.Point
	points  int
	history []float64

	done   bool
	result *tauleap.Result
	err    error
}

// NewWatchModel reads points from msgs until ctx ends. cancel should end
// ctx and the run feeding msgs.
func NewWatchModel(ctx context.Context, title string, names []string, tf float64, msgs <-chan tea.Msg, cancel context.CancelFunc) WatchModel {
	return WatchModel{
		title:   title,
		names:   names,
		tf:      tf,
		msgs:    msgs,
		stop:    ctx.Done(),
		cancel:  cancel,
		history: make([]float64, 0, historyCapacity),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return m.wait()
}

func (m WatchModel) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.msgs:
			return msg
		case <-m.stop:
			return nil
		}
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "tab":
			if len(m.names) > 0 {
				m.selected = (m.selected + 1) % len(m.names)
				m.history = m.history[:0]
			}
		}
	case PointMsg:
		m.record(tauleap.Point(msg))
		return m, m.wait()
	case DoneMsg:
		m.done = true
		m.result, m.err = msg.Result, msg.Err
		if msg.Result != nil && len(msg.Result.Points) > 0 {
			m.record(msg.Result.Final())
		}
	}
	return m, nil
}

func (m *WatchModel) record(p tauleap.Point) {
	m.current = p
	m.points++
	if m.selected < len(p.State) {
		if len(m.history) == historyCapacity {
			m.history = append(m.history[:0], m.history[1:]...)
		}
		m.history = append(m.history, p.State[m.selected])
	}
}

func (m WatchModel) Result() (*tauleap.Result, error) { return m.result, m.err }

func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(Title.Render(m.title))
	b.WriteString("  ")
	b.WriteString(m.status())
	b.WriteString("\n\n")

	frac := 1.0
	if m.tf > 0 {
		frac = m.current.Time / m.tf
	}
	fmt.Fprintf(&b, "%s %s\n\n", ProgressBar(frac, 40), Subtle.Render(fmt.Sprintf("t = %.4g / %g", m.current.Time, m.tf)))

	for i, name := range m.names {
		label := MetricLabel.Render(name)
		if i == m.selected {
			label = Selected.Width(20).Render(name)
		}
		v := 0.0
		if i < len(m.current.State) {
			v = m.current.State[i]
		}
		fmt.Fprintf(&b, "%s %s\n", label, MetricValue.Render(fmt.Sprintf("%g", v)))
	}

	if len(m.history) > 1 && m.selected < len(m.names) {
		b.WriteString("\n")
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption(m.names[m.selected])))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(KeyHint.Render("tab: next variable  q: quit"))
	return Panel.Render(b.String())
}

func (m WatchModel) status() string {
	switch {
	case !m.done:
		return StatusRunning.Render(fmt.Sprintf("running (%d points)", m.points))
	case m.err != nil:
		return StatusFailed.Render(m.err.Error())
	case m.result != nil && m.result.HaltingTransition != tauleap.NoTransition:
		return StatusHalted.Render("halted")
	}
	return StatusRunning.Render("done")
}

// Watch runs a simulation in the background and shows it live. Quitting the
// view cancels the run; its truncated result is still returned.
func Watch(ctx context.Context, title string, names []string, tf float64, run RunFunc) (*tauleap.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan tea.Msg, 64)
	done := make(chan DoneMsg, 1)
	go func() {
		res, err := run(ctx, NewFeed(ctx, msgs, time.Second/30))
		d := DoneMsg{Result: res, Err: err}
		done <- d
		select {
		case msgs <- d:
		case <-ctx.Done():
		}
	}()

	if _, err := tea.NewProgram(NewWatchModel(ctx, title, names, tf, msgs, cancel)).Run(); err != nil {
		cancel()
		<-done
		return nil, err
	}
	cancel()
	d := <-done
	return d.Result, d.Err
}
