package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/storage"
)

type fakeGate struct{ paused bool }

func (g *fakeGate) Toggle() bool { g.paused = !g.paused; return g.paused }
func (g *fakeGate) Paused() bool { return g.paused }

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	if !strings.HasPrefix(c.String(), string(rune(brailleBlank|0x1))) {
		t.Errorf("expected origin dot in %q", c.String())
	}

	c.DrawLine(0, 0, 7, 7)
	if got := strings.Count(c.String(), "\n"); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}

	c.Set(100, 100)
	c.Unset(0, 0)
	c.Clear()
	if strings.Trim(c.String(), string(rune(brailleBlank))+"\n") != "" {
		t.Error("expected blank canvas after clear")
	}
}

func TestSamplerFrameAndHistory(t *testing.T) {
	s := NewSampler()
	for tick := uint64(0); tick < 50; tick++ {
		s.OnTick(&loop.Record{
			Tick:      tick,
			Valid:     tick < 30,
			Tripped:   tick == 30,
			Channels:  2,
			Targets:   []float64{1, 2},
			Positions: []float64{0.5, 0.5},
			Commands:  []float64{float64(tick), 0},
		})
	}

	f := s.Frame()
	if f.Tick != 49 || f.N != 2 {
		t.Errorf("unexpected frame %+v", f)
	}
	if f.Trips != 1 || f.SafeStops != 20 {
		t.Errorf("expected 1 trip and 20 safe stops, got %d and %d", f.Trips, f.SafeStops)
	}
	if !f.Tripped {
		t.Error("expected sticky trip flag")
	}
	if s.Frame().Tripped {
		t.Error("expected trip flag cleared after read")
	}

	hist := s.History(0)
	if len(hist) != 5 || hist[4] != 40 {
		t.Errorf("unexpected history %v", hist)
	}
}

func TestDashboardPauseKey(t *testing.T) {
	g := &fakeGate{}
	d := NewDashboard(DashboardConfig{Sampler: NewSampler(), Gate: g, Model: "joints"})

	m, _ := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	if !g.paused {
		t.Fatal("expected gate paused")
	}
	if !strings.Contains(m.View(), "GATE PAUSED") {
		t.Error("expected paused status in view")
	}
}

func TestPlotChannel(t *testing.T) {
	rec := storage.NewRecorder(1, 10)
	for i := 0; i < 10; i++ {
		rec.OnTick(&loop.Record{
			Tick: uint64(i), Valid: true, Channels: 1,
			Targets: []float64{1}, Positions: []float64{float64(i) / 10},
			Velocities: []float64{0}, Commands: []float64{float64(10 - i)},
		})
	}
	out, err := PlotChannel(rec.Trace(), 0, 40, 8)
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if !strings.Contains(out, "command u0") {
		t.Errorf("expected command caption in plot")
	}
	if _, err := PlotChannel(rec.Trace(), 3, 40, 8); err == nil {
		t.Error("expected error for out-of-range channel")
	}
	if !strings.HasPrefix(Summary(rec.Trace(), 10), "u0") {
		t.Error("expected summary line for channel 0")
	}
}

func TestTraceSVG(t *testing.T) {
	rec := storage.NewRecorder(2, 5)
	for i := 0; i < 5; i++ {
		rec.OnTick(&loop.Record{
			Tick: uint64(i), Valid: true, Channels: 2,
			Targets: []float64{1, 0}, Positions: []float64{float64(i) / 5, 0},
			Velocities: []float64{0, 0}, Commands: []float64{float64(5 - i), 0},
		})
	}
	out, err := TraceSVG(rec.Trace(), 1, 200, 100)
	if err != nil {
		t.Fatalf("svg failed: %v", err)
	}
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>") {
		t.Error("expected a complete svg document")
	}
	if n := strings.Count(out, "<path"); n != 3 {
		t.Errorf("expected 3 paths, got %d", n)
	}
	if _, err := TraceSVG(rec.Trace(), 2, 200, 100); err == nil {
		t.Error("expected error for out-of-range channel")
	}
}

func TestDashboardPaletteCycles(t *testing.T) {
	d := NewDashboard(DashboardConfig{Sampler: NewSampler(), Palette: "mono"})
	if d.colors().Name != "mono" {
		t.Fatalf("expected mono palette, got %s", d.colors().Name)
	}

	names := PaletteNames()
	m := tea.Model(d)
	for i := 0; i < len(names); i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	}
	if got := m.(Dashboard).colors().Name; got != "mono" {
		t.Errorf("expected full cycle back to mono, got %s", got)
	}

	unknown := NewDashboard(DashboardConfig{Sampler: NewSampler(), Palette: "nope"})
	if unknown.colors().Name != names[0] {
		t.Errorf("expected fallback to %s, got %s", names[0], unknown.colors().Name)
	}
}

func TestEffortBarAndSparkline(t *testing.T) {
	p := palettes[0]
	tests := []struct {
		share  float64
		filled int
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 5},
		{1, 10},
		{3, 10},
	}
	for _, tt := range tests {
		bar := p.effortBar(tt.share, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("share %v: expected %d filled cells, got %d", tt.share, tt.filled, got)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Errorf("share %v: expected 10 cells, got %d", tt.share, got)
		}
	}

	line := p.sparkline([]float64{0, 0, 10, 10}, 2)
	if !strings.Contains(line, "▁█") {
		t.Errorf("expected low then high bucket, got %q", line)
	}
	if got := p.sparkline(nil, 4); !strings.Contains(got, "────") {
		t.Errorf("expected flat rule for empty series, got %q", got)
	}
}
