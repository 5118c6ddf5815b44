package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gatebridge/internal/control"
	"github.com/san-kum/gatebridge/internal/loop"
)

const (
	width  = 60
	height = 10
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(0, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(40)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Pauser is the gate driver the dashboard can silence.
type Pauser interface {
	Toggle() bool
	Paused() bool
}

type DashboardConfig struct {
	Title   string
	Model   string
	Sampler *Sampler
	Loop    *loop.Loop
	Limits  *control.Limits
	Gate    Pauser
	// Palette names the starting palette; t cycles through the rest.
	Palette string
}

type frameMsg time.Time

// Dashboard is the bubbletea model for serve --tui.
type Dashboard struct {
	cfg      DashboardConfig
	frame    Frame
	canvas   *Canvas
	selected int
	showHelp bool
	lastTrip time.Time
	palette  int
}

func NewDashboard(cfg DashboardConfig) Dashboard {
	return Dashboard{
		cfg:     cfg,
		canvas:  NewCanvas(width, height),
		palette: paletteIndex(cfg.Palette),
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (d Dashboard) Init() tea.Cmd { return nextFrame() }

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case "p":
			if d.cfg.Gate != nil {
				d.cfg.Gate.Toggle()
			}
		case "tab":
			if d.frame.N > 0 {
				d.selected = (d.selected + 1) % d.frame.N
			}
		case "t":
			d.palette = (d.palette + 1) % len(palettes)
		case "?":
			d.showHelp = !d.showHelp
		}
	case frameMsg:
		d.frame = d.cfg.Sampler.Frame()
		if d.frame.Tripped {
			d.lastTrip = time.Time(msg)
		}
		d.draw()
		return d, nextFrame()
	}
	return d, nil
}

func (d Dashboard) colors() Palette { return palettes[d.palette] }

// status names the authorization state shown in the header.
func (d Dashboard) status() string {
	f, p := d.frame, d.colors()
	switch {
	case d.cfg.Gate != nil && d.cfg.Gate.Paused():
		return p.badge(p.Paused, "GATE PAUSED")
	case f.Valid:
		return p.badge(p.Authorized, "AUTHORIZED")
	case f.Trips > 0:
		return p.badge(p.SafeStop, "SAFE STOP")
	default:
		return p.muted("WAITING FOR GATE")
	}
}

func (d Dashboard) View() string {
	f, p := d.frame, d.colors()
	title := d.cfg.Title
	if title == "" {
		title = "gatebridge"
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(title)+"  "+d.cfg.Model) + "\n")
	s.WriteString(d.status())
	if !d.lastTrip.IsZero() && time.Since(d.lastTrip) < 2*time.Second {
		s.WriteString("  " + p.badge(p.SafeStop, "WATCHDOG TRIP"))
	}
	if f.Faulted {
		s.WriteString("  " + p.badge(p.Fault, "PLANT FAULT"))
	}
	s.WriteString("\n\n")
	s.WriteString(d.channelTable())

	left := canvasStyle.Render(d.canvas.String())
	right := statsStyle.Render(d.stats())
	s.WriteString(p.rule(width+44) + "\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n")

	if hist := d.cfg.Sampler.History(d.selected); len(hist) > 1 {
		graph := asciigraph.Plot(hist,
			asciigraph.Height(6),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("u%d", d.selected)),
		)
		s.WriteString(graphStyle.Render(graph) + "\n")
	}

	if d.showHelp {
		s.WriteString(helpStyle.Render("p pause gate · tab channel · t palette (" + p.Name + ") · ? help · q quit"))
	} else {
		s.WriteString(p.hint("? for help"))
	}
	return s.String()
}

func (d Dashboard) channelTable() string {
	f := d.frame
	var s strings.Builder
	s.WriteString(labelStyle.Render("ch") + labelStyle.Render("target") + labelStyle.Render("position") + labelStyle.Render("command") + "\n")
	for ch := 0; ch < f.N; ch++ {
		target := "-"
		if f.Valid && ch < f.Channels {
			target = fmt.Sprintf("%+.3f", f.Targets[ch])
		}
		name := fmt.Sprintf("%d", ch)
		if ch == d.selected {
			name = activeStyle.Render("▸ " + name)
		}
		row := labelStyle.Render(name) +
			valueStyle.Width(12).Render(target) +
			valueStyle.Width(12).Render(fmt.Sprintf("%+.3f", f.Positions[ch])) +
			valueStyle.Width(12).Render(fmt.Sprintf("%+9.2f", f.Commands[ch]))
		if d.cfg.Limits != nil && ch < d.cfg.Limits.Len() {
			row += " " + d.colors().effortBar(d.effort(ch), 16)
		}
		s.WriteString(row + "\n")
	}
	return s.String()
}

// effort is the command's share of its limit on the side it points to.
func (d Dashboard) effort(ch int) float64 {
	u := d.frame.Commands[ch]
	b := d.cfg.Limits.Bound(ch)
	switch {
	case u > 0 && b.Max > 0:
		return u / b.Max
	case u < 0 && b.Min < 0:
		return u / b.Min
	}
	return 0
}

func (d Dashboard) stats() string {
	f, p := d.frame, d.colors()
	var s strings.Builder
	line := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + p.value(value) + "\n")
	}

	line("tick", fmt.Sprintf("%d", f.Tick))
	if f.Valid && f.Tick >= f.SetpointTick {
		line("sp age", fmt.Sprintf("%d ms", f.Tick-f.SetpointTick))
	} else {
		line("sp age", "-")
	}
	line("trips", fmt.Sprintf("%d", f.Trips))
	if f.Ticks > 0 {
		line("safe stop", fmt.Sprintf("%.1f%%", 100*float64(f.SafeStops)/float64(f.Ticks)))
	}
	line("saturated", fmt.Sprintf("%d/%d", f.Saturated, f.N))

	if l := d.cfg.Loop; l != nil {
		b := l.Budget()
		line("timeout", fmt.Sprintf("%d ms", l.Watchdog().TimeoutMs()))
		line("overruns", fmt.Sprintf("%d", b.Overruns()))
		line("worst", b.Worst().String())
		line("margin", fmt.Sprintf("%.0f%%", 100*b.Margin()))
	}
	return s.String()
}

// draw renders every joint as an arm swinging from its own pivot.
func (d *Dashboard) draw() {
	d.canvas.Clear()
	f := d.frame
	if f.N == 0 {
		return
	}
	cw, ch := width*2, height*4
	spacing := cw / (f.N + 1)
	arm := float64(min(spacing/2, ch/2) - 1)
	py := ch / 2
	for i := 0; i < f.N; i++ {
		px := (i + 1) * spacing
		q := f.Positions[i]
		x := px + int(arm*math.Sin(q))
		y := py - int(arm*math.Cos(q))
		d.canvas.DrawLine(px, py, x, y)
		d.canvas.Dot(px, py, 1)
		if f.Valid && i < f.Channels {
			t := f.Targets[i]
			d.canvas.Dot(px+int(arm*math.Sin(t)), py-int(arm*math.Cos(t)), 1)
		}
	}
}
