package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette maps the bridge's display roles to colours.
type Palette struct {
	Name       string
	Authorized lipgloss.Color // fresh setpoint driving the plant
	SafeStop   lipgloss.Color // watchdog tripped, commands held at zero
	Paused     lipgloss.Color // gate driver silenced from the dashboard
	Fault      lipgloss.Color
	Value      lipgloss.Color
	Muted      lipgloss.Color
}

var palettes = []Palette{
	{
		Name:       "control-room",
		Authorized: lipgloss.Color("#00d787"),
		SafeStop:   lipgloss.Color("#ff3b30"),
		Paused:     lipgloss.Color("#ffaf00"),
		Fault:      lipgloss.Color("#ff5fd7"),
		Value:      lipgloss.Color("#00ccff"),
		Muted:      lipgloss.Color("#6c6c8a"),
	},
	{
		Name:       "amber",
		Authorized: lipgloss.Color("#ffd75f"),
		SafeStop:   lipgloss.Color("#ff5f00"),
		Paused:     lipgloss.Color("#d78700"),
		Fault:      lipgloss.Color("#ff0000"),
		Value:      lipgloss.Color("#ffaf00"),
		Muted:      lipgloss.Color("#875f00"),
	},
	{
		Name:       "mono",
		Authorized: lipgloss.Color("#ffffff"),
		SafeStop:   lipgloss.Color("#ffffff"),
		Paused:     lipgloss.Color("#bcbcbc"),
		Fault:      lipgloss.Color("#ffffff"),
		Value:      lipgloss.Color("#d0d0d0"),
		Muted:      lipgloss.Color("#808080"),
	},
}

// PaletteNames lists the palettes in cycling order.
func PaletteNames() []string {
	names := make([]string, len(palettes))
	for i, p := range palettes {
		names[i] = p.Name
	}
	return names
}

// paletteIndex returns the position of name, or 0 when unknown.
func paletteIndex(name string) int {
	for i, p := range palettes {
		if p.Name == name {
			return i
		}
	}
	return 0
}

func (p Palette) badge(c lipgloss.Color, text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(text)
}

func (p Palette) muted(text string) string {
	return lipgloss.NewStyle().Foreground(p.Muted).Render(text)
}

func (p Palette) hint(text string) string {
	return lipgloss.NewStyle().Foreground(p.Muted).Italic(true).Render(text)
}

func (p Palette) value(text string) string {
	return lipgloss.NewStyle().Foreground(p.Value).Bold(true).Render(text)
}

// effortBar fills width cells with the command's share of its limit. The
// bar turns to the safe-stop colour once the command is effectively
// saturated.
func (p Palette) effortBar(share float64, width int) string {
	filled := int(math.Round(min(max(share, 0), 1) * float64(width)))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := p.Authorized
	switch {
	case share >= 0.95:
		c = p.SafeStop
	case share >= 0.6:
		c = p.Paused
	}
	return lipgloss.NewStyle().Foreground(c).Render(bar)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline averages values into width buckets and draws one rune per
// bucket, scaled to the series range.
func (p Palette) sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return p.muted(strings.Repeat("─", max(width, 0)))
	}
	buckets := min(width, len(values))
	means := make([]float64, buckets)
	lo, hi := math.Inf(1), math.Inf(-1)
	for b := range means {
		from, to := b*len(values)/buckets, (b+1)*len(values)/buckets
		var sum float64
		for _, v := range values[from:to] {
			sum += v
		}
		means[b] = sum / float64(to-from)
		lo = min(lo, means[b])
		hi = max(hi, means[b])
	}

	span := hi - lo
	var sb strings.Builder
	for _, m := range means {
		idx := 0
		if span > 0 {
			idx = int((m - lo) / span * float64(len(sparkRunes)-1))
		}
		sb.WriteRune(sparkRunes[idx])
	}
	return p.value(sb.String())
}

func (p Palette) rule(width int) string {
	return p.muted(strings.Repeat("─", max(width, 0)))
}
