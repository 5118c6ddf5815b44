package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/gatebridge/internal/storage"
)

const (
	svgTargetColor   = "#ffaf00"
	svgPositionColor = "#00d7af"
	svgCommandColor  = "#ff5fd7"
)

// TraceSVG renders one channel of a trace as two stacked panels: target
// and position on top, command below. Ticks run along the x axis.
func TraceSVG(trace *storage.Trace, ch, width, height int) (string, error) {
	if ch < 0 || ch >= trace.Channels {
		return "", fmt.Errorf("channel %d out of range (0..%d)", ch, trace.Channels-1)
	}
	if len(trace.Rows) < 2 {
		return "", fmt.Errorf("trace has %d rows, need at least 2", len(trace.Rows))
	}

	panel := height / 2
	targets := trace.Targets(ch)
	positions := trace.Positions(ch)
	commands := trace.Commands(ch)

	lo, hi := bounds(targets, positions)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	writePath(&sb, targets, lo, hi, width, panel, 0, svgTargetColor, "4 2")
	writePath(&sb, positions, lo, hi, width, panel, 0, svgPositionColor, "")
	clo, chi := bounds(commands)
	writePath(&sb, commands, clo, chi, width, panel, panel, svgCommandColor, "")
	fmt.Fprintf(&sb, `<line x1="0" y1="%d" x2="%d" y2="%d" stroke="#303030"/>
`, panel, width, panel)
	fmt.Fprintf(&sb, `<text x="4" y="12" fill="#8a8a8a" font-size="10" font-family="monospace">ch%d target/position</text>
<text x="4" y="%d" fill="#8a8a8a" font-size="10" font-family="monospace">ch%d command</text>
`, ch, panel+12, ch)
	sb.WriteString("</svg>")
	return sb.String(), nil
}

func bounds(series ...[]float64) (float64, float64) {
	lo, hi := series[0][0], series[0][0]
	for _, s := range series {
		for _, v := range s {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - span*0.1, hi + span*0.1
}

func writePath(sb *strings.Builder, values []float64, lo, hi float64, width, height, top int, color, dash string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5"`, color)
	if dash != "" {
		fmt.Fprintf(sb, ` stroke-dasharray="%s"`, dash)
	}
	sb.WriteString(` d="M`)
	last := float64(len(values) - 1)
	for i, v := range values {
		x := float64(i) / last * float64(width)
		y := float64(top) + float64(height) - (v-lo)/(hi-lo)*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString("\"/>\n")
}
