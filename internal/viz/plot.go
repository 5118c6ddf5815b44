package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gatebridge/internal/storage"
)

// PlotChannel renders target and position of one channel over the run, with
// the commanded effort below them.
func PlotChannel(trace *storage.Trace, ch, plotWidth, plotHeight int) (string, error) {
	if ch < 0 || ch >= trace.Channels {
		return "", fmt.Errorf("channel %d out of range, trace has %d", ch, trace.Channels)
	}
	if len(trace.Rows) == 0 {
		return "", fmt.Errorf("trace is empty")
	}

	var b strings.Builder
	b.WriteString(asciigraph.PlotMany(
		[][]float64{trace.Targets(ch), trace.Positions(ch)},
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(asciigraph.Yellow, asciigraph.Green),
		asciigraph.SeriesLegends("target", "position"),
		asciigraph.Caption(fmt.Sprintf("channel %d", ch)),
	))
	b.WriteString("\n\n")
	b.WriteString(asciigraph.Plot(
		trace.Commands(ch),
		asciigraph.Height(plotHeight/2+1),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(asciigraph.Cyan),
		asciigraph.Caption(fmt.Sprintf("command u%d", ch)),
	))
	b.WriteString("\n")
	return b.String(), nil
}

// Summary is a one-line sparkline per channel of the commands.
func Summary(trace *storage.Trace, sparkWidth int) string {
	var b strings.Builder
	for ch := 0; ch < trace.Channels; ch++ {
		fmt.Fprintf(&b, "u%-2d %s\n", ch, palettes[0].sparkline(trace.Commands(ch), sparkWidth))
	}
	return b.String()
}
