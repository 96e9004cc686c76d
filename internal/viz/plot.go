package viz

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/levelctl/internal/engine"
)

// PlotRun renders level, estimate and setpoint on one chart and the pump
// command below it.
func PlotRun(samples []engine.Sample, width, height int) string {
	if len(samples) < 2 {
		return "not enough samples to plot\n"
	}
	level := make([]float64, len(samples))
	estimate := make([]float64, len(samples))
	reference := make([]float64, len(samples))
	command := make([]float64, len(samples))
	for i, s := range samples {
		level[i] = s.Level
		estimate[i] = s.Estimate
		reference[i] = s.Reference
		command[i] = s.Command
	}

	var b strings.Builder
	b.WriteString(asciigraph.PlotMany([][]float64{level, estimate, reference},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Yellow, asciigraph.Red),
		asciigraph.Caption("level (blue) / estimate (yellow) / setpoint (red), cm")))
	b.WriteString("\n\n")
	b.WriteString(asciigraph.Plot(command,
		asciigraph.Height(height/2),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption("pump command, %")))
	b.WriteString("\n")
	return b.String()
}
