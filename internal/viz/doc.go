// Package viz renders control runs in the terminal.
//
// [Monitor] is a Bubble Tea dashboard attached to a running engine: a tank
// gauge, live readouts and a level/estimate graph. Keys send the same
// messages an operator app would, over the same bus:
//
//	Up/K, Down/J - Raise/lower the setpoint by 0.5 cm
//	S            - Start (re-send the current setpoint)
//	X            - Terminate the experiment
//	Tab          - Cycle the selected gain
//	+/-          - Scale the selected gain by 5%
//	T            - Cycle color themes
//	?            - Toggle help
//	Q            - Quit
//
// [PlotRun] draws stored samples with asciigraph for the plot command.
package viz
