package control

import "math"

const (
	MinCommand = 0.0
	MaxCommand = 100.0
)

// Clamp saturates a command to [MinCommand, MaxCommand]. NaN maps to
// MinCommand so corrupt gains never reach the pump.
func Clamp(u float64) float64 {
	if math.IsNaN(u) {
		return MinCommand
	}
	return math.Max(MinCommand, math.Min(u, MaxCommand))
}
