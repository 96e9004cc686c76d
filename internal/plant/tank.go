package plant

import (
	"fmt"
	"math"

	"github.com/san-kum/levelctl/internal/dynamo"
)

const (
	// Identified on the reference rig, per second.
	DefaultA = -0.0052
	DefaultB = 0.0197

	DefaultTotalHeight = 20.0
)

type Tank struct {
	A float64
	B float64
	// Height bounds the physical level; zero disables bounding.
	Height float64
}

func NewTank(a, b float64) *Tank {
	return &Tank{A: a, B: b, Height: DefaultTotalHeight}
}

func (k *Tank) StateDim() int   { return 1 }
func (k *Tank) ControlDim() int { return 1 }

func (k *Tank) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{k.A*x[0] + k.B*u.At(0)}
}

// Bound clamps a level to what the tank can physically hold.
func (k *Tank) Bound(level float64) float64 {
	if k.Height <= 0 {
		return level
	}
	return math.Max(0, math.Min(level, k.Height))
}

// SteadyState returns the level the model settles at under constant u.
func (k *Tank) SteadyState(u float64) float64 {
	if k.A == 0 {
		return math.Inf(1)
	}
	return -k.B * u / k.A
}

func (k *Tank) GetParams() map[string]float64 {
	return map[string]float64{
		"a":      k.A,
		"b":      k.B,
		"height": k.Height,
	}
}

func (k *Tank) SetParam(name string, value float64) error {
	switch name {
	case "a":
		k.A = value
	case "b":
		k.B = value
	case "height":
		if value < 0 {
			return fmt.Errorf("%w: height %f", dynamo.ErrParameterBounds, value)
		}
		k.Height = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
