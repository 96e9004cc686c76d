package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// At returns u[i], or zero when the control vector is shorter.
func (u Control) At(i int) float64 {
	if i < len(u) {
		return u[i]
	}
	return 0
}

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// CheckDims verifies x and u against the dimensions a system declares.
func CheckDims(dyn System, x State, u Control) error {
	if len(x) != dyn.StateDim() {
		return fmt.Errorf("%w: state has %d entries, system expects %d", ErrDimensionMismatch, len(x), dyn.StateDim())
	}
	if len(u) < dyn.ControlDim() {
		return fmt.Errorf("%w: control has %d entries, system expects %d", ErrDimensionMismatch, len(u), dyn.ControlDim())
	}
	return nil
}
