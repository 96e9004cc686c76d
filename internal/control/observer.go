package control

import (
	"github.com/san-kum/levelctl/internal/dynamo"
	"github.com/san-kum/levelctl/internal/integrators"
)

// Observer holds the single-state level estimate. It is owned by one engine
// and is not safe for concurrent use.
type Observer struct {
	model      dynamo.System
	integrator dynamo.Integrator
	xHat       dynamo.State
}

// NewObserver builds an observer over a single-state model. The update is a
// forward-Euler step, matching the discrete estimator on the rig.
func NewObserver(model dynamo.System) *Observer {
	return &Observer{
		model:      model,
		integrator: integrators.NewEuler(),
		xHat:       dynamo.State{0},
	}
}

func (o *Observer) Estimate() float64 {
	return o.xHat[0]
}

// Set overwrites the estimate.
func (o *Observer) Set(v float64) {
	o.xHat[0] = v
}

// Update advances the estimate by dt seconds given the measurement y and the
// command u actually applied, and returns the new estimate. A model that is
// not single-state leaves the estimate where it was.
func (o *Observer) Update(y, u, ke, dt float64) float64 {
	if err := dynamo.CheckDims(o.model, o.xHat, dynamo.Control{u}); err != nil {
		return o.xHat[0]
	}
	dyn := &correctedModel{model: o.model, gain: ke, measured: y}
	o.xHat = o.integrator.Step(dyn, o.xHat, dynamo.Control{u}, 0, dt)
	return o.xHat[0]
}

// correctedModel is the plant model plus the output-injection term
// Ke*(y - x̂).
type correctedModel struct {
	model    dynamo.System
	gain     float64
	measured float64
}

func (c *correctedModel) StateDim() int   { return c.model.StateDim() }
func (c *correctedModel) ControlDim() int { return c.model.ControlDim() }

func (c *correctedModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := c.model.Derive(x, u, t)
	dx[0] += c.gain * (c.measured - x[0])
	return dx
}
