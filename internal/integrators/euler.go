package integrators

import "github.com/san-kum/levelctl/internal/dynamo"

// Euler is the explicit forward step x += f(x, u, t) * dt. The observer
// runs on it so the estimate matches the discrete update used on the target.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
