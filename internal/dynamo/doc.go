// Package dynamo provides the core primitives shared by the level controller.
//
// The package defines the small set of interfaces the rest of the module is
// built on:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Configurable]: named runtime parameters
//
// # Example
//
//	tank := plant.NewTank(plant.DefaultA, plant.DefaultB)
//	integ := integrators.NewRK4()
//	next := integ.Step(tank, dynamo.State{level}, dynamo.Control{u}, t, dt)
//
// # Thread Safety
//
// State and Control values are plain slices and are NOT safe for concurrent
// mutation. Callers clone before sharing.
package dynamo
