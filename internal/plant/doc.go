// Package plant models the pumped tank as a first-order linear system.
//
// The identified model is
//
//	dh/dt = A*h + B*u
//
// with h the liquid level in centimetres and u the pump command in percent.
// [Tank] implements [dynamo.System] so the same model drives the observer
// inside the controller and the simulated tank used by scenarios.
package plant
