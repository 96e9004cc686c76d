// Package control provides the observer-based state-feedback law that
// regulates the tank level.
//
//   - [StateFeedback]: u = Nu*r - K*(x̂ - Nx*r), saturated to [0, 100]
//   - [Observer]: Luenberger estimate x̂' = a*x̂ + b*u + Ke*(y - x̂)
//
// # Usage
//
//	law := control.StateFeedback{}
//	obs := control.NewObserver(plant.NewTank(plant.DefaultA, plant.DefaultB))
//	out := law.Compute(gains, rss, obs.Estimate())
//	obs.Update(y, out.Command, gains.Ke, dt)
//
// The estimate, not the raw measurement, drives the feedback law.
package control
