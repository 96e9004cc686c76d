package control

import "github.com/san-kum/levelctl/internal/params"

// Output is the result of one evaluation of the feedback law.
type Output struct {
	StateTarget   float64 // x_ss = Nx * r
	CommandTarget float64 // u_ss = Nu * r
	Raw           float64
	Command       float64
}

// Saturated reports whether the clamp changed the command.
func (o Output) Saturated() bool {
	return o.Raw != o.Command
}

// StateFeedback is the single-state regulator with feedforward reference
// scaling. It is stateless; the estimate lives in the Observer.
type StateFeedback struct{}

func (StateFeedback) Compute(g params.ControllerParameters, reference, estimate float64) Output {
	xss := g.Nx * reference
	uss := g.Nu * reference
	raw := uss - g.K*(estimate-xss)
	return Output{
		StateTarget:   xss,
		CommandTarget: uss,
		Raw:           raw,
		Command:       Clamp(raw),
	}
}
