package control

import (
	"math"
	"testing"

	"github.com/san-kum/levelctl/internal/dynamo"
	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/plant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceGains() params.ControllerParameters {
	return params.ControllerParameters{K: 50.4975, Ke: 9.9948, Nx: 1.0, Nu: 0.264}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below", -12.5, 0},
		{"zero", 0, 0},
		{"inside", 42.25, 42.25},
		{"top", 100, 100},
		{"above", 507.615, 100},
		{"negative infinity", math.Inf(-1), 0},
		{"positive infinity", math.Inf(1), 100},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.in)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, MinCommand)
			assert.LessOrEqual(t, got, MaxCommand)
		})
	}
}

func TestStateFeedbackFirstTick(t *testing.T) {
	out := StateFeedback{}.Compute(referenceGains(), 10.0, 0.0)

	assert.InDelta(t, 10.0, out.StateTarget, 1e-12)
	assert.InDelta(t, 2.64, out.CommandTarget, 1e-12)
	assert.InDelta(t, 507.615, out.Raw, 1e-9)
	assert.Equal(t, 100.0, out.Command)
	assert.True(t, out.Saturated())
}

func TestStateFeedbackAtTarget(t *testing.T) {
	out := StateFeedback{}.Compute(referenceGains(), 10.0, 10.0)

	assert.InDelta(t, 2.64, out.Command, 1e-12)
	assert.False(t, out.Saturated())
}

func TestStateFeedbackNaNGain(t *testing.T) {
	g := referenceGains()
	g.K = math.NaN()

	out := StateFeedback{}.Compute(g, 10.0, 3.0)
	assert.True(t, math.IsNaN(out.Raw))
	assert.Equal(t, 0.0, out.Command)
}

func TestObserverStep(t *testing.T) {
	obs := NewObserver(plant.NewTank(plant.DefaultA, plant.DefaultB))
	require.Equal(t, 0.0, obs.Estimate())

	y := 4.0
	got := obs.Update(y, 100, 9.9948, 0.01)

	want := (-0.0052*0 + 0.0197*100 + 9.9948*(y-0)) * 0.01
	assert.InDelta(t, want, got, 1e-12)
	assert.Equal(t, got, obs.Estimate())
}

func TestObserverTracksConstantMeasurement(t *testing.T) {
	obs := NewObserver(plant.NewTank(plant.DefaultA, plant.DefaultB))

	// With u chosen as the model's holding command, the estimate should
	// converge to the measurement.
	y := 8.0
	u := -plant.DefaultA * y / plant.DefaultB
	for i := 0; i < 2000; i++ {
		obs.Update(y, u, 9.9948, 0.01)
	}
	assert.InDelta(t, y, obs.Estimate(), 1e-6)
}

func TestObserverSet(t *testing.T) {
	obs := NewObserver(plant.NewTank(plant.DefaultA, plant.DefaultB))
	obs.Set(7.5)
	assert.Equal(t, 7.5, obs.Estimate())
}

type twoState struct{}

func (twoState) StateDim() int   { return 2 }
func (twoState) ControlDim() int { return 1 }
func (twoState) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{1, 1}
}

func TestObserverRejectsMultiStateModel(t *testing.T) {
	obs := NewObserver(twoState{})
	obs.Set(3)

	assert.Equal(t, 3.0, obs.Update(5, 100, 9.9948, 0.01))
	assert.Equal(t, 3.0, obs.Estimate())
}
