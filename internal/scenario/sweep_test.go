package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/levelctl/internal/config"
	"github.com/san-kum/levelctl/internal/dynamo"
	"github.com/san-kum/levelctl/internal/telemetry"
)

func TestLinearValues(t *testing.T) {
	assert.Equal(t, []float64{10, 20, 30}, LinearValues(10, 30, 3))
	assert.Equal(t, []float64{5}, LinearValues(5, 50, 1))
}

func TestRunSweep(t *testing.T) {
	sw := Sweep{Param: "K", Values: []float64{0, 5, 50}, Workers: 2}
	results, err := RunSweep(context.Background(), config.DefaultConfig(), shortScenario(), sw, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, sw.Values[i], r.Value)
		assert.Contains(t, r.Metrics, "tracking_error")
	}
	// With K=0 the command is just Nu*rss, far below saturation.
	assert.Less(t, results[0].Metrics["saturation"], 1.0)
	assert.Equal(t, 1.0, results[2].Metrics["saturation"])
}

func TestRunSweepReference(t *testing.T) {
	sw := Sweep{Param: "rss", Values: []float64{2, 8, 16}, Workers: 3}
	results, err := RunSweep(context.Background(), config.DefaultConfig(), shortScenario(), sw, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// The scenario's own reference message must not override the sweep.
	assert.NotEqual(t, results[0].Metrics["tracking_error"], results[1].Metrics["tracking_error"])
	assert.NotEqual(t, results[1].Metrics["tracking_error"], results[2].Metrics["tracking_error"])
	assert.Less(t, results[0].Metrics["saturation"], results[2].Metrics["saturation"])
}

func TestRunSweepOverridesScenarioGain(t *testing.T) {
	sc := shortScenario()
	sc.Events = append(sc.Events, Event{At: 0, Topic: telemetry.TopicGain, Payload: "50.4975"})

	sw := Sweep{Param: "K", Values: []float64{0, 50}}
	results, err := RunSweep(context.Background(), config.DefaultConfig(), sc, sw, nil)
	require.NoError(t, err)
	assert.Less(t, results[0].Metrics["saturation"], 1.0)
	assert.Equal(t, 1.0, results[1].Metrics["saturation"])
}

func TestPinned(t *testing.T) {
	sc := StepResponse()
	got := pinned(sc, "rss", 6.25)

	for _, ev := range got.Events {
		if ev.Topic == telemetry.TopicReference {
			assert.Equal(t, "6.25", ev.Payload)
		}
	}
	assert.Equal(t, telemetry.StopPayload, got.Events[2].Payload)
	assert.Equal(t, "10.0", sc.Events[0].Payload, "original scenario untouched")
	assert.Same(t, sc, pinned(sc, "height", 1))
}

func TestRunSweepUnknownParam(t *testing.T) {
	_, err := RunSweep(context.Background(), config.DefaultConfig(), shortScenario(), Sweep{Param: "Kp", Values: []float64{1}}, nil)
	assert.True(t, errors.Is(err, dynamo.ErrUnknownParam))
}

func TestRunSweepNoValues(t *testing.T) {
	_, err := RunSweep(context.Background(), config.DefaultConfig(), shortScenario(), Sweep{Param: "K"}, nil)
	assert.Error(t, err)
}

func TestBest(t *testing.T) {
	results := []SweepResult{
		{Value: 1, Metrics: map[string]float64{"tracking_error": 3}},
		{Value: 2, Metrics: map[string]float64{"tracking_error": 1}},
		{Value: 3, Metrics: map[string]float64{}},
	}
	best, ok := Best(results, "tracking_error")
	require.True(t, ok)
	assert.Equal(t, 2.0, best.Value)

	_, ok = Best(results, "missing")
	assert.False(t, ok)
}
