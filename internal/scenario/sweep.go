package scenario

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/levelctl/internal/config"
	"github.com/san-kum/levelctl/internal/lifecycle"
	"github.com/san-kum/levelctl/internal/telemetry"
)

// paramTopics maps a swept parameter to the topic that sets it.
var paramTopics = map[string]telemetry.Topic{
	"K":   telemetry.TopicGain,
	"Ke":  telemetry.TopicObserverGain,
	"Nx":  telemetry.TopicNx,
	"Nu":  telemetry.TopicNu,
	"rss": telemetry.TopicReference,
}

// Sweep replays one scenario for each value of a controller parameter.
// Param takes the params.Store names: K, Ke, Nx, Nu or rss.
type Sweep struct {
	Param   string
	Values  []float64
	Workers int
}

type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Final   lifecycle.State
	Level   float64
}

// LinearValues returns n evenly spaced values from lo to hi inclusive.
func LinearValues(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	vals := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range vals {
		vals[i] = lo + float64(i)*step
	}
	return vals
}

// RunSweep runs the sweep on up to Workers goroutines. Scenario messages
// for the swept parameter are rewritten to the value under test. Results
// come back in the order of Values; the first failing run aborts the sweep.
func RunSweep(ctx context.Context, cfg *config.Config, sc *Scenario, sw Sweep, logger *zap.Logger) ([]SweepResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if len(sw.Values) == 0 {
		return nil, fmt.Errorf("sweep over %s has no values", sw.Param)
	}
	if err := cfg.ParamStore().SetParam(sw.Param, 0); err != nil {
		return nil, err
	}
	workers := sw.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]SweepResult, len(sw.Values))
	errs := make([]error, len(sw.Values))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, v := range sw.Values {
		wg.Add(1)
		go func(idx int, value float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			store := cfg.ParamStore()
			store.SetParam(sw.Param, value)

			res, err := run(ctx, cfg, store, pinned(sc, sw.Param, value), logger.With(zap.String(sw.Param, fmt.Sprint(value))))
			if err != nil {
				errs[idx] = err
				cancel()
				return
			}
			results[idx] = SweepResult{
				Value:   value,
				Metrics: res.Metrics,
				Final:   res.Final,
				Level:   res.Level,
			}
		}(i, v)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// pinned returns a copy of sc in which every message that sets param
// carries value instead, so the scenario keeps its timing but cannot undo
// the sweep.
func pinned(sc *Scenario, param string, value float64) *Scenario {
	topic, ok := paramTopics[param]
	if !ok {
		return sc
	}
	out := *sc
	out.Events = append([]Event(nil), sc.Events...)
	payload := strconv.FormatFloat(value, 'g', -1, 64)
	for i := range out.Events {
		if out.Events[i].Topic == topic {
			out.Events[i].Payload = payload
		}
	}
	return &out
}

// Best returns the result with the lowest value of metric.
func Best(results []SweepResult, metric string) (SweepResult, bool) {
	best := math.Inf(1)
	var out SweepResult
	found := false
	for _, r := range results {
		v, ok := r.Metrics[metric]
		if !ok || math.IsNaN(v) {
			continue
		}
		if v < best {
			best = v
			out = r
			found = true
		}
	}
	return out, found
}
