package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/params"
)

func testSamples() []engine.Sample {
	return []engine.Sample{
		{Step: 1, Time: 0.01, Level: 4, Estimate: 0.42, Command: 100, RawCommand: 507.615, Voltage: 12, Reference: 10, Saturated: true},
		{Step: 2, Time: 0.02, Level: 4.1, Estimate: 0.81, Command: 100, RawCommand: 487.9, Voltage: 12, Reference: 10, Saturated: true, Timeouts: 1},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{
		Name:      "step",
		Backend:   "sim",
		Tick:      0.01,
		Params:    params.DefaultParameters(),
		Reference: 10,
		Metrics:   map[string]float64{"control_effort": 1.5},
	}, testSamples())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "step_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Backend != "sim" {
		t.Errorf("expected backend sim, got %q", meta.Backend)
	}
	if meta.Steps != 2 || meta.Duration != 0.02 {
		t.Errorf("expected 2 steps over 0.02s, got %d over %v", meta.Steps, meta.Duration)
	}
	if meta.Params.K != params.DefaultK {
		t.Errorf("expected K %v, got %v", params.DefaultK, meta.Params.K)
	}
	if meta.Metrics["control_effort"] != 1.5 {
		t.Errorf("expected control_effort 1.5, got %f", meta.Metrics["control_effort"])
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	got := samples[1]
	if got.Step != 2 || got.Level != 4.1 || !got.Saturated || got.Timeouts != 1 {
		t.Errorf("sample did not survive round trip: %+v", got)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"later", "earlier"} {
		ts := base.Add(time.Duration(1-i) * time.Hour)
		if _, err := st.Save(RunMetadata{Name: name, Timestamp: ts}, nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Name != "earlier" {
		t.Errorf("expected oldest first, got %s", runs[0].Name)
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.Name != "later" {
		t.Errorf("expected latest run 'later', got %s", latest.Name)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
	if _, err := st.Latest(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Name: "test"}, testSamples())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "samples.csv")); os.IsNotExist(err) {
		t.Error("samples.csv not created")
	}

	var buf bytes.Buffer
	if err := st.CopySamples(&buf, runID); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "step,time,level,estimate") {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestStoreUnknownRun(t *testing.T) {
	st := New(t.TempDir())

	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("load: expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadSamples("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("samples: expected ErrRunNotFound, got %v", err)
	}
	if err := st.CopySamples(&bytes.Buffer{}, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("copy: expected ErrRunNotFound, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(2)
	for i := 1; i <= 3; i++ {
		r.OnTick(engine.Sample{Step: i})
	}

	got := r.Samples()
	if len(got) != 2 || got[0].Step != 2 || got[1].Step != 3 {
		t.Errorf("expected the last two samples, got %+v", got)
	}

	got[0].Step = 99
	if r.Samples()[0].Step != 2 {
		t.Error("Samples must return a copy")
	}

	r.Reset()
	if r.Len() != 0 {
		t.Errorf("expected empty recorder after reset, got %d", r.Len())
	}
}
