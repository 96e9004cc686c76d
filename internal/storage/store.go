// Package storage keeps finished experiments on disk: one directory per run
// holding metadata.json and a per-tick samples.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/params"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

var ErrRunNotFound = errors.New("run not found")

var header = []string{
	"step", "time", "level", "estimate", "command", "raw_command",
	"voltage", "reference", "saturated", "timeouts",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string                      `json:"id"`
	Name      string                      `json:"name"`
	Backend   string                      `json:"backend"`
	Timestamp time.Time                   `json:"timestamp"`
	Tick      float64                     `json:"tick"`
	Duration  float64                     `json:"duration"`
	Steps     int                         `json:"steps"`
	Params    params.ControllerParameters `json:"params"`
	Reference float64                     `json:"reference"`
	Metrics   map[string]float64          `json:"metrics"`
}

// Save writes a run and returns its id. ID, Steps and Duration are filled
// from the samples; a zero Timestamp becomes now.
func (s *Store) Save(meta RunMetadata, samples []engine.Sample) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.Name == "" {
		meta.Name = "run"
	}
	meta.ID = fmt.Sprintf("%s_%d", meta.Name, meta.Timestamp.UnixNano())
	meta.Steps = len(samples)
	if n := len(samples); n > 0 {
		meta.Duration = samples[n-1].Time
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(runDir, samplesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, sm := range samples {
		if err := w.Write(row(sm)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write samples: %w", err)
	}

	return meta.ID, nil
}

func row(s engine.Sample) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return []string{
		strconv.Itoa(s.Step),
		f(s.Time),
		f(s.Level),
		f(s.Estimate),
		f(s.Command),
		f(s.RawCommand),
		f(s.Voltage),
		f(s.Reference),
		strconv.FormatBool(s.Saturated),
		strconv.Itoa(s.Timeouts),
	}
}

// List returns stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", runID, err)
	}
	return &meta, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs in %s", ErrRunNotFound, s.baseDir)
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) LoadSamples(runID string) ([]engine.Sample, error) {
	file, err := s.openSamples(runID)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []engine.Sample{}, nil
	}

	samples := make([]engine.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(header) {
			continue
		}
		sm, err := parseRow(rec)
		if err != nil {
			continue
		}
		samples = append(samples, sm)
	}
	return samples, nil
}

func parseRow(rec []string) (engine.Sample, error) {
	var sm engine.Sample
	var err error
	if sm.Step, err = strconv.Atoi(rec[0]); err != nil {
		return sm, err
	}
	floats := []*float64{&sm.Time, &sm.Level, &sm.Estimate, &sm.Command, &sm.RawCommand, &sm.Voltage, &sm.Reference}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return sm, err
		}
	}
	if sm.Saturated, err = strconv.ParseBool(rec[8]); err != nil {
		return sm, err
	}
	sm.Timeouts, err = strconv.Atoi(rec[9])
	return sm, err
}

// CopySamples streams the raw samples CSV of a run to w.
func (s *Store) CopySamples(w io.Writer, runID string) error {
	file, err := s.openSamples(runID)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}

func (s *Store) openSamples(runID string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return file, nil
}
