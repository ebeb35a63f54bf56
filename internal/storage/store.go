package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/san-kum/dpdsim/internal/config"
	"github.com/san-kum/dpdsim/internal/sim"
	"github.com/san-kum/dpdsim/internal/store"
)

// File names inside a run directory.
const (
	MetadataFile   = "metadata.json"
	ConfigFile     = "config.yaml"
	SamplesFile    = "samples.csv"
	SnapshotFile   = "snapshot.csv"
	CheckpointFile = "checkpoint.json"
)

// Store keeps one directory per run under baseDir.
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
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int64              `json:"steps"`
	StepsTaken int64              `json:"steps_taken"`
	Beads      int                `json:"beads"`
	Workers    int                `json:"workers"`
	Stopped    bool               `json:"stopped"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

func (s *Store) dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) path(runID, file string) string {
	return filepath.Join(s.dir(runID), file)
}

// Create makes a new run directory holding a copy of cfg.
func (s *Store) Create(cfg *config.Config) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", cfg.Name, now.Unix())
	for i := 1; ; i++ {
		if _, err := os.Stat(s.dir(runID)); errors.Is(err, os.ErrNotExist) {
			break
		}
		runID = fmt.Sprintf("%s_%d_%d", cfg.Name, now.Unix(), i)
	}
	if err := os.MkdirAll(s.dir(runID), 0755); err != nil {
		return "", err
	}
	if err := config.Save(s.path(runID, ConfigFile), cfg); err != nil {
		return "", err
	}
	meta := RunMetadata{
		ID:        runID,
		Name:      cfg.Name,
		Timestamp: now,
		Seed:      cfg.Seed,
		Dt:        cfg.Dt,
		Steps:     cfg.Steps,
		Workers:   cfg.Workers,
		Metrics:   map[string]float64{},
	}
	if err := s.SaveMetadata(&meta); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) SaveMetadata(meta *RunMetadata) error {
	return writeJSON(s.path(meta.ID, MetadataFile), meta)
}

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
		var meta RunMetadata
		if err := readJSON(s.path(entry.Name(), MetadataFile), &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := readJSON(s.path(runID, MetadataFile), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(s.path(runID, ConfigFile))
}

// AppendSamples adds samples to the run's samples.csv, writing the header
// when the file is new.
func (s *Store) AppendSamples(runID string, samples []sim.Sample) error {
	path := s.path(runID, SamplesFile)
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if err := store.WriteSamplesCSV(f, samples, fresh); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TruncateSamples drops samples recorded after step, so a resumed run does
// not duplicate rows written after its checkpoint.
func (s *Store) TruncateSamples(runID string, step int64) error {
	samples, err := s.LoadSamples(runID)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(samples, func(smp sim.Sample) bool { return smp.Step > step })
	f, err := os.Create(s.path(runID, SamplesFile))
	if err != nil {
		return err
	}
	if err := store.WriteSamplesCSV(f, kept, true); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	f, err := os.Open(s.path(runID, SamplesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return store.ReadSamplesCSV(f)
}

// LoadSeries returns time and the named field of every sample.
func (s *Store) LoadSeries(runID, field string) ([]float64, []float64, error) {
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	times := make([]float64, 0, len(samples))
	values := make([]float64, 0, len(samples))
	for _, smp := range samples {
		v, ok := smp.Field(field)
		if !ok {
			return nil, nil, fmt.Errorf("unknown field: %s (have %v)", field, sim.SampleFields)
		}
		times = append(times, smp.Time)
		values = append(values, v)
	}
	return times, values, nil
}

func (s *Store) SaveSnapshot(runID string, beads iter.Seq[sim.BeadSnapshot]) error {
	f, err := os.Create(s.path(runID, SnapshotFile))
	if err != nil {
		return err
	}
	if err := store.WriteSnapshotCSV(f, beads); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) LoadSnapshot(runID string) ([]sim.BeadSnapshot, error) {
	f, err := os.Open(s.path(runID, SnapshotFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return store.ReadSnapshotCSV(f)
}

// SaveCheckpoint replaces the run's checkpoint atomically.
func (s *Store) SaveCheckpoint(runID string, cp *sim.Checkpoint) error {
	return writeJSON(s.path(runID, CheckpointFile), cp)
}

func (s *Store) LoadCheckpoint(runID string) (*sim.Checkpoint, error) {
	var cp sim.Checkpoint
	if err := readJSON(s.path(runID, CheckpointFile), &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
