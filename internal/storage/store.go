package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	sceneFile    = "scene.yaml"
)

// stateColumns are the per-body CSV column suffixes, in sim.State order.
var stateColumns = [sim.BodyStateDim]string{
	"px", "py", "pz",
	"qw", "qx", "qy", "qz",
	"vx", "vy", "vz",
	"wx", "wy", "wz",
}

// StateColumns returns the per-body state column names.
func StateColumns() []string { return stateColumns[:] }

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
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Variant     string             `json:"variant,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Substeps    int                `json:"substeps"`
	Bodies      []string           `json:"bodies"`
	Constraints int                `json:"constraints"`
	Steps       int                `json:"steps"`
	Warnings    int                `json:"warnings"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewMetadata describes a run of cfg.
func NewMetadata(cfg *config.Config, variant string, result *sim.Result) RunMetadata {
	meta := RunMetadata{
		Scene:       cfg.Scene,
		Variant:     variant,
		Timestamp:   time.Now(),
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Integrator:  cfg.Integrator,
		Substeps:    cfg.Substeps,
		Constraints: len(cfg.Constraints),
		Steps:       result.StepsTaken,
		Warnings:    len(result.Warnings),
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
	for _, b := range cfg.Bodies {
		meta.Bodies = append(meta.Bodies, b.Name)
	}
	return meta
}

// Save writes a run directory holding metadata.json, states.csv and the scene
// config, and returns the run ID.
func (s *Store) Save(cfg *config.Config, variant string, result *sim.Result) (string, error) {
	meta := NewMetadata(cfg, variant, result)
	meta.ID = fmt.Sprintf("%s_%d", cfg.Scene, meta.Timestamp.UnixNano())
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, sceneFile), cfg); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, meta.Bodies, result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Header returns the CSV header for the named bodies.
func Header(bodies []string) []string {
	header := []string{"time"}
	for _, name := range bodies {
		for _, col := range stateColumns {
			header = append(header, name+"."+col)
		}
	}
	return header
}

// List returns all stored runs, oldest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadConfig returns the scene config a run was made with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, sceneFile))
}

// LoadStates reads the recorded snapshots and their times.
func (s *Store) LoadStates(runID string) ([]sim.State, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []sim.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]sim.State, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s line %d: %w", runID, i+1, err)
		}

		state := make(sim.State, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s line %d: %w", runID, i+1, err)
			}
			state = append(state, val)
		}
		times = append(times, t)
		states = append(states, state)
	}

	return states, times, nil
}
