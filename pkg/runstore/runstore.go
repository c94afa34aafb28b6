// Package runstore persists and reconstructs run artifacts.
//
// Every run owns one directory under the configured output root:
//
//	run_<timestamp>_<id>/
//	  run_input.json          original generation input (required)
//	  planning.json           pre-loop planning output (optional)
//	  iter_<n>/details.json   per-iteration description and critique
//	  iter_<n>/diagram.png    the image rendered that iteration
//	  final_diagram.png       copy of the accepted image
//
// The directory tree is the only state: resuming an interrupted run is a
// pure read of these files, so reconstruction is idempotent and has no
// side effects.
package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

const (
	runInputFile  = "run_input.json"
	planningFile  = "planning.json"
	detailsFile   = "details.json"
	iterDirPrefix = "iter_"
	runDirPrefix  = "run_"

	// IterationImageName is the rendered image inside each iteration dir.
	IterationImageName = "diagram.png"

	// FinalImageName is the accepted image at the run root.
	FinalImageName = "final_diagram.png"
)

// Store manages run directories under a single output root.
type Store struct {
	rootDir string
}

// NewStore creates the output root if needed.
func NewStore(rootDir string) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "create output directory")
	}
	return &Store{rootDir: rootDir}, nil
}

// Root returns the output root directory.
func (s *Store) Root() string { return s.rootDir }

// RunDir returns the directory for a run id.
func (s *Store) RunDir(runID string) string { return filepath.Join(s.rootDir, runID) }

// NewRunID produces a sortable, collision-resistant run identifier such as
// run_20260829_142233_a1b2c3.
func NewRunID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return runDirPrefix + time.Now().Format("20060102_150405") + "_" + suffix
}

// CreateRun allocates a fresh run directory and persists the input.
func (s *Store) CreateRun(input *types.GenerationInput) (string, error) {
	runID := NewRunID()
	if err := os.MkdirAll(s.RunDir(runID), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "create run directory")
	}
	if err := s.writeJSON(filepath.Join(s.RunDir(runID), runInputFile), input); err != nil {
		return "", err
	}
	return runID, nil
}

// SavePlanning persists the planning stage output.
func (s *Store) SavePlanning(runID string, rec *types.PlanningRecord) error {
	return s.writeJSON(filepath.Join(s.RunDir(runID), planningFile), rec)
}

// SaveIteration persists one refinement iteration. The image may be nil when
// the iteration failed before rendering.
func (s *Store) SaveIteration(runID string, n int, rec *types.IterationRecord, image []byte) error {
	dir := filepath.Join(s.RunDir(runID), fmt.Sprintf("%s%d", iterDirPrefix, n))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "create iteration directory")
	}
	if err := s.writeJSON(filepath.Join(dir, detailsFile), rec); err != nil {
		return err
	}
	if len(image) > 0 {
		if err := os.WriteFile(filepath.Join(dir, IterationImageName), image, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "write iteration image")
		}
	}
	return nil
}

// SaveFinalImage copies the accepted image to the run root.
func (s *Store) SaveFinalImage(runID string, image []byte) (string, error) {
	path := filepath.Join(s.RunDir(runID), FinalImageName)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "write final image")
	}
	return path, nil
}

// IterationImagePath returns where an iteration's image lives.
func (s *Store) IterationImagePath(runID string, n int) string {
	return filepath.Join(s.RunDir(runID), fmt.Sprintf("%s%d", iterDirPrefix, n), IterationImageName)
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "marshal "+filepath.Base(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "write "+filepath.Base(path))
	}
	return nil
}

// RunInfo summarizes one run directory for listings.
type RunInfo struct {
	RunID      string
	Modified   time.Time
	Iterations int
	HasFinal   bool
}

// ListRuns enumerates run directories, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read output directory")
	}

	var runs []RunInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), runDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		last, _ := lastIteration(filepath.Join(s.rootDir, entry.Name()))
		_, statErr := os.Stat(filepath.Join(s.rootDir, entry.Name(), FinalImageName))
		runs = append(runs, RunInfo{
			RunID:      entry.Name(),
			Modified:   info.ModTime(),
			Iterations: last,
			HasFinal:   statErr == nil,
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Modified.After(runs[j].Modified) })
	return runs, nil
}

// ResumeState is everything needed to re-enter the refinement loop.
type ResumeState struct {
	RunID           string
	Input           *types.GenerationInput
	Planning        *types.PlanningRecord
	LastIteration   int
	LastDescription string
}

// LoadResumeState reconstructs run state purely from the directory tree.
// See [Store] for the layout. Missing directory, missing run_input.json and
// an unrecognized diagram type are hard failures; everything else degrades
// to the best available description.
func LoadResumeState(rootDir, runID string) (*ResumeState, error) {
	runDir := filepath.Join(rootDir, runID)
	if info, err := os.Stat(runDir); err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrCodeRunNotFound, "run directory not found: %s", runDir)
	}

	inputData, err := os.ReadFile(filepath.Join(runDir, runInputFile))
	if err != nil {
		return nil, errors.New(errors.ErrCodeRunInputMissing, "run_input.json not found in %s (incompatible or pre-resume run layout)", runDir)
	}
	var input types.GenerationInput
	if err := json.Unmarshal(inputData, &input); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRunCorrupt, err, "parse run_input.json")
	}
	if _, err := types.ParseDiagramType(string(input.DiagramType)); err != nil {
		return nil, err
	}

	state := &ResumeState{RunID: runID, Input: &input}

	if data, err := os.ReadFile(filepath.Join(runDir, planningFile)); err == nil {
		var planning types.PlanningRecord
		if err := json.Unmarshal(data, &planning); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRunCorrupt, err, "parse planning.json")
		}
		state.Planning = &planning
	}

	last, err := lastIteration(runDir)
	if err != nil {
		return nil, err
	}
	state.LastIteration = last

	if last == 0 {
		if state.Planning != nil {
			state.LastDescription = state.Planning.BestDescription()
		}
		return state, nil
	}

	data, err := os.ReadFile(filepath.Join(runDir, fmt.Sprintf("%s%d", iterDirPrefix, last), detailsFile))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRunCorrupt, err, "read iter_%d/details.json", last)
	}
	var rec types.IterationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRunCorrupt, err, "parse iter_%d/details.json", last)
	}

	// Same rule as the live loop: an empty revision never blanks the
	// working description.
	state.LastDescription = rec.Critique.NextDescription(rec.Description)
	return state, nil
}

// lastIteration returns the highest iter_<n> present under runDir, 0 if none.
func lastIteration(runDir string) (int, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeRunCorrupt, err, "read run directory")
	}
	last := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), iterDirPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), iterDirPrefix))
		if err != nil || n <= 0 {
			continue
		}
		if n > last {
			last = n
		}
	}
	return last, nil
}
