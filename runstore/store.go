// Package runstore persists training runs and comparisons as plain files
// under one output directory:
//
//	<root>/<runID>/{model.gob, runtime.json, result.json, *.id, *.png}
//	<root>/compare/<compareID>/{results.json, runtime.json, *.png}
//
// Runs are immutable once trained except for their display name.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
)

const (
	RuntimeFile = "runtime.json"
	ResultFile  = "result.json"
	ModelFile   = "model" + model.ArtifactExt
	CompareDir  = "compare"
	SweepDir    = "sweep"
	ImageExt    = ".png"
	// URLPrefix is the public path the output directory is served under.
	URLPrefix = "/output"
)

var errInvalidID = errors.New("invalid id")

// DatasetParams is the dataset shaping a run was trained with. IgnoreColumns
// is nil when the key was absent from runtime.json.
type DatasetParams struct {
	Mask          int     `json:"mask"`
	Split         float64 `json:"split"`
	Impute        bool    `json:"impute"`
	IgnoreColumns []int   `json:"ignore_columns"`
	UseOutput     bool    `json:"use_output"`
	Images        bool    `json:"images"`
}

// Runtime is the runtime.json record of a training run.
type Runtime struct {
	RunID         string        `json:"run_id"`
	Dataset       string        `json:"dataset"`
	Model         model.Kind    `json:"model"`
	Name          string        `json:"name,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	DatasetParams DatasetParams `json:"datasetParams"`
	ModelParams   model.Params  `json:"modelParams"`
}

// Result is the result.json snapshot of a training run. NaN scores are
// stored as null.
type Result struct {
	Accuracy             *float64            `json:"accuracy"`
	ClassificationReport model.Report        `json:"classification_report,omitempty"`
	Params               model.Params        `json:"params,omitempty"`
	ModelInfo            map[string]any      `json:"model_info,omitempty"`
	FeatureImportance    map[string]*float64 `json:"feature_importance,omitempty"`
}

// Nullable maps NaN and infinities to nil.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}

// RunSummary is one entry of the run history.
type RunSummary struct {
	RunID     string  `json:"runId"`
	Model     string  `json:"model"`
	Dataset   string  `json:"dataset"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
	Name      string  `json:"name,omitempty"`
}

// RunFilter narrows ListRuns. Empty fields match everything.
type RunFilter struct {
	Model   string
	Dataset string
}

type Store struct {
	root string
	mu   sync.RWMutex
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Store{root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

// RunDir returns the directory of a run. The id is not checked.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *Store) WriteRuntime(rt Runtime) error {
	dir, err := s.runDir(rt.RunID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(dir, RuntimeFile, rt)
}

func (s *Store) ReadRuntime(runID string) (Runtime, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return Runtime{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rt Runtime
	if err := readJSON(filepath.Join(dir, RuntimeFile), &rt); err != nil {
		return Runtime{}, fmt.Errorf("runtime of run %s: %w", runID, err)
	}

	return rt, nil
}

func (s *Store) WriteResult(runID string, res Result) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(dir, ResultFile, res)
}

func (s *Store) ReadResult(runID string) (Result, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return Result{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res Result
	if err := readJSON(filepath.Join(dir, ResultFile), &res); err != nil {
		return Result{}, fmt.Errorf("result of run %s: %w", runID, err)
	}

	return res, nil
}

func (s *Store) WriteModel(runID string, c model.Classifier) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, ModelFile))
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := model.Encode(f, c); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

func (s *Store) ReadModel(runID string) (model.Classifier, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(filepath.Join(dir, ModelFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: model artifact of run %s", pkgerrors.ErrNotFound, runID)
		}

		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	return model.Decode(f)
}

// ReadTrainAccuracy reads result.json and falls back to the marker file only
// when result.json is absent or unreadable. A readable null accuracy stays nil.
func (s *Store) ReadTrainAccuracy(runID string) *float64 {
	if res, err := s.ReadResult(runID); err == nil {
		return res.Accuracy
	}
	dir, err := s.runDir(runID)
	if err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, _, ok := findMarker(dir)
	if !ok {
		return nil
	}
	acc := m.Accuracy()

	return &acc
}

// Validate checks a run is usable for a comparison on dataset. A non-empty
// expected kind must also match the recorded model.
func (s *Store) Validate(runID, dataset string, expected model.Kind) (Runtime, error) {
	rt, err := s.ReadRuntime(runID)
	if err != nil {
		return Runtime{}, err
	}
	if rt.Dataset != dataset {
		return Runtime{}, fmt.Errorf("%w: run %s was trained on %q, expected %q", pkgerrors.ErrValidation, runID, rt.Dataset, dataset)
	}
	if !rt.Model.Valid() {
		return Runtime{}, fmt.Errorf("%w: run %s has unknown model %q", pkgerrors.ErrValidation, runID, rt.Model)
	}
	if expected != "" && rt.Model != expected {
		return Runtime{}, fmt.Errorf("%w: run %s is a %s model, expected %s", pkgerrors.ErrValidation, runID, rt.Model, expected)
	}

	return rt, nil
}

// ListRuns returns every run with a readable marker, newest first.
func (s *Store) ListRuns(filter RunFilter) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []RunSummary{}, nil
		}

		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := []RunSummary{}
	for _, entry := range entries {
		if !entry.IsDir() || reserved(entry.Name()) {
			continue
		}
		m, _, ok := findMarker(filepath.Join(s.root, entry.Name()))
		if !ok {
			continue
		}
		if filter.Model != "" && m.Model != filter.Model {
			continue
		}
		if filter.Dataset != "" && m.Dataset != filter.Dataset {
			continue
		}
		runs = append(runs, RunSummary{
			RunID:     entry.Name(),
			Model:     m.Model,
			Dataset:   m.Dataset,
			Accuracy:  m.Accuracy(),
			Timestamp: timestamp(entry),
			Name:      m.Name,
		})
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp != runs[j].Timestamp {
			return runs[i].Timestamp > runs[j].Timestamp
		}

		return runs[i].RunID > runs[j].RunID
	})

	return runs, nil
}

// RenameRun rewrites the marker suffix and the runtime name. An empty name
// clears it.
func (s *Store) RenameRun(runID, name string) error {
	if err := ValidateRunName(name); err != nil {
		return err
	}
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: run %s", pkgerrors.ErrNotFound, runID)
	}
	m, old, ok := findMarker(dir)
	if !ok {
		return fmt.Errorf("%w: marker of run %s", pkgerrors.ErrNotFound, runID)
	}
	m.Name = name
	if next := m.FileName(); next != old {
		if err := os.Rename(filepath.Join(dir, old), filepath.Join(dir, next)); err != nil {
			return fmt.Errorf("failed to rename marker: %w", err)
		}
	}

	var rt Runtime
	switch err := readJSON(filepath.Join(dir, RuntimeFile), &rt); {
	case err == nil:
		rt.Name = name

		return writeJSON(dir, RuntimeFile, rt)
	case errors.Is(err, pkgerrors.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *Store) DeleteRun(runID string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return removeDir(dir, "run "+runID)
}

// RunImages lists the public paths of a run's images.
func (s *Store) RunImages(runID string) ([]string, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return images(dir, URLPrefix+"/"+runID), nil
}

func (s *Store) runDir(runID string) (string, error) {
	if err := ValidID(runID); err != nil {
		return "", err
	}
	if reserved(runID) {
		return "", fmt.Errorf("%w: %q is reserved", pkgerrors.ErrValidation, runID)
	}

	return filepath.Join(s.root, runID), nil
}

// ValidID accepts ids that are safe to use as a single path element.
func ValidID(id string) error {
	if id == "" || SanitizeID(id) != id {
		return fmt.Errorf("%w: %w %q", pkgerrors.ErrValidation, errInvalidID, id)
	}

	return nil
}

// SanitizeID strips control characters, path traversal and anything outside
// [A-Za-z0-9_-] from id.
func SanitizeID(id string) string {
	var clean strings.Builder
	for _, r := range id {
		if r < 32 || r == 127 {
			continue
		}
		clean.WriteRune(r)
	}

	result := strings.ReplaceAll(clean.String(), "..", "")
	result = strings.ReplaceAll(result, "/", "")
	result = strings.ReplaceAll(result, "\\", "")
	result = strings.TrimSpace(result)

	var final strings.Builder
	for _, r := range result {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			final.WriteRune(r)
		}
	}

	return final.String()
}

func reserved(name string) bool {
	return name == CompareDir || name == SweepDir
}

// timestamp prefers a unix-seconds directory name and falls back to the
// directory modification time.
func timestamp(entry fs.DirEntry) int64 {
	if len(entry.Name()) == 10 {
		if ts, err := strconv.ParseInt(entry.Name(), 10, 64); err == nil {
			return ts
		}
	}
	info, err := entry.Info()
	if err != nil {
		return 0
	}

	return info.ModTime().Unix()
}

func images(dir, prefix string) []string {
	out := []string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ImageExt) {
			out = append(out, prefix+"/"+e.Name())
		}
	}
	slices.Sort(out)

	return out
}

func removeDir(dir, what string) error {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, what)
		}

		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}

	return nil
}

func writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, filepath.Base(path))
		}

		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", pkgerrors.ErrInvalidData, filepath.Base(path), err)
	}

	return nil
}
