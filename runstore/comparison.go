package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
)

const ResultsFile = "results.json"

var compareNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\s-]*$`)

// ModelResult is one model's outcome inside a comparison.
type ModelResult struct {
	RunID           string     `json:"runId"`
	Model           model.Kind `json:"model"`
	Columns         []int      `json:"columns"`
	ColumnNames     []string   `json:"columnNames"`
	TrainAccuracy   *float64   `json:"trainAccuracy"`
	CompareAccuracy *float64   `json:"compareAccuracy"`
	Ratio           *float64   `json:"ratio,omitempty"`
	Imputed         bool       `json:"imputed"`
	Error           string     `json:"error,omitempty"`
}

// ComparisonResults is results.json.
type ComparisonResults struct {
	CompareID string        `json:"compareId"`
	Mask      int           `json:"mask"`
	Impute    bool          `json:"impute"`
	Dataset   string        `json:"dataset"`
	Models    []ModelResult `json:"models"`
}

type RunRef struct {
	RunID string     `json:"runId"`
	Model model.Kind `json:"model"`
}

// ComparisonRuntime is the runtime.json of a comparison.
type ComparisonRuntime struct {
	CompareID string   `json:"compare_id"`
	Dataset   string   `json:"dataset"`
	Mask      int      `json:"mask"`
	Impute    bool     `json:"impute"`
	Name      *string  `json:"name"`
	Models    []RunRef `json:"models"`
}

type NamedRun struct {
	RunID string     `json:"runId"`
	Model model.Kind `json:"model"`
	Name  *string    `json:"name"`
}

// ComparisonSummary is one entry of the comparison history.
type ComparisonSummary struct {
	CompareID string     `json:"compareId"`
	Dataset   string     `json:"dataset"`
	Timestamp int64      `json:"timestamp"`
	Name      *string    `json:"name"`
	Mask      int        `json:"mask"`
	Impute    bool       `json:"impute"`
	Models    []NamedRun `json:"models"`
}

type Comparison struct {
	Runtime ComparisonRuntime `json:"runtime"`
	Results ComparisonResults `json:"results"`
	Images  []string          `json:"images"`
}

// ComparisonDir returns the directory of a comparison. The id is not checked.
func (s *Store) ComparisonDir(compareID string) string {
	return filepath.Join(s.root, CompareDir, compareID)
}

// ComparisonImages lists the public paths of a comparison's images.
func (s *Store) ComparisonImages(compareID string) []string {
	return images(s.ComparisonDir(compareID), URLPrefix+"/"+CompareDir+"/"+compareID)
}

// WriteComparison writes results.json and runtime.json. Failures are
// reported as persistence errors.
func (s *Store) WriteComparison(res ComparisonResults, rt ComparisonRuntime) error {
	if err := ValidID(res.CompareID); err != nil {
		return err
	}
	dir := s.ComparisonDir(res.CompareID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(dir, ResultsFile, res); err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrPersistence, err)
	}
	if err := writeJSON(dir, RuntimeFile, rt); err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrPersistence, err)
	}

	return nil
}

func (s *Store) GetComparison(compareID string) (Comparison, error) {
	if err := ValidID(compareID); err != nil {
		return Comparison{}, err
	}
	dir := s.ComparisonDir(compareID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Comparison
	if err := readJSON(filepath.Join(dir, RuntimeFile), &c.Runtime); err != nil {
		return Comparison{}, fmt.Errorf("comparison %s: %w", compareID, err)
	}
	if err := readJSON(filepath.Join(dir, ResultsFile), &c.Results); err != nil {
		return Comparison{}, fmt.Errorf("comparison %s: %w", compareID, err)
	}
	c.Images = s.ComparisonImages(compareID)

	return c, nil
}

// ListComparisons returns stored comparisons, newest first, with the display
// names of the runs they compared. Unreadable entries are skipped.
func (s *Store) ListComparisons(dataset string) ([]ComparisonSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []ComparisonSummary{}
	entries, err := os.ReadDir(filepath.Join(s.root, CompareDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}

		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || ValidID(entry.Name()) != nil {
			continue
		}
		var rt ComparisonRuntime
		if err := readJSON(filepath.Join(s.root, CompareDir, entry.Name(), RuntimeFile), &rt); err != nil {
			continue
		}
		if dataset != "" && rt.Dataset != dataset {
			continue
		}
		models := make([]NamedRun, len(rt.Models))
		for i, m := range rt.Models {
			models[i] = NamedRun{RunID: m.RunID, Model: m.Model, Name: s.runName(m.RunID)}
		}
		out = append(out, ComparisonSummary{
			CompareID: entry.Name(),
			Dataset:   rt.Dataset,
			Timestamp: timestamp(entry),
			Name:      rt.Name,
			Mask:      rt.Mask,
			Impute:    rt.Impute,
			Models:    models,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}

		return out[i].CompareID > out[j].CompareID
	})

	return out, nil
}

// RenameComparison trims name and replaces spaces with underscores. An
// empty name clears it. The stored name is returned.
func (s *Store) RenameComparison(compareID, name string) (*string, error) {
	if err := ValidID(compareID); err != nil {
		return nil, err
	}
	if len(name) > maxName {
		return nil, fmt.Errorf("%w: %w: must be %d characters or less", pkgerrors.ErrValidation, ErrInvalidName, maxName)
	}
	if !compareNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %w: only letters, digits, hyphens, underscores, dots and spaces are allowed", pkgerrors.ErrValidation, ErrInvalidName)
	}
	dir := s.ComparisonDir(compareID)
	s.mu.Lock()
	defer s.mu.Unlock()

	var rt ComparisonRuntime
	if err := readJSON(filepath.Join(dir, RuntimeFile), &rt); err != nil {
		return nil, fmt.Errorf("comparison %s: %w", compareID, err)
	}
	rt.Name = nil
	if clean := strings.ReplaceAll(strings.TrimSpace(name), " ", "_"); clean != "" {
		rt.Name = &clean
	}
	if err := writeJSON(dir, RuntimeFile, rt); err != nil {
		return nil, err
	}

	return rt.Name, nil
}

func (s *Store) DeleteComparison(compareID string) error {
	if err := ValidID(compareID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return removeDir(s.ComparisonDir(compareID), "comparison "+compareID)
}

// runName is the display name recorded in a run's runtime.json. Caller
// holds the lock.
func (s *Store) runName(runID string) *string {
	if ValidID(runID) != nil || reserved(runID) {
		return nil
	}
	var rt Runtime
	if err := readJSON(filepath.Join(s.root, runID, RuntimeFile), &rt); err != nil || rt.Name == "" {
		return nil
	}

	return &rt.Name
}
