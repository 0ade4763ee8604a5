package runstore

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	pkgerrors "github.com/absmach/masklab/pkg/errors"
)

const (
	MarkerExt  = ".id"
	scoreScale = 1_000_000
	maxName    = 50
)

var (
	markerPattern  = regexp.MustCompile(`^([^_]+)_([^_]+)_(\d+)(?:_(.+))?\.id$`)
	runNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)

	ErrInvalidName = errors.New("invalid name")
)

// Marker is the zero-byte file that lists a run in the history. Its name
// encodes model, dataset, accuracy scaled by one million and an optional
// display name: tree_Iris_973333_baseline.id.
type Marker struct {
	Model   string
	Dataset string
	Score   int
	Name    string
}

// NewMarker scores acc to six digits.
func NewMarker(model, dataset string, acc float64, name string) Marker {
	score := 0
	if !math.IsNaN(acc) {
		score = int(math.Round(acc * scoreScale))
	}

	return Marker{Model: model, Dataset: dataset, Score: score, Name: name}
}

func (m Marker) FileName() string {
	name := fmt.Sprintf("%s_%s_%06d", m.Model, m.Dataset, m.Score)
	if m.Name != "" {
		name += "_" + m.Name
	}

	return name + MarkerExt
}

func (m Marker) Accuracy() float64 {
	return float64(m.Score) / scoreScale
}

func ParseMarker(name string) (Marker, bool) {
	match := markerPattern.FindStringSubmatch(name)
	if match == nil {
		return Marker{}, false
	}
	score, err := strconv.Atoi(match[3])
	if err != nil {
		return Marker{}, false
	}

	return Marker{Model: match[1], Dataset: match[2], Score: score, Name: match[4]}, true
}

// WriteMarker replaces any marker of the run with m.
func (s *Store) WriteMarker(runID string, m Marker) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read run directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), MarkerExt) && e.Name() != m.FileName() {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("failed to remove stale marker: %w", err)
			}
		}
	}
	if err := os.WriteFile(filepath.Join(dir, m.FileName()), nil, 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}

	return nil
}

// findMarker returns the lexicographically smallest well-formed marker of a
// run directory.
func findMarker(dir string) (Marker, string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Marker{}, "", false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), MarkerExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	for _, name := range names {
		if m, ok := ParseMarker(name); ok {
			return m, name, true
		}
	}

	return Marker{}, "", false
}

// ValidateRunName accepts names usable as a marker suffix.
func ValidateRunName(name string) error {
	if len(name) > maxName {
		return fmt.Errorf("%w: %w: must be %d characters or less", pkgerrors.ErrValidation, ErrInvalidName, maxName)
	}
	if !runNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %w: only letters, digits, hyphens and underscores are allowed", pkgerrors.ErrValidation, ErrInvalidName)
	}

	return nil
}
