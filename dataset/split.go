package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/frame"
)

const DefaultTestSize = 0.33

var ErrInvalidSplit = errors.New("test size must lie in (0, 1)")

type Split struct {
	XTrain frame.Frame
	XTest  frame.Frame
	YTrain []string
	YTest  []string
}

// TrainTestSplit shuffles rows with a seeded permutation; the first
// ceil(testSize*n) permuted rows form the test set.
func TrainTestSplit(x frame.Frame, y []string, testSize float64, seed int64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, fmt.Errorf("%w: got %v", ErrInvalidSplit, testSize)
	}
	n := x.NumRows()
	if len(y) != n {
		return Split{}, fmt.Errorf("%w: %d rows, %d labels", frame.ErrRaggedRows, n, len(y))
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	perm := rng.Perm(n)
	nTest := int(math.Ceil(testSize * float64(n)))
	test, train := perm[:nTest], perm[nTest:]

	return Split{
		XTrain: x.SelectRows(train),
		XTest:  x.SelectRows(test),
		YTrain: pick(y, train),
		YTest:  pick(y, test),
	}, nil
}

func pick(y []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}

	return out
}

// SplitPaths returns the train and test file paths of an exported split.
func SplitPaths(dir, name string, maskPercent int) (string, string) {
	prefix := fmt.Sprintf("%s_masked_%d", strings.ToLower(name), maskPercent)

	return filepath.Join(dir, prefix+"_train.csv"), filepath.Join(dir, prefix+"_test.csv")
}

// ExportSplit writes both halves of s as CSV with the label as last column.
func ExportSplit(dir, name string, maskPercent int, s Split) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	trainPath, testPath := SplitPaths(dir, name, maskPercent)
	if err := writeCSVFile(trainPath, s.XTrain, Label(name), s.YTrain); err != nil {
		return err
	}

	return writeCSVFile(testPath, s.XTest, Label(name), s.YTest)
}

// LoadSplit reads a split previously written by ExportSplit.
func LoadSplit(dir, name string, maskPercent int) (Split, error) {
	trainPath, testPath := SplitPaths(dir, name, maskPercent)
	xTrain, yTrain, err := readCSVFile(trainPath, Label(name))
	if err != nil {
		return Split{}, err
	}
	xTest, yTest, err := readCSVFile(testPath, Label(name))
	if err != nil {
		return Split{}, err
	}

	return Split{XTrain: xTrain, XTest: xTest, YTrain: yTrain, YTest: yTest}, nil
}

func writeCSVFile(path string, x frame.Frame, label string, y []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := frame.WriteCSV(f, x, label, y); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

func readCSVFile(path, label string) (frame.Frame, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return frame.Frame{}, nil, fmt.Errorf("%w: dataset %s", pkgerrors.ErrNotFound, path)
		}

		return frame.Frame{}, nil, err
	}
	defer f.Close()

	return frame.ReadCSV(f, label)
}
