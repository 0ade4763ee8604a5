// Package dataset loads the named tabular sources and shapes them into
// feature frames for training and comparison.
package dataset

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/frame"
	"github.com/absmach/masklab/pkg/storage"
)

const (
	Iris   = "Iris"
	Income = "Income"

	DefaultIncomeURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/adult/adult.data"

	incomeCacheKey = "dataset/" + Income
)

//go:embed data/Iris.csv
var irisCSV []byte

var (
	irisColumns = []string{"SepalLengthCm", "SepalWidthCm", "PetalLengthCm", "PetalWidthCm"}

	incomeColumns = []string{
		"age", "workclass", "fnlwgt", "education", "education_num", "marital_status",
		"occupation", "relationship", "race", "sex", "capital_gain", "capital_loss",
		"hours_per_week", "native_country",
	}

	labels = map[string]string{
		Iris:   "Species",
		Income: "income",
	}
)

// Raw is a dataset as loaded, before any masking or projection.
type Raw struct {
	Name string
	X    frame.Frame
	Y    []string
}

// Names lists the known datasets.
func Names() []string {
	return []string{Iris, Income}
}

func Valid(name string) bool {
	return slices.Contains(Names(), name)
}

// Columns returns the raw feature columns of a dataset without loading it.
func Columns(name string) ([]string, error) {
	switch name {
	case Iris:
		return slices.Clone(irisColumns), nil
	case Income:
		return slices.Clone(incomeColumns), nil
	default:
		return nil, fmt.Errorf("%w: unknown dataset %q", errors.ErrValidation, name)
	}
}

// Label returns the name of the label column of a dataset.
func Label(name string) string {
	return labels[name]
}

type Config struct {
	IncomeURL  string        `env:"MASKLAB_INCOME_URL"  envDefault:"https://archive.ics.uci.edu/ml/machine-learning-databases/adult/adult.data"`
	IncomePath string        `env:"MASKLAB_INCOME_PATH"`
	Timeout    time.Duration `env:"MASKLAB_INCOME_TIMEOUT" envDefault:"60s"`
}

// Loader produces raw datasets. Downloaded sources are kept in cache so a
// source is fetched at most once per cache lifetime.
type Loader struct {
	cfg    Config
	cache  storage.Storage
	client *http.Client
}

func NewLoader(cfg Config, cache storage.Storage) *Loader {
	if cfg.IncomeURL == "" {
		cfg.IncomeURL = DefaultIncomeURL
	}
	if cache == nil {
		cache = storage.NewInMemoryStorage()
	}

	return &Loader{
		cfg:    cfg,
		cache:  cache,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (l *Loader) Load(ctx context.Context, name string) (Raw, error) {
	switch name {
	case Iris:
		x, y, err := parseIris(bytes.NewReader(irisCSV))
		if err != nil {
			return Raw{}, fmt.Errorf("%w: %w", errors.ErrDatasetBuild, err)
		}

		return Raw{Name: Iris, X: x, Y: y}, nil
	case Income:
		data, err := l.incomeBytes(ctx)
		if err != nil {
			return Raw{}, fmt.Errorf("%w: %w", errors.ErrDatasetBuild, err)
		}
		x, y, err := parseIncome(bytes.NewReader(data))
		if err != nil {
			return Raw{}, fmt.Errorf("%w: %w", errors.ErrDatasetBuild, err)
		}

		return Raw{Name: Income, X: x, Y: y}, nil
	default:
		return Raw{}, fmt.Errorf("%w: unknown dataset %q", errors.ErrValidation, name)
	}
}

func (l *Loader) incomeBytes(ctx context.Context) ([]byte, error) {
	if l.cfg.IncomePath != "" {
		return os.ReadFile(l.cfg.IncomePath)
	}

	data, err := l.cache.Get(ctx, incomeCacheKey)
	if err == nil {
		return data, nil
	}

	data, err = l.download(ctx, l.cfg.IncomeURL)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Put(ctx, incomeCacheKey, data); err != nil {
		return nil, fmt.Errorf("failed to cache dataset: %w", err)
	}

	return data, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %s", url, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	return buf.Bytes(), nil
}
