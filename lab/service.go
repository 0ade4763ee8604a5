package lab

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/pkg/impute"
	"github.com/absmach/masklab/runstore"
)

// Loader supplies raw datasets by name.
type Loader interface {
	Load(ctx context.Context, name string) (dataset.Raw, error)
}

type Config struct {
	Seed      int64   `env:"MASKLAB_SEED"      envDefault:"42"`
	Neighbors int     `env:"MASKLAB_NEIGHBORS" envDefault:"5"`
	TestSize  float64 `env:"MASKLAB_TEST_SIZE" envDefault:"0.33"`
}

func (c Config) withDefaults() Config {
	if c.Neighbors <= 0 {
		c.Neighbors = impute.DefaultNeighbors
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		c.TestSize = dataset.DefaultTestSize
	}

	return c
}

var _ Service = (*service)(nil)

type service struct {
	store   *runstore.Store
	loader  Loader
	imputer *impute.KNN
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store *runstore.Store, loader Loader, cfg Config, logger *slog.Logger) Service {
	cfg = cfg.withDefaults()

	return &service{
		store:   store,
		loader:  loader,
		imputer: impute.NewKNN(cfg.Neighbors),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func (svc *service) ListRuns(_ context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error) {
	return svc.store.ListRuns(filter)
}

func (svc *service) RenameRun(_ context.Context, runID, name string) error {
	return svc.store.RenameRun(runID, name)
}

func (svc *service) DeleteRun(_ context.Context, runID string) error {
	return svc.store.DeleteRun(runID)
}

func (svc *service) RunImages(_ context.Context, runID string) ([]string, error) {
	return svc.store.RunImages(runID)
}

func (svc *service) ListComparisons(_ context.Context, ds string) ([]runstore.ComparisonSummary, error) {
	return svc.store.ListComparisons(ds)
}

func (svc *service) GetComparison(_ context.Context, compareID string) (runstore.Comparison, error) {
	return svc.store.GetComparison(compareID)
}

func (svc *service) RenameComparison(_ context.Context, compareID, name string) (*string, error) {
	return svc.store.RenameComparison(compareID, name)
}

func (svc *service) DeleteComparison(_ context.Context, compareID string) error {
	return svc.store.DeleteComparison(compareID)
}

// newID returns id when set, otherwise the current unix time. taken reports
// ids already in use; generated ids are bumped past them.
func (svc *service) newID(id string, taken func(string) bool) (string, error) {
	if id != "" {
		if err := runstore.ValidID(id); err != nil {
			return "", err
		}

		return id, nil
	}
	ts := svc.now().Unix()
	for taken(strconv.FormatInt(ts, 10)) {
		ts++
	}

	return strconv.FormatInt(ts, 10), nil
}
