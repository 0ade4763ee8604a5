package storage

import (
	"fmt"
	"io"

	"github.com/absmach/masklab/pkg/storage/badger"
)

type Config struct {
	Type       string `env:"MASKLAB_CACHE_TYPE" envDefault:"memory"`
	BadgerPath string `env:"MASKLAB_CACHE_PATH" envDefault:"./data/cache"`
}

// New opens the configured backend. The returned closer is nil for the
// in-memory backend.
func New(cfg Config) (Storage, io.Closer, error) {
	switch cfg.Type {
	case "badger":
		db, err := badger.NewDatabase(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}

		return db, db, nil
	case "memory", "":
		return NewInMemoryStorage(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
