package masklab

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml"
)

// Config is the optional TOML file. Its values act as defaults that the
// process environment overrides.
type Config struct {
	Lab     LabConfig     `toml:"lab"`
	Dataset DatasetConfig `toml:"dataset"`
	Cache   CacheConfig   `toml:"cache"`
	Output  OutputConfig  `toml:"output"`
	Server  ServerConfig  `toml:"server"`
}

// LabConfig.Seed is a pointer so an explicit zero seed is kept.
type LabConfig struct {
	Seed      *int64  `toml:"seed"`
	Neighbors int     `toml:"neighbors"`
	TestSize  float64 `toml:"test_size"`
}

type DatasetConfig struct {
	IncomeURL  string `toml:"income_url"`
	IncomePath string `toml:"income_path"`
}

type CacheConfig struct {
	Type string `toml:"type"`
	Path string `toml:"path"`
}

type OutputConfig struct {
	Dir         string `toml:"dir"`
	MetricsFile string `toml:"metrics_file"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Environ returns the set values as MASKLAB_* environment entries.
func (c *Config) Environ() map[string]string {
	out := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	if c.Lab.Seed != nil {
		set("MASKLAB_SEED", strconv.FormatInt(*c.Lab.Seed, 10))
	}
	if c.Lab.Neighbors != 0 {
		set("MASKLAB_NEIGHBORS", strconv.Itoa(c.Lab.Neighbors))
	}
	if c.Lab.TestSize != 0 {
		set("MASKLAB_TEST_SIZE", strconv.FormatFloat(c.Lab.TestSize, 'f', -1, 64))
	}
	set("MASKLAB_INCOME_URL", c.Dataset.IncomeURL)
	set("MASKLAB_INCOME_PATH", c.Dataset.IncomePath)
	set("MASKLAB_CACHE_TYPE", c.Cache.Type)
	set("MASKLAB_CACHE_PATH", c.Cache.Path)
	set("MASKLAB_OUTPUT_DIR", c.Output.Dir)
	set("MASKLAB_METRICS_FILE", c.Output.MetricsFile)
	set("MASKLAB_HTTP_HOST", c.Server.Host)
	set("MASKLAB_HTTP_PORT", c.Server.Port)

	return out
}
