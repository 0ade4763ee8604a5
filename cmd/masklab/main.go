package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/absmach/masklab"
	"github.com/absmach/masklab/cli"
	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/lab/api"
	"github.com/absmach/masklab/lab/middleware"
	"github.com/absmach/masklab/pkg/prometheus"
	"github.com/absmach/masklab/pkg/sdk"
	"github.com/absmach/masklab/pkg/storage"
	"github.com/absmach/masklab/runstore"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "masklab"
	defHTTPPort   = "8080"
	envPrefixHTTP = "MASKLAB_HTTP_"
	pathEnv       = ".env"
	configEnv     = "MASKLAB_CONFIG"
)

type envConfig struct {
	LogLevel    string `env:"MASKLAB_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string `env:"MASKLAB_INSTANCE_ID"`
	OutputDir   string `env:"MASKLAB_OUTPUT_DIR"   envDefault:"./output"`
	MetricsFile string `env:"MASKLAB_METRICS_FILE"`
	TraceStdout bool   `env:"MASKLAB_TRACE_STDOUT" envDefault:"false"`
	RemoteURL   string `env:"MASKLAB_URL"`
	TLSVerify   bool   `env:"MASKLAB_TLS_VERIFY"   envDefault:"true"`
	Lab         lab.Config
	Dataset     dataset.Config
	Cache       storage.Config
}

func main() {
	os.Exit(run())
}

func run() int {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg, httpCfg, err := loadConfig()
	if err != nil {
		log.Printf("failed to load configuration : %s", err.Error())

		return 1
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Printf("failed to parse log level: %s", err.Error())

		return 1
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tp trace.TracerProvider
	switch {
	case cfg.TraceStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return 1
		}
		sdktp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	default:
		tp = noop.NewTracerProvider()
	}
	tracer := tp.Tracer(svcName)

	cache, closer, err := storage.New(cfg.Cache)
	if err != nil {
		logger.Error("failed to open dataset cache", slog.String("error", err.Error()))

		return 1
	}
	if closer != nil {
		defer closer.Close()
	}

	store, err := runstore.New(cfg.OutputDir)
	if err != nil {
		logger.Error("failed to open output directory", slog.String("error", err.Error()))

		return 1
	}

	svc := lab.NewService(store, dataset.NewLoader(cfg.Dataset, cache), cfg.Lab, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)
	cli.SetService(svc)

	// Commands other than serve talk to a running server when one is configured.
	if cfg.RemoteURL != "" {
		client := sdk.NewSDK(sdk.Config{URL: cfg.RemoteURL, TLSVerification: cfg.TLSVerify})
		cli.SetService(middleware.Logging(logger, sdk.NewService(client)))
	}

	rootCmd := &cobra.Command{
		Use:           "masklab",
		Short:         "Missing-data model comparison",
		Long:          `Train classifiers under synthetic masking and compare how they hold up on masked data.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cli.AddPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		cli.NewTrainCmd(),
		cli.NewCompareCmd(),
		cli.NewSweepCmd(),
		cli.NewHistoryCmd(),
		cli.NewRenameCmd(),
		cli.NewDeleteCmd(),
		cli.NewImagesCmd(),
		cli.NewCompareHistoryCmd(),
		cli.NewCompareShowCmd(),
		cli.NewCompareRenameCmd(),
		cli.NewCompareDeleteCmd(),
		cli.NewServeCmd(serve(cfg, httpCfg, svc, logger)),
	)

	code := 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code = 1
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics textfile", slog.String("path", cfg.MetricsFile), slog.Any("error", err))
		}
	}

	return code
}

// loadConfig parses the environment on top of the optional TOML file.
func loadConfig() (envConfig, server.Config, error) {
	environ := env.ToMap(os.Environ())
	if path := environ[configEnv]; path != "" {
		file, err := masklab.LoadConfig(path)
		if err != nil {
			return envConfig{}, server.Config{}, err
		}
		for k, v := range file.Environ() {
			if _, ok := environ[k]; !ok {
				environ[k] = v
			}
		}
	}

	cfg := envConfig{}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return envConfig{}, server.Config{}, err
	}

	httpCfg := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpCfg, env.Options{Prefix: envPrefixHTTP, Environment: environ}); err != nil {
		return envConfig{}, server.Config{}, fmt.Errorf("failed to load %s HTTP server configuration: %w", svcName, err)
	}
	if httpCfg.Port == "" {
		httpCfg.Port = defHTTPPort
	}

	return cfg, httpCfg, nil
}

func serve(cfg envConfig, httpCfg server.Config, svc lab.Service, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)

		hs := httpserver.NewServer(ctx, cancel, svcName, httpCfg, api.MakeHandler(svc, logger, cfg.InstanceID, cfg.OutputDir), logger)

		g.Go(func() error {
			return hs.Start()
		})

		g.Go(func() error {
			return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
		})

		if err := g.Wait(); err != nil {
			return fmt.Errorf("%s service exited with error: %w", svcName, err)
		}

		return nil
	}
}
