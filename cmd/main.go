package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/attrib/internal/adapters/dataset"
	"github.com/okian/attrib/internal/adapters/http/api"
	"github.com/okian/attrib/internal/adapters/http/swagger"
	"github.com/okian/attrib/internal/adapters/repository"
	app "github.com/okian/attrib/internal/app"
	"github.com/okian/attrib/internal/config"
	"github.com/okian/attrib/internal/learn"
	"github.com/okian/attrib/internal/simulate"
	"github.com/okian/attrib/internal/training"
	"github.com/okian/attrib/pkg/logger"
	"github.com/okian/attrib/pkg/metrics"
	"github.com/urfave/cli/v3"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var (
	version = "dev"

	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "path to a YAML config file",
		Sources: cli.EnvVars(config.EnvFile),
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "override log_level (debug, info, warn, error)",
	}
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		// The logger may not be initialized yet.
		fmt.Fprintln(os.Stderr, "attrib: "+err.Error())
		stop()
		os.Exit(1)
	}
}

// cliApp carries state shared by the commands once Before has run.
type cliApp struct {
	cfg *config.Config
	log logger.Logger
}

func newApp() *cli.Command {
	a := &cliApp{}
	return &cli.Command{
		Name:    "attrib",
		Usage:   "evidence-to-score attribution engine",
		Version: version,
		Flags:   []cli.Flag{configFlag, logLevelFlag},
		Before:  a.before,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve predictions from trained artifacts",
				Action: a.serve,
			},
			{
				Name:   "train",
				Usage:  "train every model from the datasets and save the artifacts",
				Action: a.train,
			},
			{
				Name:  "simulate",
				Usage: "write a synthetic campus dataset into data_dir",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "subjects", Value: simulate.DefaultConfig().Subjects, Usage: "number of profiles"},
					&cli.IntFlag{Name: "days", Value: simulate.DefaultConfig().Days, Usage: "number of simulated days"},
					&cli.IntFlag{Name: "locations", Value: simulate.DefaultConfig().Locations, Usage: "number of locations"},
					&cli.Int64Flag{Name: "seed", Value: simulate.DefaultConfig().Seed, Usage: "random seed"},
				},
				Action: a.simulate,
			},
		},
	}
}

// before loads configuration and initializes logging for every command.
func (a *cliApp) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String(configFlag.Name); path != "" {
		if err := os.Setenv(config.EnvFile, path); err != nil {
			return ctx, fmt.Errorf("set %s: %w", config.EnvFile, err)
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := cmd.String(logLevelFlag.Name); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return ctx, fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.log = logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		a.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Init(metricsOptions(cfg)...)
	a.cfg = cfg
	return ctx, nil
}

// metricsOptions maps the metrics_* settings onto the global manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBuckets),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	}
}

func (a *cliApp) serve(ctx context.Context, _ *cli.Command) error {
	store, err := repository.Open(ctx, a.cfg.ArtifactDB)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.log.Error(ctx, "closing artifact store failed", logger.Error(err))
		}
	}()

	svc, err := app.Load(ctx, store,
		app.WithLogger(a.log.Named("service")),
		app.WithBlendWeights(a.cfg.JourneyWeight, a.cfg.HabitWeight),
	)
	if err != nil {
		return fmt.Errorf("load serving context: %w", err)
	}

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           newHandler(ctx, svc, a.cfg.MaxBodyBytes, a.log.Named("http")),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info(ctx, "starting HTTP server", logger.String("addr", a.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	a.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	a.log.Info(ctx, "server stopped")
	return nil
}

// newHandler builds the HTTP routes around svc.
func newHandler(ctx context.Context, svc *app.Service, maxBodyBytes int64, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithMaxBodyBytes(maxBodyBytes), api.WithLogger(log)).Register(ctx, mux)
	return api.RequestIDMiddleware(mux)
}

func (a *cliApp) train(ctx context.Context, _ *cli.Command) error {
	start := time.Now()
	d, err := dataset.Load(ctx, a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}
	a.log.Info(ctx, "datasets loaded",
		logger.String("dir", a.cfg.DataDir),
		logger.Int("subjects", len(d.Subjects)),
		logger.Int("swipes", len(d.Swipes)),
		logger.Int("locations", len(d.Locations)),
	)

	store, err := repository.Open(ctx, a.cfg.ArtifactDB)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.log.Error(ctx, "closing artifact store failed", logger.Error(err))
		}
	}()

	version, err := newTrainer(a.cfg, a.log.Named("training")).Run(ctx, d, store)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	a.log.Info(ctx, "artifacts saved",
		logger.String("version", version),
		logger.String("artifact_db", a.cfg.ArtifactDB),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

func (a *cliApp) simulate(ctx context.Context, cmd *cli.Command) error {
	cfg := simulate.DefaultConfig()
	cfg.Dir = a.cfg.DataDir
	cfg.Subjects = int(cmd.Int("subjects"))
	cfg.Days = int(cmd.Int("days"))
	cfg.Locations = int(cmd.Int("locations"))
	cfg.Seed = cmd.Int64("seed")
	if _, err := simulate.Generate(ctx, cfg); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	return nil
}

func newTrainer(cfg *config.Config, log logger.Logger) *training.Trainer {
	params := learn.DefaultParams()
	params.Epochs = cfg.TrainingEpochs
	params.LearningRate = cfg.TrainingLearningRate
	return training.New(
		training.WithAnchorLimit(cfg.TrainingAnchorLimit),
		training.WithNegatives(cfg.TrainingNegatives),
		training.WithSeed(cfg.TrainingSeed),
		training.WithTestFraction(cfg.TrainingTestFraction),
		training.WithParams(params),
		training.WithWorkers(cfg.TrainingWorkers),
		training.WithLogger(log),
	)
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
