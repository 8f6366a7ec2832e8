package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/config"
	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/demo"
	"github.com/jywlabs/demogen/internal/llm"
	"github.com/jywlabs/demogen/internal/logging"
	"github.com/jywlabs/demogen/internal/metrics"
	"github.com/jywlabs/demogen/internal/prompt"
	"github.com/jywlabs/demogen/internal/runner"
	"github.com/jywlabs/demogen/internal/script"
	"github.com/jywlabs/demogen/internal/ui"
)

// newLLMClient builds the language model client from credentials.
// Tests replace it with a fake.
var newLLMClient = func(cfg *config.Config, creds *config.Credentials, logger zerolog.Logger, m *metrics.Metrics) llm.Client {
	return llm.NewOpenAIClient(creds.Endpoint, creds.APIKey, creds.Deployment,
		llm.WithProvider(cfg.Provider),
		llm.WithAPIVersion(creds.APIVersion),
		llm.WithLogger(logger),
		llm.WithRecorder(m),
	)
}

// loadCredentials is replaced in tests.
var loadCredentials = config.LoadCredentials

// app bundles the configured components shared by the commands.
type app struct {
	dir      string
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	store    demo.Store
	pipeline *cycle.Pipeline
	display  *ui.Display
	closers  []func() error
}

// newApp loads configuration and wires the pipeline. When needLLM is set,
// missing credentials fail here, before any model call.
func newApp(cmd *cobra.Command, needLLM bool) (*app, error) {
	dir := dirFlag
	if dir == "" {
		dir = "."
	}

	if err := config.LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	var creds *config.Credentials
	if needLLM {
		creds, err = loadCredentials()
		if err != nil {
			return nil, err
		}
	}

	a := &app{dir: dir, cfg: cfg}

	if err := a.setupLogging(cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	a.metrics = metrics.New()
	a.display = newDisplay(cmd.OutOrStdout())

	storeCfg := cfg.Store
	if storeCfg.Dir != "" {
		storeCfg.Dir = resolvePath(dir, storeCfg.Dir)
	}
	store, err := demo.Open(storeCfg, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	rt, err := runner.Lookup(cfg.Language)
	if err != nil {
		a.Close()
		return nil, err
	}

	prompts := prompt.NewBuilder(rt.Display)
	if err := prompts.LoadRoles(dir); err != nil {
		a.Close()
		return nil, err
	}

	executor := runner.New(rt, cfg.RunTimeout)
	executor.Recorder = a.metrics

	a.pipeline = &cycle.Pipeline{
		Prompts:         prompts,
		DescribeProfile: llm.Profile{Name: llm.DescribeProfile.Name, Temperature: cfg.Describe.Temperature, MaxTokens: cfg.Describe.MaxTokens},
		CodeProfile:     llm.Profile{Name: llm.CodeProfile.Name, Temperature: cfg.Code.Temperature, MaxTokens: cfg.Code.MaxTokens},
		Materializer:    script.New(resolvePath(dir, cfg.ScriptsDir), rt.Extension),
		Executor:        executor,
		Store:           store,
		MaxAttempts:     cfg.MaxAttempts,
		Logger:          a.logger,
		Recorder:        a.metrics,
		OnTransition:    a.display.ShowTransition,
	}
	if creds != nil {
		a.pipeline.LLM = newLLMClient(cfg, creds, a.logger, a.metrics)
	}

	a.logger.Debug().
		Str("provider", cfg.Provider).
		Str("language", cfg.Language).
		Str("store", cfg.Store.Driver).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("configuration loaded")

	return a, nil
}

func (a *app) setupLogging(console io.Writer) error {
	overrides, err := config.LoadOverrides()
	if err != nil {
		return err
	}

	level := a.cfg.Log.Level
	if overrides.LogLevel != "" {
		level = overrides.LogLevel
	}

	// The console shows warnings unless --verbose; the event file keeps the configured level.
	consoleLevel := "warn"
	if verboseFlag {
		consoleLevel = "debug"
		level = "debug"
	}

	logFile := ""
	if a.cfg.Log.File != "" {
		logFile = resolvePath(a.dir, a.cfg.Log.File)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:        level,
		Console:      console,
		ConsoleLevel: consoleLevel,
		File:         logFile,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closeLog)
	return nil
}

// Close releases resources and writes the metrics textfile when configured.
func (a *app) Close() error {
	var errs []error
	if a.cfg != nil && a.cfg.MetricsFile != "" && a.metrics != nil {
		if err := a.metrics.WriteTextfile(resolvePath(a.dir, a.cfg.MetricsFile)); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newDisplay(out io.Writer) *ui.Display {
	animate := false
	if f, ok := out.(*os.File); ok {
		animate = ui.IsTerminal(f)
	}
	return ui.NewDisplay(out, animate)
}

// resolvePath makes p relative to the project directory.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
