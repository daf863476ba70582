package main

import (
	"context"
	"fmt"
	"os"
	"plugin"
	"time"

	"github.com/nymphbox/oxn/internal/backend/jaeger"
	"github.com/nymphbox/oxn/internal/backend/prometheus"
	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/config"
	"github.com/nymphbox/oxn/internal/container"
	"github.com/nymphbox/oxn/internal/loadgen"
	"github.com/nymphbox/oxn/internal/logging"
	"github.com/nymphbox/oxn/internal/orchestrator"
	"github.com/nymphbox/oxn/internal/report"
	"github.com/nymphbox/oxn/internal/runner"
	"github.com/nymphbox/oxn/internal/spec"
	"github.com/nymphbox/oxn/internal/store"
	"github.com/nymphbox/oxn/internal/treatment"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run SPEC",
	Args:  cobra.ExactArgs(1),
	Short: "Run an observability experiment",
	Long:  `Loads an experiment specification and runs it the configured number of times, tearing the system under experiment down between runs and writing a report at the end.`,
	RunE:  runExperiment,
}

func init() {
	runCmd.Flags().Int("times", 1, "run the experiment n times")
	runCmd.Flags().String("report", "", "write an experiment report to this path")
	runCmd.Flags().Bool("accounting", false, "capture per-container resource usage; requires --report")
	runCmd.Flags().Bool("randomize", false, "randomize treatment execution order")
	runCmd.Flags().String("extend", "", "path to a Go plugin (-buildmode=plugin) exposing Register(*treatment.Registry)")
	runCmd.Flags().String("loglevel", "info", "log level: debug, info, warning, error, critical")
	runCmd.Flags().String("logfile", "", "write logs to this file instead of stdout")
	runCmd.Flags().String("timeout", "1m", "timeout waiting for the system under experiment to become ready")
}

func runExperiment(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	if _, err := os.Stat(specPath); err != nil {
		return fmt.Errorf("experiment spec %s does not exist", specPath)
	}

	times, _ := cmd.Flags().GetInt("times")
	reportPath, _ := cmd.Flags().GetString("report")
	accounting, _ := cmd.Flags().GetBool("accounting")
	randomize, _ := cmd.Flags().GetBool("randomize")
	extendPath, _ := cmd.Flags().GetString("extend")
	logLevel, _ := cmd.Flags().GetString("loglevel")
	logFile, _ := cmd.Flags().GetString("logfile")
	timeoutStr, _ := cmd.Flags().GetString("timeout")

	if accounting && reportPath == "" {
		return fmt.Errorf("--accounting requires --report to be set")
	}

	timeout, err := clock.ParseDuration(timeoutStr)
	if err != nil {
		return fmt.Errorf("--timeout: %w", err)
	}

	logOutput, err := openLogOutput(logFile)
	if err != nil {
		return fmt.Errorf("--logfile: %w", err)
	}
	if logOutput != os.Stdout {
		defer logOutput.Close()
	}
	logCfg := logging.Config{Level: mapLogLevel(logLevel), Format: logging.FormatText, Output: logOutput}
	logging.InitGlobal(logCfg)
	logger := logging.New(logCfg)

	logger.Info("loading experiment spec", "path", specPath)
	s, err := spec.New(nil).ParseFile(specPath)
	if err != nil {
		return fmt.Errorf("failed to load experiment spec: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load engine config: %w", err)
	}

	registry := treatment.NewRegistry()
	if extendPath != "" {
		if err := loadTreatmentExtensions(extendPath, registry); err != nil {
			return fmt.Errorf("failed to load --extend %s: %w", extendPath, err)
		}
		logger.Info("loaded treatment extensions", "path", extendPath)
	}

	docker, err := container.New()
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	defer docker.Close()

	prom, err := prometheus.New(cfg.Prometheus.URL, cfg.Prometheus.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create prometheus client: %w", err)
	}
	jg := jaeger.New(cfg.Jaeger.URL, cfg.Jaeger.Timeout)

	st, err := store.Open(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	reporter := report.New(reportPath)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("running experiment", "spec", specPath, "times", times)
	for idx := 0; idx < times; idx++ {
		logger.Info("experiment run starting", "run", idx+1, "of", times)
		if err := runOnce(ctx, runOnceArgs{
			spec:           s,
			specPath:       specPath,
			randomize:      randomize,
			accounting:     accounting,
			reportPath:     reportPath,
			registry:       registry,
			docker:         docker,
			store:          st,
			reporter:       reporter,
			prom:           prom,
			jg:             jg,
			loadgenHost:    cfg.Loadgen.Host,
			logger:         logger,
			readyTimeout:   timeout,
		}); err != nil {
			return err
		}
		logger.Info("experiment run completed", "run", idx+1, "of", times)
	}

	if reportPath != "" {
		logger.Info("wrote report", "path", reportPath)
	}
	return nil
}

type runOnceArgs struct {
	spec         *spec.Spec
	specPath     string
	randomize    bool
	accounting   bool
	reportPath   string
	registry     *treatment.Registry
	docker       *container.Client
	store        *store.Store
	reporter     *report.Reporter
	prom         *prometheus.Client
	jg           *jaeger.Client
	loadgenHost  string
	logger       *logging.Logger
	readyTimeout time.Duration
}

// runOnce executes exactly one run of an experiment, matching Engine.run's
// per-iteration body: a fresh orchestrator and runner every time, treatments
// injected before the sue comes up, load generation running across the
// runtime-treatment window, then teardown.
func runOnce(ctx context.Context, a runOnceArgs) error {
	orch, err := orchestrator.New(a.spec.Experiment.SUE.Compose, a.spec.Experiment.SUE.Exclude, a.spec.Experiment.SUE.Include, a.docker)
	if err != nil {
		return fmt.Errorf("runner: build orchestrator: %w", err)
	}

	var accountantContainers []string
	if a.accounting {
		accountantContainers = orch.TranslateComposeNames(orch.SUEServiceNames())
	}

	run, err := runner.New(a.spec, a.specPath, a.randomize, runner.Deps{
		Registry:             a.registry,
		Docker:               a.docker,
		Orchestrator:         orch,
		Store:                a.store,
		Reporter:             a.reporter,
		Prometheus:           a.prom,
		Jaeger:               a.jg,
		LoadgenHost:          a.loadgenHost,
		Logger:               a.logger,
		AccountantContainers: accountantContainers,
	})
	if err != nil {
		return fmt.Errorf("runner: build treatments: %w", err)
	}

	if err := run.ExecuteCompileTimeTreatments(ctx); err != nil {
		return fmt.Errorf("runner: compile time treatments: %w", err)
	}

	if err := run.Orchestrate(ctx, a.readyTimeout); err != nil {
		_ = run.CleanCompileTimeTreatments(ctx)
		_ = run.Teardown(ctx)
		return fmt.Errorf("runner: orchestrate: %w", err)
	}

	experimentStart := clock.UTCTimestamp()
	run.SetExperimentWindow(experimentStart, experimentStart)

	type loadgenResult struct {
		stats loadgen.Stats
		err   error
	}
	loadgenCh := make(chan loadgenResult, 1)
	go func() {
		stats, err := run.RunLoadgen(ctx)
		loadgenCh <- loadgenResult{stats: stats, err: err}
	}()

	if err := run.ExecuteRuntimeTreatments(ctx); err != nil {
		a.logger.Error("runtime treatments failed", "error", err.Error())
	}
	if err := run.CleanCompileTimeTreatments(ctx); err != nil {
		a.logger.Error("clean compile time treatments failed", "error", err.Error())
	}

	experimentEnd := clock.UTCTimestamp()
	run.SetExperimentWindow(experimentStart, experimentEnd)

	if err := run.ObserveResponseVariables(ctx); err != nil {
		a.logger.Error("observe response variables failed", "error", err.Error())
	}

	lr := <-loadgenCh
	if lr.err != nil {
		a.logger.Warn("load generation failed", "error", lr.err.Error())
	}

	if err := run.PersistResponseData(ctx); err != nil {
		a.logger.Error("persist response data failed", "error", err.Error())
	}

	if err := run.Teardown(ctx); err != nil {
		a.logger.Error("teardown failed", "error", err.Error())
	}

	if a.reportPath != "" {
		if err := run.BuildReport(lr.stats); err != nil {
			a.logger.Warn("build report failed", "error", err.Error())
		}
	}

	return nil
}

// mapLogLevel widens spec.md's five-level vocabulary onto logging.Level's
// four, collapsing "critical" onto error the way zerolog itself has no
// level above error short of a fatal that exits the process.
func mapLogLevel(level string) logging.Level {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "warning":
		return logging.LevelWarn
	case "error", "critical":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func openLogOutput(path string) (*os.File, error) {
	if path == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// loadTreatmentExtensions opens a Go plugin built with -buildmode=plugin
// and calls its Register(*treatment.Registry) symbol, the re-architected
// form of --extend PATH recorded in DESIGN.md: a build-time plug-in list
// in place of the original's dynamic Python module loading.
func loadTreatmentExtensions(path string, registry *treatment.Registry) error {
	p, err := plugin.Open(path)
	if err != nil {
		return err
	}
	sym, err := p.Lookup("Register")
	if err != nil {
		return err
	}
	register, ok := sym.(func(*treatment.Registry))
	if !ok {
		return fmt.Errorf("plugin %s: Register has the wrong signature, want func(*treatment.Registry)", path)
	}
	register(registry)
	return nil
}
