package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"utdlrunner/core"
	"utdlrunner/executor"
	"utdlrunner/limits"
	"utdlrunner/pkg/logger"
	"utdlrunner/plan"
	"utdlrunner/runctx"
	"utdlrunner/scheduler"
	"utdlrunner/telemetry"
	"utdlrunner/validate"
)

type executeFlags struct {
	file         string
	output       string
	parallel     int
	otelEndpoint string
	otel         bool
	silent       bool
	verbose      bool
	executionID  string
}

func executeCmd() *cobra.Command {
	f := &executeFlags{}
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Validate and run a UTDL plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "path to the UTDL plan JSON file (required)")
	cmd.Flags().StringVar(&f.output, "output", "", "write the execution report here instead of stdout")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "override the plan's max_parallel limit")
	cmd.Flags().BoolVar(&f.otel, "otel", false, "emit OpenTelemetry spans")
	cmd.Flags().StringVar(&f.otelEndpoint, "otel-endpoint", "", "OTLP/HTTP collector endpoint (empty prints spans to stdout)")
	cmd.Flags().BoolVar(&f.silent, "silent", false, "suppress progress logging")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "emit debug-level logging")
	cmd.Flags().StringVar(&f.executionID, "execution-id", "", "execution id to stamp on the report (default random UUID)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runExecute(cmd *cobra.Command, f *executeFlags) error {
	log := buildLogger(f)

	data, err := os.ReadFile(f.file)
	if err != nil {
		if os.IsNotExist(err) {
			return core.New(core.ErrPlanFileNotFound, "plan file not found: "+f.file)
		}
		return core.Wrap(core.ErrFilePermissionError, err)
	}

	p, errs := validate.ValidateRaw(data)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.String())
		}
		return fmt.Errorf("plan failed validation (%d error(s))", len(errs))
	}

	limitCfg := limits.FromEnv()
	if f.parallel > 0 {
		limitCfg.MaxParallel = f.parallel
	}

	executionID := f.executionID
	if executionID == "" {
		executionID = uuid.NewString()
	}

	vars := runctx.New(log)
	vars.Set("execution_id", executionID)
	seedVars(vars, p.Config)

	registry := executor.NewRegistry()
	registry.Register(executor.NewHTTPExecutor())
	registry.Register(executor.NewWaitExecutor())
	registry.Register(executor.NewGraphQLExecutor())

	tel, shutdown := buildTelemetry(f, log)
	defer shutdown()

	sched := scheduler.New(registry, limitCfg, log, tel)
	report, runErr := sched.Run(cmd.Context(), p, vars, executionID)

	out, marshalErr := json.MarshalIndent(report, "", "  ")
	if marshalErr != nil {
		return core.Wrap(core.ErrSerializationError, marshalErr)
	}

	if f.output != "" {
		if err := os.WriteFile(f.output, out, 0o644); err != nil {
			return core.Wrap(core.ErrFilePermissionError, err)
		}
	} else {
		fmt.Println(string(out))
	}

	if report.Status != "passed" {
		return fmt.Errorf("execution failed: %d/%d steps failed, %d skipped",
			report.Summary.Failed, report.Summary.TotalSteps, report.Summary.Skipped)
	}
	if runErr != nil {
		return runErr
	}
	return nil
}

func buildLogger(f *executeFlags) core.Logger {
	if f.silent {
		return core.NoOpLogger{}
	}
	if f.verbose {
		os.Setenv("LOG_LEVEL", "DEBUG")
	}
	return logger.New()
}

func buildTelemetry(f *executeFlags, log core.Logger) (core.Telemetry, func()) {
	if !f.otel {
		return core.NoOpTelemetry{}, func() {}
	}
	provider, err := telemetry.NewProvider(context.Background(), "utdlrun", f.otelEndpoint)
	if err != nil {
		log.Warn("telemetry disabled: failed to start provider", map[string]interface{}{"error": err.Error()})
		return core.NoOpTelemetry{}, func() {}
	}
	return provider, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}
}

func seedVars(vars *runctx.Context, cfg plan.Config) {
	vars.Set("base_url", cfg.BaseURL)
	if cfg.DefaultTimeoutMs > 0 {
		vars.Set("timeout_ms", float64(cfg.DefaultTimeoutMs))
	}
	if len(cfg.GlobalHeaders) > 0 {
		vars.Set("global_headers", cfg.GlobalHeaders)
	}
	for k, raw := range cfg.Variables {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err == nil {
			vars.Set(k, v)
		}
	}
}
