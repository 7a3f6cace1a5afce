package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/api"
	"storyreel/internal/config"
	"storyreel/internal/daemon"
	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/pipeline"
	"storyreel/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background render worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.API.Bind = strings.TrimSpace(bind)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override api.bind (host:port)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if removed := logging.PruneOld(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays); removed > 0 {
		logger.Info("pruned old logs", logging.Int("count", removed))
	}

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg, preflight.Options{})); len(failed) > 0 {
		for _, r := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
		}
		return fmt.Errorf("preflight: %d check(s) failed; run `storyreel health` for details", len(failed))
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		store.Close()
		return err
	}
	defer a.close()

	runner := a.newRunner(store)
	worker := pipeline.NewWorker(store, runner, time.Duration(cfg.Workflow.JobPollInterval)*time.Second, logger)
	server := api.NewServer(api.Deps{
		Generator: a.generator,
		Jobs:      store,
		Music:     a.generator.Tables().Music,
		Worker:    worker,
		Health:    serveHealth(cfg, a, worker),
		Token:     cfg.API.Token,
		Logger:    logger,

		MaxDuration: a.generator.MaxDuration(),
	})

	d, err := daemon.New(cfg, store, worker, server, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	go a.checkLLM(signalCtx)

	<-signalCtx.Done()
	logger.Info("storyreel shutting down")
	return nil
}

// serveHealth reports local checks, the LLM gate, and the worker on /health.
// Remote collaborators are not called per request.
func serveHealth(cfg *config.Config, a *app, worker *pipeline.Worker) api.HealthFunc {
	return func(ctx context.Context) []api.HealthCheck {
		results := preflight.RunAll(ctx, cfg, preflight.Options{})
		checks := make([]api.HealthCheck, 0, len(results)+2)
		for _, r := range results {
			checks = append(checks, api.HealthCheck{Name: r.Name, Ready: r.Passed, Detail: r.Detail})
		}

		llmCheck := api.HealthCheck{Name: "Story LLM", Ready: a.gate.Open()}
		if !preflight.LLMConfigured(cfg.GetLLM()) {
			llmCheck.Ready = false
			llmCheck.Detail = "not configured (template fallback)"
		} else if !llmCheck.Ready {
			llmCheck.Detail = "last health check failed (template fallback)"
		}
		checks = append(checks, llmCheck)

		running, current, lastErr := worker.Status()
		workerCheck := api.HealthCheck{Name: "Render worker", Ready: running}
		switch {
		case current != "":
			workerCheck.Detail = "rendering " + current
		case lastErr != nil:
			workerCheck.Detail = "last error: " + lastErr.Error()
		default:
			workerCheck.Detail = "idle"
		}
		checks = append(checks, workerCheck)
		return checks
	}
}
