package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"storyreel/internal/api"
	"storyreel/internal/jobs"
	"storyreel/internal/pipeline"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var duration float64

	cmd := &cobra.Command{
		Use:   "render <topic or story>",
		Short: "Queue a render job and run it in the foreground",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()
			a.checkLLM(signalCtx)

			job, err := store.Create(signalCtx, strings.Join(args, " "), duration)
			if err != nil {
				return err
			}

			progressOut := cmd.ErrOrStderr()
			runner := a.newRunner(store, pipeline.WithProgress(func(jobID string, status jobs.Status, progress float64, message string) {
				fmt.Fprintf(progressOut, "[%3.0f%%] %-18s %s\n", progress, status, message)
			}))
			fmt.Fprintf(progressOut, "Job %s queued\n", job.ID)

			runErr := runner.Run(signalCtx, job)

			final, err := store.Get(cmd.Context(), job.ID)
			if err != nil || final == nil {
				final = job
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, api.JobResponse{Success: runErr == nil, Job: api.FromJob(final, false)}); err != nil {
					return err
				}
			} else if runErr == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Video ready: %s\n", final.OutputPath)
			}
			if runErr != nil {
				return fmt.Errorf("render job %s: %w", job.ID, runErr)
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "Target video length in seconds (default story.default_duration_seconds)")
	return cmd
}
