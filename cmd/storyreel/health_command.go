package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/preflight"
)

type healthLine struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check directories, ffmpeg, and remote collaborators",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Remote: !offline})
			failed := preflight.Failed(results)

			if ctx.jsonOutput() {
				lines := make([]healthLine, 0, len(results))
				for _, r := range results {
					lines = append(lines, healthLine{Name: r.Name, Ready: r.Passed, Detail: r.Detail})
				}
				if err := writeJSON(cmd, map[string]any{"healthy": len(failed) == 0, "checks": lines}); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, okLabel(r.Passed), r.Detail})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
				if !preflight.LLMConfigured(cfg.GetLLM()) {
					fmt.Fprintln(out, "Story LLM not configured; stories use built-in templates.")
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network checks")
	return cmd
}

func okLabel(passed bool) string {
	if passed {
		return "ok"
	}
	return "FAIL"
}
