package preflight

import (
	"context"

	"storyreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the optional remote checks RunAll performs.
type Options struct {
	// Remote enables the network checks (LLM, image, speech, cache).
	Remote bool
}

// RunAll executes all applicable preflight checks for the given config.
// Remote collaborators are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: depDetail(status.Command, status.Detail),
		})
	}

	if !opts.Remote {
		return results
	}

	// Story LLM (the engine falls back to templates without one)
	if llmCfg := cfg.GetLLM(); LLMConfigured(llmCfg) {
		results = append(results, CheckLLM(ctx, "Story LLM", llmCfg))
	}

	if cfg.Image.BaseURL != "" {
		results = append(results, CheckEndpoint(ctx, "Image generation", cfg.Image.BaseURL))
	}
	if cfg.Speech.BaseURL != "" {
		results = append(results, CheckSpeech(ctx, cfg.Speech))
	}
	if cfg.Cache.Enabled {
		results = append(results, CheckCache(ctx, cfg.Cache.Address))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func depDetail(command, detail string) string {
	if detail != "" {
		return detail
	}
	return command
}
