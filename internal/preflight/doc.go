// Package preflight provides readiness checks for the directories, binaries,
// and remote collaborators storyreel depends on.
//
// These checks run in two contexts:
//   - The "storyreel health" command and the API /health route report every
//     result so operators can see what is missing.
//   - "storyreel serve" runs the local checks at startup and refuses to start
//     the render worker when a directory or ffmpeg is unusable.
//
// Remote collaborators are skipped when not configured. The story LLM is
// optional: without it the engine falls back to its built-in templates.
package preflight
