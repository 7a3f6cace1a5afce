// Package services defines shared utilities consumed by the pipeline stages
// and external collaborator clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so a failed job records a
//     consistent, classified message.
package services
