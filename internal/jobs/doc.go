// Package jobs persists render jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// A Job records the requested topic and duration, the status of the render
// pipeline, a progress percentage with a short message, the generated story
// JSON, and the final output path. Jobs are keyed by a UUID so the HTTP API
// can hand identifiers to clients before any work starts.
//
// The database is transient storage for in-flight and recent jobs rather than
// an archive. Schema changes bump schemaVersion in schema.go; users clear the
// database to adopt the new schema.
package jobs
