// Package daemon coordinates the long-running "storyreel serve" process.
//
// It wires configuration, job storage, the render worker, and the HTTP API
// into a single lifecycle with flock-based locking to prevent two instances
// from sharing the same job database.
//
// Keep orchestration logic here: rendering lives in pipeline and request
// handling in api while the daemon focuses on startup, shutdown, and status.
package daemon
