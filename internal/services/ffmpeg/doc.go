// Package ffmpeg wraps the ffmpeg CLI for video assembly: per-scene clips
// with camera motion, concat, audio mux, subtitle burn-in, and letterboxed
// resize. It also writes SRT files for the burn-in step.
//
// Commands run through an injectable CommandRunner so tests can assert the
// exact argument lists without an ffmpeg binary.
package ffmpeg
