// Command storyreel turns a topic or a long Korean story into a five-act
// scene script and, optionally, a rendered short video.
//
// # Commands
//
//	generate <topic>   print the scene script (table on a TTY, JSON otherwise)
//	render <topic>     enqueue a job and render it inline
//	serve              HTTP API plus the background render worker
//	jobs               list, show, and clear render jobs
//	config             init, show, and validate the TOML configuration
//	health             directory, ffmpeg, and collaborator checks
//	test-notify        push a test message to the ntfy topic
//
// A .env file in the working directory is loaded before the configuration;
// variables already present in the environment win.
package main
