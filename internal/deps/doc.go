// Package deps resolves the external binaries used for rendering. CheckFFmpeg
// resolves the configured ffmpeg command the same way the renderer will run it.
package deps
