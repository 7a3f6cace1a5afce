package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultFFmpeg = "ffmpeg"

// ResolveFFmpegPath returns the executable path for the configured ffmpeg
// command, or the configured value unchanged when it cannot be resolved.
func ResolveFFmpegPath(configured string) string {
	cmd := strings.TrimSpace(configured)
	if cmd == "" {
		cmd = defaultFFmpeg
	}
	if strings.ContainsRune(cmd, filepath.Separator) {
		return cmd
	}
	if resolved, err := exec.LookPath(cmd); err == nil {
		return resolved
	}
	return cmd
}

// CheckFFmpeg reports the ffmpeg binary used for clip rendering and assembly.
// An explicit path must point at an executable file; a bare name is looked
// up on PATH.
func CheckFFmpeg(configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required for clip rendering and final assembly",
	}
	cmd := ResolveFFmpegPath(configured)
	result.Command = cmd

	if strings.ContainsRune(cmd, filepath.Separator) {
		info, err := os.Stat(cmd)
		switch {
		case err != nil:
			result.Detail = fmt.Sprintf("binary %q not found", cmd)
		case !isExecutable(info):
			result.Detail = fmt.Sprintf("%q is not executable", cmd)
		default:
			result.Available = true
		}
		return result
	}
	result.Detail = fmt.Sprintf("binary %q not found", cmd)
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
