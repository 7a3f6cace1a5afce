package ffmpeg

import (
	"fmt"
	"os"
	"strings"
)

// Cue is one subtitle entry, in seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// CuesFromDurations lays texts end to end using the matching durations.
func CuesFromDurations(texts []string, durations []float64) []Cue {
	cues := make([]Cue, 0, len(texts))
	var cursor float64
	for i, text := range texts {
		if i >= len(durations) {
			break
		}
		cues = append(cues, Cue{Start: cursor, End: cursor + durations[i], Text: text})
		cursor += durations[i]
	}
	return cues
}

// WriteSRT writes cues as a SubRip file. Blank cues are skipped but keep
// their time slot.
func WriteSRT(path string, cues []Cue) error {
	var b strings.Builder
	n := 0
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", n, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), text)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
