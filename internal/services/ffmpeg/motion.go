package ffmpeg

import (
	"fmt"
	"strings"
)

// Motion is the Ken Burns style move applied to a still.
type Motion string

const (
	MotionStatic   Motion = "static"
	MotionZoomIn   Motion = "zoom_in"
	MotionZoomOut  Motion = "zoom_out"
	MotionPanLeft  Motion = "pan_left"
	MotionPanRight Motion = "pan_right"
	MotionTiltUp   Motion = "tilt_up"
	MotionTiltDown Motion = "tilt_down"
	MotionShake    Motion = "shake"
)

var cameraMotions = map[string]Motion{
	"zoom_in":           MotionZoomIn,
	"slow_zoom_in":      MotionZoomIn,
	"dolly_in":          MotionZoomIn,
	"dolly_forward":     MotionZoomIn,
	"crash_zoom":        MotionZoomIn,
	"quick_zoom":        MotionZoomIn,
	"dramatic_zoom":     MotionZoomIn,
	"tight_close":       MotionZoomIn,
	"follow":            MotionZoomIn,
	"tracking":          MotionZoomIn,
	"zoom_out":          MotionZoomOut,
	"slow_zoom_out":     MotionZoomOut,
	"pull_back":         MotionZoomOut,
	"aerial_rise":       MotionZoomOut,
	"wide_establishing": MotionZoomOut,
	"pan_right":         MotionPanRight,
	"pan_around":        MotionPanRight,
	"orbit":             MotionPanRight,
	"360_spin":          MotionPanRight,
	"pan_left":          MotionPanLeft,
	"tilt_up":           MotionTiltUp,
	"crane_up":          MotionTiltUp,
	"tilt_down":         MotionTiltDown,
	"crane_down":        MotionTiltDown,
	"shake":             MotionShake,
	"handheld":          MotionShake,
	"dutch_angle":       MotionShake,
}

// MotionFor maps a camera directive to a motion. Unknown directives are static.
func MotionFor(camera string) Motion {
	if m, ok := cameraMotions[strings.ToLower(strings.TrimSpace(camera))]; ok {
		return m
	}
	return MotionStatic
}

// MotionFilter builds the zoompan filtergraph for camera over frames.
func MotionFilter(camera string, frames, fps, width, height int) string {
	if frames < 1 {
		frames = 1
	}
	const (
		centerX = "iw/2-(iw/zoom/2)"
		centerY = "ih/2-(ih/zoom/2)"
	)
	z, x, y := "1", centerX, centerY
	switch MotionFor(camera) {
	case MotionZoomIn:
		z = "min(zoom+0.0015,1.5)"
	case MotionZoomOut:
		z = "if(eq(on,0),1.5,max(zoom-0.0015,1))"
	case MotionPanRight:
		z = "1.2"
		x = fmt.Sprintf("(iw-iw/zoom)*on/%d", frames)
	case MotionPanLeft:
		z = "1.2"
		x = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", frames)
	case MotionTiltUp:
		z = "1.2"
		y = fmt.Sprintf("(ih-ih/zoom)*(1-on/%d)", frames)
	case MotionTiltDown:
		z = "1.2"
		y = fmt.Sprintf("(ih-ih/zoom)*on/%d", frames)
	case MotionShake:
		z = "1.1"
		x = centerX + "+sin(on)*8"
		y = centerY + "+cos(on*1.3)*8"
	}
	return fmt.Sprintf("scale=%d:-2,zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d,format=yuv420p",
		width*2, z, x, y, frames, width, height, fps)
}
