package interval

import (
	"math"
	"time"
)

// FrameAt converts a playback position to the 1-based frame shown at that
// position, clamped to totalFrames when totalFrames is positive.
func FrameAt(position time.Duration, fps float64, totalFrames int) int {
	if fps <= 0 || position < 0 {
		return 1
	}
	frame := int(math.Floor(position.Seconds()*fps)) + 1
	if totalFrames > 0 && frame > totalFrames {
		return totalFrames
	}
	return frame
}

// PositionOf returns the first whole millisecond at which the 1-based frame
// is shown, so FrameAt(PositionOf(f)) == f.
func PositionOf(frame int, fps float64) time.Duration {
	if fps <= 0 || frame <= 1 {
		return 0
	}
	ms := int64(math.Ceil(float64(frame-1) * 1000 / fps))
	return time.Duration(ms) * time.Millisecond
}
