package ffmpeg

import (
	"fmt"
	"math"
)

// Raw frames exchanged over pipes are packed 8-bit BGR.
const (
	RawPixelFormat   = "bgr24"
	RawBytesPerPixel = 3
)

// Codec selects the encoder for a written clip.
type Codec struct {
	FourCC      string // Tag written into AVI containers, e.g. "MJPG"
	Encoder     string // ffmpeg encoder name
	PixelFormat string
}

// Supported clip codecs.
var (
	CodecMPEG4 = Codec{FourCC: "mp4v", Encoder: "mpeg4", PixelFormat: "yuv420p"}
	CodecMJPEG = Codec{FourCC: "MJPG", Encoder: "mjpeg", PixelFormat: "yuvj420p"}
)

// StreamInfo describes the geometry and timing of a frame stream.
type StreamInfo struct {
	Width  int
	Height int
	FPS    float64
	Frames int // 0 when unknown
}

// FrameSize returns the byte length of one raw frame.
func (s StreamInfo) FrameSize() int {
	return s.Width * s.Height * RawBytesPerPixel
}

// Size returns the WxH string ffmpeg expects for -s.
func (s StreamInfo) Size() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Rate formats the frame rate for -r, keeping integral rates short.
func (s StreamInfo) Rate() string {
	if s.FPS == math.Trunc(s.FPS) {
		return fmt.Sprintf("%d", int(s.FPS))
	}
	return fmt.Sprintf("%.6f", s.FPS)
}
