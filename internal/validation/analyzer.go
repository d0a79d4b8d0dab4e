// Package validation checks written clips against the stream they were cut from.
package validation

import (
	"context"

	"github.com/five82/mousetrap/internal/ffprobe"
)

// MediaAnalyzer provides media analysis capabilities for validation.
// This interface allows validation logic to be tested without external tools.
type MediaAnalyzer interface {
	// GetVideoProperties returns video stream properties for the given file.
	GetVideoProperties(ctx context.Context, path string) (*AnalyzerVideoProperties, error)
}

// AnalyzerVideoProperties contains video stream information needed for validation.
type AnalyzerVideoProperties struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Estimated  bool
	CodecName  string
	CodecTag   string
}

// ProbeAnalyzer implements MediaAnalyzer using ffprobe.
type ProbeAnalyzer struct {
	prober *ffprobe.Prober
}

// NewProbeAnalyzer creates an analyzer running the given ffprobe binary.
func NewProbeAnalyzer(binary string) *ProbeAnalyzer {
	return &ProbeAnalyzer{prober: ffprobe.New(binary)}
}

// GetVideoProperties returns video stream properties using ffprobe.
func (a *ProbeAnalyzer) GetVideoProperties(ctx context.Context, path string) (*AnalyzerVideoProperties, error) {
	props, err := a.prober.GetVideoProperties(ctx, path)
	if err != nil {
		return nil, err
	}
	return &AnalyzerVideoProperties{
		Width:      props.Width,
		Height:     props.Height,
		FPS:        props.FPS,
		FrameCount: props.FrameCount,
		Estimated:  props.Estimated,
		CodecName:  props.CodecName,
		CodecTag:   props.CodecTag,
	}, nil
}
