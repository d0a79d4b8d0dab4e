package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/five82/mousetrap/internal/ffmpeg"
)

// mockAnalyzer implements MediaAnalyzer for testing.
type mockAnalyzer struct {
	videoProps    *AnalyzerVideoProperties
	videoPropsErr error
}

func (m *mockAnalyzer) GetVideoProperties(context.Context, string) (*AnalyzerVideoProperties, error) {
	return m.videoProps, m.videoPropsErr
}

func expectAll(width, height int, fps float64, frames int, codec ffmpeg.Codec, tagged bool) Options {
	return Options{
		ExpectedDimensions: &[2]int{width, height},
		ExpectedFPS:        &fps,
		ExpectedFrames:     &frames,
		ExpectedCodec:      &codec,
		Tagged:             tagged,
	}
}

func TestValidateWithAnalyzer_ValidMJPEGClip(t *testing.T) {
	mock := &mockAnalyzer{videoProps: &AnalyzerVideoProperties{
		Width:      640,
		Height:     480,
		FPS:        25,
		FrameCount: 101,
		CodecName:  "mjpeg",
		CodecTag:   "MJPG",
	}}

	result, err := ValidateWithAnalyzer(context.Background(), mock, "/fake/cage_MouseA.avi",
		expectAll(640, 480, 25, 101, ffmpeg.CodecMJPEG, true))
	if err != nil {
		t.Fatalf("ValidateWithAnalyzer() error = %v", err)
	}
	if !result.IsValid() {
		t.Errorf("IsValid() = false, want true. Failures: %v", result.GetFailures())
	}
	if got := len(result.GetValidationSteps()); got != 4 {
		t.Errorf("got %d steps, want 4", got)
	}
}

func TestValidateWithAnalyzer_Mismatches(t *testing.T) {
	base := AnalyzerVideoProperties{
		Width:      640,
		Height:     480,
		FPS:        25,
		FrameCount: 51,
		CodecName:  "mpeg4",
		CodecTag:   "mp4v",
	}

	tests := []struct {
		name     string
		mutate   func(p *AnalyzerVideoProperties)
		failStep string
	}{
		{"codec", func(p *AnalyzerVideoProperties) { p.CodecName = "h264" }, "Video codec"},
		{"dimensions", func(p *AnalyzerVideoProperties) { p.Height = 360 }, "Dimensions"},
		{"frame rate", func(p *AnalyzerVideoProperties) { p.FPS = 29.97 }, "Frame rate"},
		{"frame count", func(p *AnalyzerVideoProperties) { p.FrameCount = 50 }, "Frame count"},
		{"frame count unknown", func(p *AnalyzerVideoProperties) { p.FrameCount = 0 }, "Frame count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := base
			tt.mutate(&props)
			result, err := ValidateWithAnalyzer(context.Background(), &mockAnalyzer{videoProps: &props},
				"/fake/cage_MouseB.mp4", expectAll(640, 480, 25, 51, ffmpeg.CodecMPEG4, false))
			if err != nil {
				t.Fatalf("ValidateWithAnalyzer() error = %v", err)
			}
			if result.IsValid() {
				t.Fatal("IsValid() = true, want false")
			}
			failures := result.GetFailures()
			if len(failures) != 1 || !strings.HasPrefix(failures[0], tt.failStep+":") {
				t.Errorf("failures = %v, want one %q failure", failures, tt.failStep)
			}
		})
	}
}

func TestValidateWithAnalyzer_EstimatedFrameCount(t *testing.T) {
	mock := &mockAnalyzer{videoProps: &AnalyzerVideoProperties{
		Width: 320, Height: 240, FPS: 25, FrameCount: 52, Estimated: true, CodecName: "mpeg4",
	}}

	result, err := ValidateWithAnalyzer(context.Background(), mock, "/fake/x.mp4",
		expectAll(320, 240, 25, 51, ffmpeg.CodecMPEG4, false))
	if err != nil {
		t.Fatalf("ValidateWithAnalyzer() error = %v", err)
	}
	if !result.IsFrameCountCorrect {
		t.Errorf("estimated count within one frame rejected: %s", result.FrameCountMessage)
	}
}

func TestValidateWithAnalyzer_TagMismatch(t *testing.T) {
	mock := &mockAnalyzer{videoProps: &AnalyzerVideoProperties{
		Width: 320, Height: 240, FPS: 25, FrameCount: 3, CodecName: "mjpeg", CodecTag: "AVRn",
	}}

	result, err := ValidateWithAnalyzer(context.Background(), mock, "/fake/x.avi",
		expectAll(320, 240, 25, 3, ffmpeg.CodecMJPEG, true))
	if err != nil {
		t.Fatalf("ValidateWithAnalyzer() error = %v", err)
	}
	if result.IsCodecCorrect {
		t.Error("IsCodecCorrect = true, want false for wrong FourCC")
	}
	want := "Expected mjpeg, got mjpeg [AVRn]"
	if got := result.GetValidationSteps()[0].Details; got != want {
		t.Errorf("codec details = %q, want %q", got, want)
	}
}

func TestValidateWithAnalyzer_NoExpectations(t *testing.T) {
	mock := &mockAnalyzer{videoProps: &AnalyzerVideoProperties{Width: 320, Height: 240, CodecName: "mpeg4"}}

	result, err := ValidateWithAnalyzer(context.Background(), mock, "/fake/x.mp4", Options{})
	if err != nil {
		t.Fatalf("ValidateWithAnalyzer() error = %v", err)
	}
	if !result.IsValid() {
		t.Errorf("IsValid() = false with no expectations: %v", result.GetFailures())
	}
	if result.DimensionsMessage != "320x240" {
		t.Errorf("DimensionsMessage = %q", result.DimensionsMessage)
	}
}

func TestValidateWithAnalyzer_AnalyzerError(t *testing.T) {
	probeErr := errors.New("ffprobe exploded")
	mock := &mockAnalyzer{videoPropsErr: probeErr}

	_, err := ValidateWithAnalyzer(context.Background(), mock, "/fake/x.mp4", Options{})
	if !errors.Is(err, probeErr) {
		t.Errorf("error = %v, want wrapped probe error", err)
	}
}

func TestValidateFrameCount(t *testing.T) {
	tests := []struct {
		actual, expected int
		estimated        bool
		want             bool
	}{
		{101, 101, false, true},
		{100, 101, false, false},
		{100, 101, true, true},
		{99, 101, true, false},
	}

	for _, tt := range tests {
		got, msg := validateFrameCount(tt.actual, tt.expected, tt.estimated)
		if got != tt.want {
			t.Errorf("validateFrameCount(%d, %d, %v) = %v (%s), want %v",
				tt.actual, tt.expected, tt.estimated, got, msg, tt.want)
		}
	}
}
