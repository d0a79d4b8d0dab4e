package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/five82/mousetrap/internal/ffmpeg"
)

const (
	// fpsTolerance is the maximum allowed difference between source and clip frame rate.
	fpsTolerance = 0.01
	// estimatedFrameTolerance applies when the container has no frame count
	// and ffprobe derived one from duration.
	estimatedFrameTolerance = 1
)

// Options contains optional parameters for validation.
type Options struct {
	ExpectedDimensions *[2]int
	ExpectedFPS        *float64
	ExpectedFrames     *int
	ExpectedCodec      *ffmpeg.Codec
	// Tagged requires the stream FourCC to match ExpectedCodec.FourCC.
	Tagged bool
}

// ValidateClip validates a written clip with an ffprobe-backed analyzer.
func ValidateClip(ctx context.Context, ffprobePath, clipPath string, opts Options) (*Result, error) {
	return ValidateWithAnalyzer(ctx, NewProbeAnalyzer(ffprobePath), clipPath, opts)
}

// validateDimensions checks that dimensions match expected values.
func validateDimensions(actualW, actualH, expectedW, expectedH int) (bool, string) {
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("Dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("Dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

// validateFrameRate checks that the clip kept the source rate.
func validateFrameRate(actual, expected float64) (bool, string) {
	if math.Abs(actual-expected) <= fpsTolerance {
		return true, fmt.Sprintf("Frame rate matches source (%.3f fps)", actual)
	}
	return false, fmt.Sprintf("Frame rate mismatch: got %.3f fps, expected %.3f fps", actual, expected)
}

// validateFrameCount checks the number of frames in the clip.
func validateFrameCount(actual, expected int, estimated bool) (bool, string) {
	tolerance := 0
	if estimated {
		tolerance = estimatedFrameTolerance
	}
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		if estimated {
			return true, fmt.Sprintf("%d frames (estimated from duration)", actual)
		}
		return true, fmt.Sprintf("%d frames", actual)
	}
	return false, fmt.Sprintf("Frame count mismatch: got %d, expected %d", actual, expected)
}

// validateCodec checks the encoder and, for tagged containers, the FourCC.
func validateCodec(name, tag string, expected ffmpeg.Codec, tagged bool) bool {
	if !strings.EqualFold(name, expected.Encoder) {
		return false
	}
	if tagged && tag != "" && !strings.EqualFold(tag, expected.FourCC) {
		return false
	}
	return true
}

// ValidateWithAnalyzer performs validation using a MediaAnalyzer interface.
// Checks without an expectation pass and report what was found.
func ValidateWithAnalyzer(ctx context.Context, analyzer MediaAnalyzer, clipPath string, opts Options) (*Result, error) {
	props, err := analyzer.GetVideoProperties(ctx, clipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get clip video properties: %w", err)
	}

	result := &Result{
		IsCodecCorrect:      true,
		IsDimensionsCorrect: true,
		IsFrameRateCorrect:  true,
		IsFrameCountCorrect: true,
		CodecName:           props.CodecName,
		CodecTag:            props.CodecTag,
		ActualDimensions:    [2]int{props.Width, props.Height},
		ActualFPS:           props.FPS,
		ActualFrames:        props.FrameCount,
	}

	if opts.ExpectedCodec != nil {
		result.ExpectedCodec = opts.ExpectedCodec.Encoder
		result.IsCodecCorrect = validateCodec(props.CodecName, props.CodecTag, *opts.ExpectedCodec, opts.Tagged)
	}

	if opts.ExpectedDimensions != nil {
		result.IsDimensionsCorrect, result.DimensionsMessage = validateDimensions(
			props.Width, props.Height,
			opts.ExpectedDimensions[0], opts.ExpectedDimensions[1],
		)
	} else {
		result.DimensionsMessage = fmt.Sprintf("%dx%d", props.Width, props.Height)
	}

	if opts.ExpectedFPS != nil {
		result.IsFrameRateCorrect, result.FrameRateMessage = validateFrameRate(props.FPS, *opts.ExpectedFPS)
	} else {
		result.FrameRateMessage = "Frame rate validation skipped"
	}

	if opts.ExpectedFrames != nil {
		result.ExpectedFrames = *opts.ExpectedFrames
		if props.FrameCount == 0 {
			result.IsFrameCountCorrect = false
			result.FrameCountMessage = "Frame count unavailable"
		} else {
			result.IsFrameCountCorrect, result.FrameCountMessage = validateFrameCount(
				props.FrameCount, *opts.ExpectedFrames, props.Estimated,
			)
		}
	} else {
		result.FrameCountMessage = "Frame count validation skipped"
	}

	return result, nil
}
