package validation

import "fmt"

// Result contains the overall validation result for one clip.
type Result struct {
	IsCodecCorrect      bool
	IsDimensionsCorrect bool
	IsFrameRateCorrect  bool
	IsFrameCountCorrect bool

	// Details
	CodecName         string
	CodecTag          string
	ExpectedCodec     string
	ActualDimensions  [2]int
	DimensionsMessage string
	ActualFPS         float64
	FrameRateMessage  string
	ActualFrames      int
	ExpectedFrames    int
	FrameCountMessage string
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.IsCodecCorrect &&
		r.IsDimensionsCorrect &&
		r.IsFrameRateCorrect &&
		r.IsFrameCountCorrect
}

// GetValidationSteps returns all validation steps with results.
func (r *Result) GetValidationSteps() []ValidationStep {
	return []ValidationStep{
		{
			Name:    "Video codec",
			Passed:  r.IsCodecCorrect,
			Details: formatCodecDetails(r.CodecName, r.CodecTag, r.ExpectedCodec, r.IsCodecCorrect),
		},
		{
			Name:    "Dimensions",
			Passed:  r.IsDimensionsCorrect,
			Details: r.DimensionsMessage,
		},
		{
			Name:    "Frame rate",
			Passed:  r.IsFrameRateCorrect,
			Details: r.FrameRateMessage,
		},
		{
			Name:    "Frame count",
			Passed:  r.IsFrameCountCorrect,
			Details: r.FrameCountMessage,
		},
	}
}

// GetFailures returns descriptions of failed validation checks.
func (r *Result) GetFailures() []string {
	var failures []string
	for _, step := range r.GetValidationSteps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

func formatCodecDetails(name, tag, expected string, passed bool) string {
	got := name
	if tag != "" {
		got = fmt.Sprintf("%s [%s]", name, tag)
	}
	switch {
	case passed:
		return got
	case expected == "":
		return "Unknown codec"
	case name != "":
		return fmt.Sprintf("Expected %s, got %s", expected, got)
	}
	return "Unknown codec"
}
