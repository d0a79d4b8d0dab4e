// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains host information.
type HardwareSummary struct {
	Hostname    string
	CPUs        int
	OS          string
	MemoryBytes uint64
}

// InitializationSummary describes the current video before clipping.
type InitializationSummary struct {
	InputFile  string
	OutputDir  string
	Resolution string
	FrameRate  string
	Frames     int
	Subjects   int
}

// IntervalInfo is one validated subject interval.
type IntervalInfo struct {
	Subject string
	Start   int
	End     int
}

// ClipConfigSummary describes how clips will be written.
type ClipConfigSummary struct {
	Extension string
	Encoder   string
	FourCC    string
	FrameRate string
	Proxy     bool
	Intervals []IntervalInfo
}

// ProgressSnapshot contains progress of a long-running step.
type ProgressSnapshot struct {
	Label        string
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
}

// ClipOutcome describes one written clip.
type ClipOutcome struct {
	Subject    string
	OutputPath string
	Start      int
	End        int
	Frames     int
	Short      bool
	SizeBytes  uint64
}

// ValidationSummary contains validation results.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// LabelOutcome describes one written targets table.
type LabelOutcome struct {
	AnnotationFile string
	FeaturesFile   string
	OutputFile     string
	Behaviors      []string
	Frames         int
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	Operation  string
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext contains current file index within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
	Filename    string
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	Operation             string
	SuccessfulCount       int
	TotalFiles            int
	TotalDuration         time.Duration
	OutputsWritten        int
	ShortClips            int
	ValidationPassedCount int
	ValidationFailedCount int
	FileResults           []FileResult
}

// FileResult contains the per-file outcome.
type FileResult struct {
	Filename string
	Outputs  int
	Error    string
}

// StageProgress represents a generic stage update.
type StageProgress struct {
	Stage   string
	Percent float32
	Message string
	ETA     *time.Duration
}
