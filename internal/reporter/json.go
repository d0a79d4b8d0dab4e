package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JSONReporter outputs NDJSON events, one object per line.
// Every event carries the run_id of the reporter that emitted it.
type JSONReporter struct {
	writer             io.Writer
	runID              string
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		runID:              uuid.NewString(),
		lastProgressBucket: -1,
	}
}

// RunID returns the identifier attached to every emitted event.
func (r *JSONReporter) RunID() string {
	return r.runID
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(eventType string, fields map[string]any) {
	fields["type"] = eventType
	fields["run_id"] = r.runID
	fields["timestamp"] = r.timestamp()

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write("hardware", map[string]any{
		"hostname":     summary.Hostname,
		"cpus":         summary.CPUs,
		"os":           summary.OS,
		"memory_bytes": summary.MemoryBytes,
	})
}

func (r *JSONReporter) Initialization(summary InitializationSummary) {
	r.write("initialization", map[string]any{
		"input_file": summary.InputFile,
		"output_dir": summary.OutputDir,
		"resolution": summary.Resolution,
		"frame_rate": summary.FrameRate,
		"frames":     summary.Frames,
		"subjects":   summary.Subjects,
	})
}

func (r *JSONReporter) StageProgress(update StageProgress) {
	event := map[string]any{
		"stage":   update.Stage,
		"percent": update.Percent,
		"message": update.Message,
	}
	if update.ETA != nil {
		event["eta_seconds"] = int64(update.ETA.Seconds())
	}
	r.write("stage_progress", event)
}

func (r *JSONReporter) ClipConfig(summary ClipConfigSummary) {
	intervals := make([]map[string]any, len(summary.Intervals))
	for i, iv := range summary.Intervals {
		intervals[i] = map[string]any{
			"subject": iv.Subject,
			"start":   iv.Start,
			"end":     iv.End,
		}
	}

	r.write("clip_config", map[string]any{
		"extension":  summary.Extension,
		"encoder":    summary.Encoder,
		"fourcc":     summary.FourCC,
		"frame_rate": summary.FrameRate,
		"proxy":      summary.Proxy,
		"intervals":  intervals,
	})
}

func (r *JSONReporter) ProgressStarted(label string, totalFrames uint64) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write("progress_started", map[string]any{
		"label":        label,
		"total_frames": totalFrames,
	})
}

func (r *JSONReporter) Progress(progress ProgressSnapshot) {
	const progressBucketSize = 1
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write("progress", map[string]any{
		"label":         progress.Label,
		"current_frame": progress.CurrentFrame,
		"total_frames":  progress.TotalFrames,
		"percent":       progress.Percent,
		"speed":         progress.Speed,
		"fps":           progress.FPS,
		"eta_seconds":   int64(progress.ETA.Seconds()),
	})
}

func (r *JSONReporter) ClipWritten(outcome ClipOutcome) {
	r.write("clip_written", map[string]any{
		"subject":     outcome.Subject,
		"output_path": outcome.OutputPath,
		"start":       outcome.Start,
		"end":         outcome.End,
		"frames":      outcome.Frames,
		"short":       outcome.Short,
		"size_bytes":  outcome.SizeBytes,
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]any, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]any{
			"step":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}

	r.write("validation_complete", map[string]any{
		"validation_passed": summary.Passed,
		"validation_steps":  steps,
	})
}

func (r *JSONReporter) LabelsComplete(outcome LabelOutcome) {
	r.write("labels_complete", map[string]any{
		"annotation_file": outcome.AnnotationFile,
		"features_file":   outcome.FeaturesFile,
		"output_file":     outcome.OutputFile,
		"behaviors":       outcome.Behaviors,
		"frames":          outcome.Frames,
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write("warning", map[string]any{
		"message": message,
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write("error", map[string]any{
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write("operation_complete", map[string]any{
		"message": message,
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write("batch_started", map[string]any{
		"operation":   info.Operation,
		"total_files": info.TotalFiles,
		"file_list":   info.FileList,
		"output_dir":  info.OutputDir,
	})
}

func (r *JSONReporter) FileProgress(context FileProgressContext) {
	r.write("file_progress", map[string]any{
		"current_file": context.CurrentFile,
		"total_files":  context.TotalFiles,
		"filename":     context.Filename,
	})
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	results := make([]map[string]any, len(summary.FileResults))
	for i, res := range summary.FileResults {
		results[i] = map[string]any{
			"filename": res.Filename,
			"outputs":  res.Outputs,
			"error":    res.Error,
		}
	}

	r.write("batch_complete", map[string]any{
		"operation":               summary.Operation,
		"successful_count":        summary.SuccessfulCount,
		"total_files":             summary.TotalFiles,
		"outputs_written":         summary.OutputsWritten,
		"short_clips":             summary.ShortClips,
		"validation_passed_count": summary.ValidationPassedCount,
		"validation_failed_count": summary.ValidationFailedCount,
		"total_duration_seconds":  int64(summary.TotalDuration.Seconds()),
		"file_results":            results,
	})
}

// Verbose messages are terminal-only.
func (r *JSONReporter) Verbose(string) {}
