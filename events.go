package mousetrap

import (
	"time"

	"github.com/five82/mousetrap/internal/reporter"
)

// Event types delivered to an EventHandler.
const (
	EventTypeProgress           = "progress"
	EventTypeClipWritten        = "clip_written"
	EventTypeValidationComplete = "validation_complete"
	EventTypeLabelsComplete     = "labels_complete"
	EventTypeWarning            = "warning"
	EventTypeError              = "error"
	EventTypeBatchComplete      = "batch_complete"
)

// Event is implemented by every event passed to an EventHandler.
type Event interface {
	Type() string
	Timestamp() int64
}

// EventHandler receives pipeline events. Returned errors are ignored.
type EventHandler func(Event) error

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	EventType string `json:"type"`
	Time      int64  `json:"timestamp"`
}

func (e BaseEvent) Type() string     { return e.EventType }
func (e BaseEvent) Timestamp() int64 { return e.Time }

// NewTimestamp returns the current Unix time in seconds.
func NewTimestamp() int64 {
	return time.Now().Unix()
}

func base(eventType string) BaseEvent {
	return BaseEvent{EventType: eventType, Time: NewTimestamp()}
}

// ProgressEvent reports progress of a proxy transcode or label build.
type ProgressEvent struct {
	BaseEvent
	Label      string  `json:"label"`
	Percent    float32 `json:"percent"`
	Speed      float32 `json:"speed"`
	ETASeconds int64   `json:"eta_seconds"`
}

// ClipWrittenEvent reports one finished clip.
type ClipWrittenEvent struct {
	BaseEvent
	Subject    string `json:"subject"`
	OutputPath string `json:"output_path"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Frames     int    `json:"frames"`
	Short      bool   `json:"short"`
}

// ValidationStep is one output check.
type ValidationStep struct {
	Step    string `json:"step"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// ValidationCompleteEvent reports clip validation for one video.
type ValidationCompleteEvent struct {
	BaseEvent
	ValidationPassed bool             `json:"validation_passed"`
	ValidationSteps  []ValidationStep `json:"validation_steps"`
}

// LabelsCompleteEvent reports one written targets table.
type LabelsCompleteEvent struct {
	BaseEvent
	OutputFile string   `json:"output_file"`
	Behaviors  []string `json:"behaviors"`
	Frames     int      `json:"frames"`
}

// WarningEvent carries a non-fatal message.
type WarningEvent struct {
	BaseEvent
	Message string `json:"message"`
}

// ErrorEvent reports a per-file failure.
type ErrorEvent struct {
	BaseEvent
	Title      string `json:"title"`
	Message    string `json:"message"`
	Context    string `json:"context"`
	Suggestion string `json:"suggestion"`
}

// BatchCompleteEvent summarizes a multi-file run.
type BatchCompleteEvent struct {
	BaseEvent
	Operation       string `json:"operation"`
	SuccessfulCount int    `json:"successful_count"`
	TotalFiles      int    `json:"total_files"`
	OutputsWritten  int    `json:"outputs_written"`
}

// eventReporter adapts EventHandler to the Reporter interface.
type eventReporter struct {
	reporter.NullReporter
	handler EventHandler
}

func newReporter(handler EventHandler) reporter.Reporter {
	if handler == nil {
		return reporter.NullReporter{}
	}
	return &eventReporter{handler: handler}
}

func (r *eventReporter) Progress(p reporter.ProgressSnapshot) {
	_ = r.handler(ProgressEvent{
		BaseEvent:  base(EventTypeProgress),
		Label:      p.Label,
		Percent:    p.Percent,
		Speed:      p.Speed,
		ETASeconds: int64(p.ETA.Seconds()),
	})
}

func (r *eventReporter) ClipWritten(c reporter.ClipOutcome) {
	_ = r.handler(ClipWrittenEvent{
		BaseEvent:  base(EventTypeClipWritten),
		Subject:    c.Subject,
		OutputPath: c.OutputPath,
		Start:      c.Start,
		End:        c.End,
		Frames:     c.Frames,
		Short:      c.Short,
	})
}

func (r *eventReporter) ValidationComplete(s reporter.ValidationSummary) {
	steps := make([]ValidationStep, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = ValidationStep{
			Step:    step.Name,
			Passed:  step.Passed,
			Details: step.Details,
		}
	}
	_ = r.handler(ValidationCompleteEvent{
		BaseEvent:        base(EventTypeValidationComplete),
		ValidationPassed: s.Passed,
		ValidationSteps:  steps,
	})
}

func (r *eventReporter) LabelsComplete(l reporter.LabelOutcome) {
	_ = r.handler(LabelsCompleteEvent{
		BaseEvent:  base(EventTypeLabelsComplete),
		OutputFile: l.OutputFile,
		Behaviors:  l.Behaviors,
		Frames:     l.Frames,
	})
}

func (r *eventReporter) Warning(message string) {
	_ = r.handler(WarningEvent{
		BaseEvent: base(EventTypeWarning),
		Message:   message,
	})
}

func (r *eventReporter) Error(e reporter.ReporterError) {
	_ = r.handler(ErrorEvent{
		BaseEvent:  base(EventTypeError),
		Title:      e.Title,
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}

func (r *eventReporter) BatchComplete(s reporter.BatchSummary) {
	_ = r.handler(BatchCompleteEvent{
		BaseEvent:       base(EventTypeBatchComplete),
		Operation:       s.Operation,
		SuccessfulCount: s.SuccessfulCount,
		TotalFiles:      s.TotalFiles,
		OutputsWritten:  s.OutputsWritten,
	})
}
