package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/mousetrap/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	progress   *progressbar.ProgressBar
	maxPercent float32
	lastStage  string
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	faint      *color.Color
}

// NewTerminalReporter creates a terminal reporter writing to stdout and stderr.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom writers.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

func (r *TerminalReporter) section(title string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.section("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "CPUs:", fmt.Sprintf("%d (%s)", summary.CPUs, summary.OS))
	if summary.MemoryBytes > 0 {
		r.printLabel(10, "Memory:", util.FormatBytes(summary.MemoryBytes)+" available")
	}
}

func (r *TerminalReporter) Initialization(summary InitializationSummary) {
	r.section("VIDEO")
	r.printLabel(11, "File:", summary.InputFile)
	r.printLabel(11, "Output:", summary.OutputDir)
	r.printLabel(11, "Resolution:", summary.Resolution)
	r.printLabel(11, "Frame rate:", summary.FrameRate)
	if summary.Frames > 0 {
		r.printLabel(11, "Frames:", fmt.Sprintf("%d", summary.Frames))
	}
	r.printLabel(11, "Subjects:", fmt.Sprintf("%d", summary.Subjects))
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.lastStage = update.Stage
		r.mu.Unlock()
		r.section(strings.ToUpper(update.Stage))
	} else {
		r.mu.Unlock()
	}
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) ClipConfig(summary ClipConfigSummary) {
	r.section("CLIPPING")
	const w = 10
	r.printLabel(w, "Format:", summary.Extension)
	r.printLabel(w, "Encoder:", fmt.Sprintf("%s (%s)", summary.Encoder, summary.FourCC))
	r.printLabel(w, "Rate:", summary.FrameRate)
	proxy := r.faint.Sprint("direct")
	if summary.Proxy {
		proxy = r.green.Sprint("MJPEG AVI proxy")
	}
	r.printLabel(w, "Source:", proxy)
	for _, iv := range summary.Intervals {
		_, _ = fmt.Fprintf(r.out, "  - %s: frames %d-%d\n", r.bold.Sprint(iv.Subject), iv.Start, iv.End)
	}
}

func (r *TerminalReporter) ProgressStarted(label string, totalFrames uint64) {
	r.finishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      label + " [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) Progress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := min(max(progress.Percent, 0), 100)
	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	if progress.Speed > 0 {
		r.progress.Describe(fmt.Sprintf("speed %.1fx, eta %s",
			progress.Speed, util.FormatDuration(progress.ETA.Seconds())))
	} else if progress.TotalFrames > 0 {
		r.progress.Describe(fmt.Sprintf("frame %d/%d", progress.CurrentFrame, progress.TotalFrames))
	}
}

func (r *TerminalReporter) ClipWritten(outcome ClipOutcome) {
	r.finishProgress()

	status := r.green.Sprint("✓")
	detail := fmt.Sprintf("%d frames", outcome.Frames)
	if outcome.SizeBytes > 0 {
		detail += ", " + util.FormatBytes(outcome.SizeBytes)
	}
	if outcome.Short {
		status = r.yellow.Sprint("!")
		detail = fmt.Sprintf("%d of %d frames, source ended early", outcome.Frames, outcome.End-outcome.Start+1)
	}
	_, _ = fmt.Fprintf(r.out, "  %s %s (%d-%d, %s) -> %s\n",
		status, r.bold.Sprint(outcome.Subject), outcome.Start, outcome.End, detail, outcome.OutputPath)
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	r.finishProgress()
	r.section("VALIDATION")

	if summary.Passed {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.green.Add(color.Bold).Sprint("All checks passed"))
	} else {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.red.Sprint("Validation failed"))
	}

	maxLen := 0
	for _, step := range summary.Steps {
		maxLen = max(maxLen, len(step.Name))
	}

	for _, step := range summary.Steps {
		status := r.red.Sprint("✗")
		if step.Passed {
			status = r.green.Sprint("✓")
		}
		paddedName := fmt.Sprintf("%-*s", maxLen, step.Name)
		_, _ = fmt.Fprintf(r.out, "  - %s: %s (%s)\n", paddedName, status, step.Details)
	}
}

func (r *TerminalReporter) LabelsComplete(outcome LabelOutcome) {
	r.finishProgress()
	r.section("LABELS")
	r.printLabel(11, "Annotation:", outcome.AnnotationFile)
	r.printLabel(11, "Features:", outcome.FeaturesFile)
	r.printLabel(11, "Behaviors:", strings.Join(outcome.Behaviors, ", "))
	r.printLabel(11, "Frames:", fmt.Sprintf("%d", outcome.Frames))
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(outcome.OutputFile))
}

func (r *TerminalReporter) Warning(message string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.finishProgress()
	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	r.finishProgress()
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.green.Add(color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	r.section("BATCH")
	_, _ = fmt.Fprintf(r.out, "  %s %d files -> %s\n", info.Operation, info.TotalFiles, r.bold.Sprint(info.OutputDir))
	for i, name := range info.FileList {
		_, _ = fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(context FileProgressContext) {
	_, _ = fmt.Fprintf(r.out, "\nFile %s of %d: %s\n",
		r.bold.Sprint(context.CurrentFile),
		context.TotalFiles,
		context.Filename)
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	r.finishProgress()
	r.section("BATCH SUMMARY")
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d succeeded (%s)",
		summary.SuccessfulCount, summary.TotalFiles, util.FormatPercent(summary.SuccessfulCount, summary.TotalFiles)))
	_, _ = fmt.Fprintf(r.out, "  Outputs: %d written", summary.OutputsWritten)
	if summary.ShortClips > 0 {
		_, _ = fmt.Fprintf(r.out, ", %s", r.yellow.Sprintf("%d short", summary.ShortClips))
	}
	_, _ = fmt.Fprintln(r.out)
	if summary.ValidationPassedCount+summary.ValidationFailedCount > 0 {
		_, _ = fmt.Fprintf(r.out, "  Validation: %s passed, %s failed\n",
			r.green.Sprint(summary.ValidationPassedCount),
			r.red.Sprint(summary.ValidationFailedCount))
	}
	_, _ = fmt.Fprintf(r.out, "  Time: %s\n", util.FormatDuration(summary.TotalDuration.Seconds()))

	for _, result := range summary.FileResults {
		if result.Error != "" {
			_, _ = fmt.Fprintf(r.out, "  - %s: %s\n", result.Filename, r.red.Sprint(result.Error))
			continue
		}
		_, _ = fmt.Fprintf(r.out, "  - %s (%d outputs)\n", result.Filename, result.Outputs)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint(message))
}
