package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	Initialization(summary InitializationSummary)
	StageProgress(update StageProgress)
	ClipConfig(summary ClipConfigSummary)
	ProgressStarted(label string, totalFrames uint64)
	Progress(progress ProgressSnapshot)
	ClipWritten(outcome ClipOutcome)
	ValidationComplete(summary ValidationSummary)
	LabelsComplete(outcome LabelOutcome)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	BatchStarted(info BatchStartInfo)
	FileProgress(context FileProgressContext)
	BatchComplete(summary BatchSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)             {}
func (NullReporter) Initialization(InitializationSummary) {}
func (NullReporter) StageProgress(StageProgress)          {}
func (NullReporter) ClipConfig(ClipConfigSummary)         {}
func (NullReporter) ProgressStarted(string, uint64)       {}
func (NullReporter) Progress(ProgressSnapshot)            {}
func (NullReporter) ClipWritten(ClipOutcome)              {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) LabelsComplete(LabelOutcome)          {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) OperationComplete(string)             {}
func (NullReporter) BatchStarted(BatchStartInfo)          {}
func (NullReporter) FileProgress(FileProgressContext)     {}
func (NullReporter) BatchComplete(BatchSummary)           {}
func (NullReporter) Verbose(string)                       {}
