// Package errors provides structured error types for mousetrap operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindPath represents missing or unusable paths.
	KindPath
	// KindCommand represents external command execution errors.
	KindCommand
	// KindFFmpeg represents FFmpeg-specific errors.
	KindFFmpeg
	// KindFFprobeParse represents FFprobe output parsing errors.
	KindFFprobeParse
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindNoFilesFound represents no suitable input files found.
	KindNoFilesFound
	// KindCancelled represents user-cancelled operations.
	KindCancelled
	// KindUnsupported represents an input/output combination that is not handled.
	KindUnsupported

	// KindIncompleteAnnotation means a subject is missing its enter or exit frame.
	KindIncompleteAnnotation
	// KindInvalidOrder means a subject's exit frame precedes its enter frame.
	KindInvalidOrder
	// KindOverlappingIntervals means two subject intervals share at least one frame.
	KindOverlappingIntervals
	// KindInvalidSubject means a subject name cannot be used to name an output.
	KindInvalidSubject
	// KindSourceUnreadable means the source video could not be opened.
	KindSourceUnreadable

	// KindCSVSchema means a CSV header does not match the expected columns.
	KindCSVSchema
	// KindParse means a value in an input file could not be parsed.
	KindParse
	// KindNoSegmentsFound means an annotation file has no behavior segments.
	KindNoSegmentsFound
	// KindNoBehaviorsSelected means behavior resolution produced no columns.
	KindNoBehaviorsSelected
	// KindSegmentOutOfBounds means a segment maps outside the feature table rows.
	KindSegmentOutOfBounds
	// KindEmptyFeatureTable means the feature table has no rows.
	KindEmptyFeatureTable
	// KindRowMismatch means the feature table and label matrix disagree on row count.
	KindRowMismatch
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindPath:
		return "Path error"
	case KindCommand:
		return "Command error"
	case KindFFmpeg:
		return "FFmpeg error"
	case KindFFprobeParse:
		return "FFprobe parse error"
	case KindConfig:
		return "Configuration error"
	case KindNoFilesFound:
		return "No files found"
	case KindCancelled:
		return "Operation cancelled"
	case KindUnsupported:
		return "Unsupported operation"
	case KindIncompleteAnnotation:
		return "Incomplete annotation"
	case KindInvalidOrder:
		return "Invalid interval order"
	case KindOverlappingIntervals:
		return "Overlapping intervals"
	case KindInvalidSubject:
		return "Invalid subject name"
	case KindSourceUnreadable:
		return "Source unreadable"
	case KindCSVSchema:
		return "CSV schema error"
	case KindParse:
		return "Parse error"
	case KindNoSegmentsFound:
		return "No segments found"
	case KindNoBehaviorsSelected:
		return "No behaviors selected"
	case KindSegmentOutOfBounds:
		return "Segment out of bounds"
	case KindEmptyFeatureTable:
		return "Empty feature table"
	case KindRowMismatch:
		return "Row count mismatch"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandWait means waiting for the command failed.
	CommandWait
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandWait:
		return fmt.Sprintf("failed to wait for %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Stderr != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// SubjectError carries the annotated subjects (or behavior) and frame range
// behind a validation failure.
type SubjectError struct {
	Subjects   []string
	StartFrame int
	EndFrame   int
}

func (e *SubjectError) Error() string {
	quoted := make([]string, len(e.Subjects))
	for i, s := range e.Subjects {
		quoted[i] = fmt.Sprintf("'%s'", s)
	}
	names := strings.Join(quoted, " and ")
	if e.StartFrame == 0 && e.EndFrame == 0 {
		return names
	}
	return fmt.Sprintf("%s (frames %d-%d)", names, e.StartFrame, e.EndFrame)
}

// CoreError is the main error type for mousetrap operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a CoreError of the given kind.
func New(kind ErrorKind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap creates a CoreError of the given kind around an underlying error.
func Wrap(kind ErrorKind, message string, underlying error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Underlying: underlying}
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewPathError creates a new path-related error.
func NewPathError(message string) *CoreError {
	return &CoreError{Kind: KindPath, Message: message}
}

// NewCommandError creates a new command execution error.
func NewCommandError(cmd string, kind CommandErrorKind, underlying error) *CoreError {
	cmdErr := &CommandError{
		Command:    cmd,
		Kind:       kind,
		Underlying: underlying,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandStart, err)
}

// NewCommandWaitError creates an error for when waiting for a command fails.
func NewCommandWaitError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandWait, err)
}

// NewCommandFailedError creates an error for when a command returns non-zero exit status.
func NewCommandFailedError(cmd string, exitCode int, stderr string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewFFmpegError creates a new FFmpeg-specific error.
func NewFFmpegError(message string) *CoreError {
	return &CoreError{Kind: KindFFmpeg, Message: message}
}

// NewFFprobeParseError creates a new FFprobe parsing error.
func NewFFprobeParseError(message string) *CoreError {
	return &CoreError{Kind: KindFFprobeParse, Message: message}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewNoFilesFoundError creates an error for when no input files are found.
func NewNoFilesFoundError(dir string) *CoreError {
	return &CoreError{Kind: KindNoFilesFound, Message: fmt.Sprintf("no suitable input files found in %s", dir)}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// NewIncompleteAnnotationError reports a subject missing its enter or exit frame.
func NewIncompleteAnnotationError(subject string) *CoreError {
	return &CoreError{
		Kind:       KindIncompleteAnnotation,
		Message:    "missing enter or exit frame for intruder",
		Underlying: &SubjectError{Subjects: []string{subject}},
	}
}

// NewInvalidOrderError reports a subject whose exit precedes its enter.
func NewInvalidOrderError(subject string, enter, exit int) *CoreError {
	return &CoreError{
		Kind:       KindInvalidOrder,
		Message:    "exit frame occurs before enter frame for intruder",
		Underlying: &SubjectError{Subjects: []string{subject}, StartFrame: enter, EndFrame: exit},
	}
}

// NewOverlappingIntervalsError reports two subjects whose intervals overlap.
// start is the later interval's start and end the earlier interval's end.
func NewOverlappingIntervalsError(first, second string, start, end int) *CoreError {
	return &CoreError{
		Kind:       KindOverlappingIntervals,
		Message:    "overlapping intruder intervals found between",
		Underlying: &SubjectError{Subjects: []string{first, second}, StartFrame: start, EndFrame: end},
	}
}

// NewSourceUnreadableError reports a source video that could not be opened.
func NewSourceUnreadableError(path string, underlying error) *CoreError {
	return &CoreError{Kind: KindSourceUnreadable, Message: fmt.Sprintf("could not open %s for clipping", path), Underlying: underlying}
}

// NewSegmentOutOfBoundsError reports a behavior segment mapping outside 0..rows-1.
func NewSegmentOutOfBoundsError(behavior string, start, end, offset, rows int) *CoreError {
	return &CoreError{
		Kind: KindSegmentOutOfBounds,
		Message: fmt.Sprintf("segment maps to rows %d-%d, which is outside 0..%d; adjust frame offset if this is an off-by-one error",
			start-offset, end-offset, rows-1),
		Underlying: &SubjectError{Subjects: []string{behavior}, StartFrame: start, EndFrame: end},
	}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsNoFilesFound checks if the error is a no-files-found error.
func IsNoFilesFound(err error) bool {
	return IsKind(err, KindNoFilesFound)
}

// Subjects returns the subject or behavior names attached to err, if any.
func Subjects(err error) []string {
	var subjErr *SubjectError
	if errors.As(err, &subjErr) {
		return subjErr.Subjects
	}
	return nil
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, stderr string) *CoreError {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), stderr)
	}
	return NewCommandStartError(cmd, err)
}
