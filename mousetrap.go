// Package mousetrap provides a Go library for cutting per-subject clips out of
// behavior recordings and turning behavior annotations into classifier targets.
//
// Clipping reads enter/exit frame marks for each subject, validates that the
// intervals are complete and disjoint, and writes one clip per subject.
// Labeling parses a Caltech behavior annotation, builds a per-frame binary
// label matrix and appends it to a feature table.
//
// Basic usage:
//
//	clipper, err := mousetrap.NewClipper(
//	    mousetrap.WithOutputExtension(".mp4"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	set := mousetrap.NewIntervalSet()
//	set.Put("MouseA", mousetrap.Marks{Enter: mousetrap.Frame(100), Exit: mousetrap.Frame(200)})
//
//	result, err := clipper.Clip(ctx, "cage1.seq", "clips/", set, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Wrote %d clips\n", len(result.Clips))
package mousetrap

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/clip"
	"github.com/five82/mousetrap/internal/config"
	"github.com/five82/mousetrap/internal/convert"
	"github.com/five82/mousetrap/internal/discovery"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/interval"
	"github.com/five82/mousetrap/internal/processing"
	"github.com/five82/mousetrap/internal/reporter"
	"github.com/five82/mousetrap/internal/util"
)

// Reporter receives every pipeline event. Use it instead of an EventHandler
// for full access to progress and configuration events.
type Reporter = reporter.Reporter

// Re-export interval types
type (
	IntervalSet = interval.Set
	Marks       = interval.Marks
	Interval    = interval.Interval
)

// NewIntervalSet returns an empty interval set.
func NewIntervalSet() *IntervalSet {
	return interval.NewSet()
}

// Frame returns a pointer to n for use in Marks.
func Frame(n int) *int {
	return interval.Frame(n)
}

// ValidateIntervals checks that every subject is complete, ordered and
// disjoint from the others, returning the intervals sorted by start frame.
func ValidateIntervals(set *IntervalSet) ([]Interval, error) {
	return interval.Validate(set)
}

// ErrorKind classifies errors returned by this package.
type ErrorKind = mterrors.ErrorKind

// Error kinds callers commonly branch on.
const (
	KindIncompleteAnnotation = mterrors.KindIncompleteAnnotation
	KindInvalidOrder         = mterrors.KindInvalidOrder
	KindOverlappingIntervals = mterrors.KindOverlappingIntervals
	KindSourceUnreadable     = mterrors.KindSourceUnreadable
	KindCSVSchema            = mterrors.KindCSVSchema
	KindSegmentOutOfBounds   = mterrors.KindSegmentOutOfBounds
	KindNoBehaviorsSelected  = mterrors.KindNoBehaviorsSelected
	KindCancelled            = mterrors.KindCancelled
)

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return mterrors.IsKind(err, kind)
}

// Subjects returns the subjects an interval error names, if any.
func Subjects(err error) []string {
	return mterrors.Subjects(err)
}

// Option configures a Clipper or Labeler.
type Option func(*config.Config)

func newConfig(opts []Option) (*config.Config, error) {
	cfg := config.NewConfig("", "")
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithOutputExtension sets the clip container, such as ".avi" or "mp4".
func WithOutputExtension(ext string) Option {
	return func(c *config.Config) {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.OutputExtension = ext
	}
}

// WithFallbackFPS sets the frame rate used when a source reports none.
func WithFallbackFPS(fps float64) Option {
	return func(c *config.Config) {
		c.FallbackFPS = fps
	}
}

// WithoutProxy clips .seq and .mp4 sources directly instead of through an
// MJPEG AVI proxy.
func WithoutProxy() Option {
	return func(c *config.Config) {
		c.UseAVIProxy = false
	}
}

// WithKeepProxy keeps the proxy next to the clips as <stem>_proxy.avi.
func WithKeepProxy() Option {
	return func(c *config.Config) {
		c.KeepProxy = true
	}
}

// WithoutValidation skips probing the written clips.
func WithoutValidation() Option {
	return func(c *config.Config) {
		c.ValidateClips = false
	}
}

// WithTempDir sets where proxies and other intermediates are written.
func WithTempDir(dir string) Option {
	return func(c *config.Config) {
		c.TempDir = dir
	}
}

// WithFFmpeg sets the ffmpeg and ffprobe binaries.
func WithFFmpeg(ffmpegPath, ffprobePath string) Option {
	return func(c *config.Config) {
		c.FFmpegPath = ffmpegPath
		c.FFprobePath = ffprobePath
	}
}

// WithFrameOffset sets how annotation frames map onto feature rows.
// The default of 1 maps 1-based annotation frames onto row 0.
func WithFrameOffset(offset int) Option {
	return func(c *config.Config) {
		c.FrameOffset = offset
	}
}

// WithBehaviors limits label columns to the named behaviors.
func WithBehaviors(names ...string) Option {
	return func(c *config.Config) {
		c.IncludedBehaviors = append([]string{}, names...)
		c.IncludeAllBehaviors = false
	}
}

// WithExcludedBehaviors replaces the behaviors dropped from label columns.
func WithExcludedBehaviors(names ...string) Option {
	return func(c *config.Config) {
		c.ExcludedBehaviors = append([]string{}, names...)
	}
}

// WithTargetsSuffix sets the suffix appended to the feature file stem.
func WithTargetsSuffix(suffix string) Option {
	return func(c *config.Config) {
		c.TargetsSuffix = suffix
	}
}

// ClipOutput describes one clip. Path is empty when the interval lay past
// the end of the source and no file was written.
type ClipOutput struct {
	Subject string
	Path    string
	Start   int
	End     int
	Frames  int
	Short   bool
}

// ClipResult contains the clips cut from one video.
type ClipResult struct {
	Input            string
	Clips            []ClipOutput
	ValidationPassed bool
}

// FileError is a per-file failure inside a batch.
type FileError struct {
	Input string
	Err   error
}

// ClipBatchResult contains the result of clipping several videos.
type ClipBatchResult struct {
	Results         []ClipResult
	Failed          []FileError
	SuccessfulCount int
	TotalFiles      int
	ClipsWritten    int
}

// Clipper cuts per-subject clips from videos.
type Clipper struct {
	config *config.Config
	logger zerolog.Logger
}

// NewClipper creates a Clipper with the given options.
func NewClipper(opts ...Option) (*Clipper, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Clipper{config: cfg, logger: zerolog.Nop()}, nil
}

// SetLogger sets the structured logger used for diagnostics.
func (c *Clipper) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// Clip cuts one clip per subject in intervals from input into outputDir.
func (c *Clipper) Clip(ctx context.Context, input, outputDir string, intervals *IntervalSet, handler EventHandler) (*ClipResult, error) {
	return c.ClipWithReporter(ctx, input, outputDir, intervals, newReporter(handler))
}

// ClipWithReporter is Clip with direct access to all pipeline events.
func (c *Clipper) ClipWithReporter(ctx context.Context, input, outputDir string, intervals *IntervalSet, rep Reporter) (*ClipResult, error) {
	cfg := *c.config
	cfg.OutputDir = outputDir

	results, err := processing.ClipVideos(ctx, &cfg, []string{input}, processing.StaticAnnotations{Set: intervals}, rep, c.logger)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, mterrors.NewCancelledError()
	}
	if results[0].Err != nil {
		return nil, results[0].Err
	}
	r := toClipResult(input, results[0])
	return &r, nil
}

// ClipBatch clips every input using the annotation CSV at annotationsCSV.
// A single-file CSV applies to every input; a multi-file CSV is matched
// by file name. Per-file failures are collected in Failed.
func (c *Clipper) ClipBatch(ctx context.Context, inputs []string, outputDir, annotationsCSV string, handler EventHandler) (*ClipBatchResult, error) {
	lookup, _, err := processing.LoadAnnotations(annotationsCSV, c.logger)
	if err != nil {
		return nil, err
	}

	cfg := *c.config
	cfg.OutputDir = outputDir
	cfg.AnnotationsCSV = annotationsCSV

	results, err := processing.ClipVideos(ctx, &cfg, inputs, lookup, newReporter(handler), c.logger)
	if err != nil {
		return nil, err
	}

	batch := &ClipBatchResult{TotalFiles: len(inputs)}
	for i, r := range results {
		if r.Err != nil {
			batch.Failed = append(batch.Failed, FileError{Input: inputs[i], Err: r.Err})
			continue
		}
		cr := toClipResult(inputs[i], r)
		batch.Results = append(batch.Results, cr)
		batch.SuccessfulCount++
		batch.ClipsWritten += r.WrittenClips()
	}
	return batch, nil
}

func toClipResult(input string, r processing.ClipResult) ClipResult {
	out := ClipResult{Input: input, ValidationPassed: r.ValidationPassed}
	for _, c := range r.Clips {
		out.Clips = append(out.Clips, ClipOutput{
			Subject: c.Subject,
			Path:    c.Path,
			Start:   c.Start,
			End:     c.End,
			Frames:  c.Written,
			Short:   c.Short,
		})
	}
	return out
}

// LabelResult describes one written targets table.
type LabelResult struct {
	AnnotationFile string
	FeaturesFile   string
	OutputFile     string
	Behaviors      []string
	Frames         int
}

// LabelBatchResult contains the result of labeling a directory.
type LabelBatchResult struct {
	Results         []LabelResult
	Failed          []FileError
	Unpaired        []string
	SuccessfulCount int
	TotalFiles      int
}

// Labeler merges behavior annotations into feature tables.
type Labeler struct {
	config *config.Config
	logger zerolog.Logger
}

// NewLabeler creates a Labeler with the given options.
func NewLabeler(opts ...Option) (*Labeler, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Labeler{config: cfg, logger: zerolog.Nop()}, nil
}

// SetLogger sets the structured logger used for diagnostics.
func (l *Labeler) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

// Label writes <features stem><suffix>.csv into outputDir, or next to the
// features file when outputDir is empty.
func (l *Labeler) Label(ctx context.Context, annotationPath, featuresPath, outputDir string, handler EventHandler) (*LabelResult, error) {
	cfg := *l.config
	cfg.OutputDir = outputDir

	pair := discovery.LabelPair{
		Stem:           util.GetFileStem(annotationPath),
		AnnotationPath: annotationPath,
		FeaturesPath:   featuresPath,
	}
	results, err := processing.ConvertLabels(ctx, &cfg, []discovery.LabelPair{pair}, newReporter(handler), l.logger)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, mterrors.NewCancelledError()
	}
	if results[0].Err != nil {
		return nil, results[0].Err
	}
	r := toLabelResult(results[0])
	return &r, nil
}

// LabelDir pairs every <stem>.txt in annotationDir with <stem>.csv in
// featuresDir (annotationDir when empty) and labels each pair.
func (l *Labeler) LabelDir(ctx context.Context, annotationDir, featuresDir, outputDir string, handler EventHandler) (*LabelBatchResult, error) {
	found, err := discovery.FindLabelPairs(annotationDir, featuresDir, nil)
	if err != nil {
		return nil, err
	}

	cfg := *l.config
	cfg.InputDir = annotationDir
	cfg.OutputDir = outputDir

	results, err := processing.ConvertLabels(ctx, &cfg, found.Pairs, newReporter(handler), l.logger)
	if err != nil {
		return nil, err
	}

	batch := &LabelBatchResult{Unpaired: found.Unpaired, TotalFiles: len(found.Pairs)}
	for _, r := range results {
		if r.Err != nil {
			batch.Failed = append(batch.Failed, FileError{Input: r.Pair.AnnotationPath, Err: r.Err})
			continue
		}
		batch.Results = append(batch.Results, toLabelResult(r))
		batch.SuccessfulCount++
	}
	return batch, nil
}

func toLabelResult(r processing.LabelResult) LabelResult {
	return LabelResult{
		AnnotationFile: r.Pair.AnnotationPath,
		FeaturesFile:   r.Pair.FeaturesPath,
		OutputFile:     r.Summary.OutputPath,
		Behaviors:      r.Summary.Behaviors,
		Frames:         r.Summary.Frames,
	}
}

// FindVideos returns the clip sources in dir, or dir itself when it is a
// supported video file.
func FindVideos(dir string) ([]string, error) {
	return discovery.Collect(dir, clip.InputExtensions, nil)
}

// Convert converts input into the format implied by output's extension.
// Progress, when non-nil, receives completion percentages.
func Convert(ctx context.Context, input, output string, progress func(percent int)) error {
	cfg := config.NewConfig(filepath.Dir(output), "")
	return convert.New(cfg, convert.DefaultTools(), zerolog.Nop()).Convert(ctx, input, output, progress).Err
}
