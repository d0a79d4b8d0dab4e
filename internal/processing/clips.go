// Package processing runs the clip and label pipelines over batches of files.
package processing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/clip"
	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/ffmpeg"
	"github.com/five82/mousetrap/internal/ffprobe"
	"github.com/five82/mousetrap/internal/interval"
	"github.com/five82/mousetrap/internal/reporter"
	"github.com/five82/mousetrap/internal/util"
	"github.com/five82/mousetrap/internal/validation"
)

// Proxies left behind by killed runs are removed once they are this old.
const (
	proxyTempPrefix = ".mousetrap_proxy_"
	staleProxyAge   = 24 * time.Hour
)

// AnnotationLookup finds the interval set for a video.
// *annotation.Mapping satisfies it.
type AnnotationLookup interface {
	Lookup(videoPath string) (*interval.Set, bool)
}

// StaticAnnotations applies one interval set to every video.
type StaticAnnotations struct {
	Set *interval.Set
}

// Lookup returns the wrapped set for any path.
func (s StaticAnnotations) Lookup(string) (*interval.Set, bool) {
	return s.Set, s.Set != nil
}

// ClipResult contains the result of clipping one video.
type ClipResult struct {
	Filename         string
	Duration         time.Duration
	Clips            []clip.Clip
	ValidationPassed bool
	ValidationSteps  []validation.ValidationStep
	Err              error
}

// ShortClips counts clips where the source ended before the interval did.
func (r ClipResult) ShortClips() int {
	n := 0
	for _, c := range r.Clips {
		if c.Short {
			n++
		}
	}
	return n
}

// WrittenClips counts clips that produced a file.
func (r ClipResult) WrittenClips() int {
	n := 0
	for _, c := range r.Clips {
		if !c.Empty() {
			n++
		}
	}
	return n
}

// ClipVideos cuts clips for every file using the intervals annotations
// returns for it. A failure on one video is reported and the batch moves on;
// only cancellation stops it early. The returned slice has one entry per
// attempted video.
func ClipVideos(
	ctx context.Context,
	cfg *config.Config,
	files []string,
	annotations AnnotationLookup,
	rep reporter.Reporter,
	logger zerolog.Logger,
) ([]ClipResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, mterrors.NewConfigError(err.Error())
	}
	if len(files) == 0 {
		return nil, mterrors.NewNoFilesFoundError(cfg.InputDir)
	}

	reportHardware(rep)
	startBatch(rep, "Clipping", files, cfg.OutputDir)

	if n, err := util.CleanupStaleTempFiles(cfg.GetTempDir(), proxyTempPrefix, staleProxyAge); err != nil {
		logger.Debug().Err(err).Msg("Stale proxy cleanup failed")
	} else if n > 0 {
		logger.Info().Int("removed", n).Msg("Removed stale proxies")
	}

	batchStart := time.Now()
	var results []ClipResult
	for fileIdx, inputPath := range files {
		if ctx.Err() != nil {
			rep.Warning(fmt.Sprintf("Clipping cancelled: %v", ctx.Err()))
			break
		}

		if len(files) > 1 {
			rep.FileProgress(reporter.FileProgressContext{
				CurrentFile: fileIdx + 1,
				TotalFiles:  len(files),
				Filename:    util.GetFilename(inputPath),
			})
		}

		start := time.Now()
		res, err := clipVideo(ctx, cfg, inputPath, annotations, rep, logger)
		res.Filename = util.GetFilename(inputPath)
		res.Duration = time.Since(start)
		if err != nil {
			res.Err = err
			logger.Error().Err(err).Str("input", inputPath).Msg("Clipping failed")
			rep.Error(clipError(inputPath, err))
		}
		results = append(results, res)
	}

	summarizeClips(rep, results, len(files), time.Since(batchStart))
	return results, nil
}

func clipVideo(
	ctx context.Context,
	cfg *config.Config,
	inputPath string,
	annotations AnnotationLookup,
	rep reporter.Reporter,
	logger zerolog.Logger,
) (ClipResult, error) {
	var res ClipResult

	if err := clip.CheckInput(inputPath); err != nil {
		return res, err
	}
	set, ok := annotations.Lookup(inputPath)
	if !ok {
		return res, mterrors.New(mterrors.KindIncompleteAnnotation,
			fmt.Sprintf("no annotations found for %s", util.GetFilename(inputPath)))
	}
	intervals, err := interval.Validate(set)
	if err != nil {
		return res, err
	}

	prober := ffprobe.New(cfg.FFprobePath)
	props, err := prober.GetVideoProperties(ctx, inputPath)
	if err != nil {
		return res, mterrors.NewSourceUnreadableError(inputPath, err)
	}

	rep.Initialization(reporter.InitializationSummary{
		InputFile:  util.GetFilename(inputPath),
		OutputDir:  cfg.OutputDir,
		Resolution: fmt.Sprintf("%dx%d", props.Width, props.Height),
		FrameRate:  util.FormatFrameRate(props.FPS),
		Frames:     props.FrameCount,
		Subjects:   len(intervals),
	})

	if err := util.EnsureDirectory(cfg.OutputDir); err != nil {
		return res, mterrors.NewIOError(fmt.Sprintf("creating output directory %s", cfg.OutputDir), err)
	}

	sourcePath := inputPath
	useProxy := cfg.UseAVIProxy && clip.NeedsProxy(inputPath)
	if useProxy {
		proxyPath, cleanup, err := makeProxy(ctx, cfg, inputPath, props, rep, logger)
		if err != nil {
			return res, err
		}
		defer cleanup()

		sourcePath = proxyPath
		if props, err = prober.GetVideoProperties(ctx, proxyPath); err != nil {
			return res, mterrors.NewSourceUnreadableError(proxyPath, err)
		}
	}

	info := ffmpeg.StreamInfo{Width: props.Width, Height: props.Height, FPS: props.FPS, Frames: props.FrameCount}
	src, err := ffmpeg.OpenSource(ctx, cfg.FFmpegPath, sourcePath, info, logger)
	if err != nil {
		return res, err
	}
	defer src.Close()

	codec := clip.CodecFor(cfg.OutputExtension)
	rep.ClipConfig(clipConfigSummary(cfg, codec, info, useProxy, intervals))

	extractor := clip.New(sinkFactory(cfg.FFmpegPath, logger), cfg.FallbackFPS, logger)
	base := util.GetFileStem(inputPath)
	clips, err := extractor.Extract(ctx, src, intervals, base, cfg.OutputDir, cfg.OutputExtension)
	res.Clips = clips
	for _, c := range clips {
		if c.Empty() {
			rep.Warning(fmt.Sprintf("No frames for %s in %d-%d, no clip written", c.Subject, c.Start, c.End))
			continue
		}
		size, _ := util.GetFileSize(c.Path)
		rep.ClipWritten(reporter.ClipOutcome{
			Subject:    c.Subject,
			OutputPath: c.Path,
			Start:      c.Start,
			End:        c.End,
			Frames:     c.Written,
			Short:      c.Short,
			SizeBytes:  size,
		})
	}
	if err != nil {
		return res, err
	}

	if cfg.ValidateClips {
		res.ValidationPassed, res.ValidationSteps = validateClips(ctx, cfg, codec, info, clips)
		rep.ValidationComplete(toReporterValidation(res.ValidationPassed, res.ValidationSteps))
	} else {
		res.ValidationPassed = true
	}

	return res, nil
}

// makeProxy transcodes inputPath to an MJPEG AVI. The proxy goes to the temp
// directory and is removed by cleanup, unless cfg.KeepProxy places it next
// to the clips and keeps it.
func makeProxy(
	ctx context.Context,
	cfg *config.Config,
	inputPath string,
	props *ffprobe.VideoProperties,
	rep reporter.Reporter,
	logger zerolog.Logger,
) (string, func(), error) {
	stem := util.GetFileStem(inputPath)

	var proxyPath string
	if cfg.KeepProxy {
		proxyPath = filepath.Join(cfg.OutputDir, stem+"_proxy.avi")
	} else {
		tempDir := cfg.GetTempDir()
		if err := util.EnsureDirectory(tempDir); err != nil {
			return "", nil, mterrors.NewIOError(fmt.Sprintf("creating temp directory %s", tempDir), err)
		}
		if err := util.EnsureDirectoryWritable(tempDir); err != nil {
			return "", nil, mterrors.NewIOError(fmt.Sprintf("temp directory %s is not writable", tempDir), err)
		}
		if !util.CheckDiskSpace(tempDir, func(format string, args ...any) { logger.Warn().Msgf(format, args...) }) {
			rep.Warning(fmt.Sprintf("Low disk space in %s", tempDir))
		}
		p, err := util.CreateTempFilePath(tempDir, proxyTempPrefix+stem, "avi")
		if err != nil {
			return "", nil, mterrors.NewIOError("creating proxy path", err)
		}
		proxyPath = p
	}

	rep.StageProgress(reporter.StageProgress{Stage: "proxy", Message: fmt.Sprintf("Transcoding %s to MJPEG AVI", util.GetFilename(inputPath))})
	rep.ProgressStarted("Proxy", uint64(props.FrameCount))

	executor := ffmpeg.NewExecutor(cfg.FFmpegPath, logger)
	if err := executor.ToAVI(ctx, inputPath, proxyPath, props.DurationSecs, progressForwarder(rep, "Proxy")); err != nil {
		return "", nil, err
	}

	cleanup := func() {
		if cfg.KeepProxy {
			return
		}
		if err := os.Remove(proxyPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("proxy", proxyPath).Msg("Failed to remove proxy")
		}
	}
	return proxyPath, cleanup, nil
}

// sinkFactory adapts ffmpeg.CreateSink to clip.SinkFactory.
func sinkFactory(binary string, logger zerolog.Logger) clip.SinkFactory {
	return func(ctx context.Context, path string, info ffmpeg.StreamInfo, codec ffmpeg.Codec) (clip.Sink, error) {
		sink, err := ffmpeg.CreateSink(ctx, binary, path, info, codec, logger)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
}

func validateClips(ctx context.Context, cfg *config.Config, codec ffmpeg.Codec, info ffmpeg.StreamInfo, clips []clip.Clip) (bool, []validation.ValidationStep) {
	passed := true
	var steps []validation.ValidationStep
	for _, c := range clips {
		if c.Empty() {
			continue
		}
		frames := c.Written
		fps := info.FPS
		if fps <= 0 {
			fps = cfg.FallbackFPS
		}
		result, err := validation.ValidateClip(ctx, cfg.FFprobePath, c.Path, validation.Options{
			ExpectedDimensions: &[2]int{info.Width, info.Height},
			ExpectedFPS:        &fps,
			ExpectedFrames:     &frames,
			ExpectedCodec:      &codec,
			Tagged:             util.HasExtension(c.Path, ".avi"),
		})
		if err != nil {
			passed = false
			steps = append(steps, validation.ValidationStep{Name: c.Subject, Passed: false, Details: err.Error()})
			continue
		}
		for _, step := range result.GetValidationSteps() {
			steps = append(steps, validation.ValidationStep{
				Name:    c.Subject + " " + step.Name,
				Passed:  step.Passed,
				Details: step.Details,
			})
		}
		passed = passed && result.IsValid()
	}
	return passed, steps
}

func clipConfigSummary(cfg *config.Config, codec ffmpeg.Codec, info ffmpeg.StreamInfo, proxy bool, intervals []interval.Interval) reporter.ClipConfigSummary {
	fps := info.FPS
	if fps <= 0 {
		fps = cfg.FallbackFPS
	}
	summary := reporter.ClipConfigSummary{
		Extension: cfg.OutputExtension,
		Encoder:   codec.Encoder,
		FourCC:    codec.FourCC,
		FrameRate: util.FormatFrameRate(fps),
		Proxy:     proxy,
	}
	for _, iv := range intervals {
		summary.Intervals = append(summary.Intervals, reporter.IntervalInfo{Subject: iv.Name, Start: iv.Start, End: iv.End})
	}
	return summary
}

func clipError(inputPath string, err error) reporter.ReporterError {
	e := reporter.ReporterError{
		Title:   "Clip Error",
		Message: fmt.Sprintf("Could not clip %s: %v", util.GetFilename(inputPath), err),
		Context: fmt.Sprintf("File: %s", inputPath),
	}
	switch {
	case mterrors.IsKind(err, mterrors.KindIncompleteAnnotation),
		mterrors.IsKind(err, mterrors.KindInvalidOrder),
		mterrors.IsKind(err, mterrors.KindOverlappingIntervals):
		e.Title = "Annotation Error"
		e.Suggestion = "Fix the enter/exit frames for the listed subjects"
	case mterrors.IsKind(err, mterrors.KindSourceUnreadable):
		e.Suggestion = "Check that the file is a readable video and ffprobe is installed"
	case mterrors.IsKind(err, mterrors.KindFFmpeg), mterrors.IsKind(err, mterrors.KindCommand):
		e.Suggestion = "Check the log file for ffmpeg output"
	}
	return e
}

func summarizeClips(rep reporter.Reporter, results []ClipResult, total int, elapsed time.Duration) {
	var (
		succeeded   []ClipResult
		fileResults []reporter.FileResult
		outputs     int
		short       int
		validPassed int
	)
	for _, r := range results {
		fr := reporter.FileResult{Filename: r.Filename, Outputs: r.WrittenClips()}
		outputs += r.WrittenClips()
		short += r.ShortClips()
		if r.Err != nil {
			fr.Error = r.Err.Error()
		} else {
			succeeded = append(succeeded, r)
			if r.ValidationPassed {
				validPassed++
			}
		}
		fileResults = append(fileResults, fr)
	}

	switch {
	case len(succeeded) == 0:
		rep.Warning("No videos were successfully clipped")
	case total == 1:
		rep.OperationComplete(fmt.Sprintf("Wrote %d clips from %s", len(succeeded[0].Clips), succeeded[0].Filename))
	default:
		rep.BatchComplete(reporter.BatchSummary{
			Operation:             "Clipping",
			SuccessfulCount:       len(succeeded),
			TotalFiles:            total,
			TotalDuration:         elapsed,
			OutputsWritten:        outputs,
			ShortClips:            short,
			ValidationPassedCount: validPassed,
			ValidationFailedCount: len(succeeded) - validPassed,
			FileResults:           fileResults,
		})
	}
}
