package processing

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/config"
	"github.com/five82/mousetrap/internal/discovery"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/labels"
	"github.com/five82/mousetrap/internal/reporter"
	"github.com/five82/mousetrap/internal/targets"
	"github.com/five82/mousetrap/internal/util"
)

// LabelResult contains the result of converting one annotation file.
type LabelResult struct {
	Pair     discovery.LabelPair
	Duration time.Duration
	Summary  *targets.Summary
	Err      error
}

// ConvertLabels writes a targets table for every pair into cfg.OutputDir
// (or next to the features file when OutputDir is empty). Per-pair failures
// are reported and the batch continues; cancellation stops it.
func ConvertLabels(
	ctx context.Context,
	cfg *config.Config,
	pairs []discovery.LabelPair,
	rep reporter.Reporter,
	logger zerolog.Logger,
) ([]LabelResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, mterrors.NewConfigError(err.Error())
	}
	if len(pairs) == 0 {
		return nil, mterrors.NewNoFilesFoundError(cfg.InputDir)
	}

	annotationFiles := make([]string, len(pairs))
	for i, p := range pairs {
		annotationFiles[i] = p.AnnotationPath
	}
	startBatch(rep, "Labeling", annotationFiles, cfg.OutputDir)

	converter := targets.NewConverter(logger)
	selection := labels.SelectionFromConfig(cfg)

	batchStart := time.Now()
	var results []LabelResult
	for i, pair := range pairs {
		if ctx.Err() != nil {
			rep.Warning(fmt.Sprintf("Label conversion cancelled: %v", ctx.Err()))
			break
		}
		if len(pairs) > 1 {
			rep.FileProgress(reporter.FileProgressContext{
				CurrentFile: i + 1,
				TotalFiles:  len(pairs),
				Filename:    util.GetFilename(pair.AnnotationPath),
			})
		}

		outDir := cfg.OutputDir
		if outDir == "" {
			outDir = filepath.Dir(pair.FeaturesPath)
		}
		req := targets.Request{
			AnnotationPath: pair.AnnotationPath,
			FeaturesPath:   pair.FeaturesPath,
			OutputPath:     targets.OutputPath(pair.FeaturesPath, outDir, cfg.TargetsSuffix),
			Selection:      selection,
			FrameOffset:    cfg.FrameOffset,
		}

		start := time.Now()
		rep.ProgressStarted("Labels", 0)
		summary, err := converter.Convert(ctx, req, percentForwarder(rep, "Labels"))
		res := LabelResult{Pair: pair, Duration: time.Since(start), Summary: summary, Err: err}
		results = append(results, res)

		if err != nil {
			logger.Error().Err(err).Str("annotation", pair.AnnotationPath).Msg("Label conversion failed")
			rep.Error(labelError(pair, err))
			continue
		}
		rep.LabelsComplete(reporter.LabelOutcome{
			AnnotationFile: util.GetFilename(pair.AnnotationPath),
			FeaturesFile:   util.GetFilename(pair.FeaturesPath),
			OutputFile:     summary.OutputPath,
			Behaviors:      summary.Behaviors,
			Frames:         summary.Frames,
		})
	}

	summarizeLabels(rep, results, len(pairs), time.Since(batchStart))
	return results, nil
}

func labelError(pair discovery.LabelPair, err error) reporter.ReporterError {
	e := reporter.ReporterError{
		Title:   "Label Error",
		Message: fmt.Sprintf("Could not label %s: %v", util.GetFilename(pair.AnnotationPath), err),
		Context: fmt.Sprintf("Annotation: %s, features: %s", pair.AnnotationPath, pair.FeaturesPath),
	}
	switch {
	case mterrors.IsKind(err, mterrors.KindNoBehaviorsSelected):
		e.Suggestion = "Adjust the included/excluded behaviors"
	case mterrors.IsKind(err, mterrors.KindSegmentOutOfBounds):
		e.Suggestion = "Check the frame offset and that the features belong to this annotation"
	case mterrors.IsKind(err, mterrors.KindNoSegmentsFound):
		e.Suggestion = "Check that the file is a Caltech behavior annotation export"
	}
	return e
}

func summarizeLabels(rep reporter.Reporter, results []LabelResult, total int, elapsed time.Duration) {
	var (
		succeeded   []LabelResult
		fileResults []reporter.FileResult
	)
	for _, r := range results {
		fr := reporter.FileResult{Filename: util.GetFilename(r.Pair.AnnotationPath)}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		} else {
			fr.Outputs = 1
			succeeded = append(succeeded, r)
		}
		fileResults = append(fileResults, fr)
	}

	switch {
	case len(succeeded) == 0:
		rep.Warning("No annotation files were successfully converted")
	case total == 1:
		rep.OperationComplete(succeeded[0].Summary.Message())
	default:
		rep.BatchComplete(reporter.BatchSummary{
			Operation:       "Labeling",
			SuccessfulCount: len(succeeded),
			TotalFiles:      total,
			TotalDuration:   elapsed,
			OutputsWritten:  len(succeeded),
			FileResults:     fileResults,
		})
	}
}
