package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/mousetrap/internal/clip"
	"github.com/five82/mousetrap/internal/convert"
	"github.com/five82/mousetrap/internal/logging"
	"github.com/five82/mousetrap/internal/reporter"
	"github.com/five82/mousetrap/internal/util"
	"github.com/five82/mousetrap/internal/validation"
)

var convertFlags struct {
	to string
}

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output file or directory>",
	Short: "Convert between video, image and document formats",
	Long: `Convert a file into the format implied by the output extension.

Video conversions use ffmpeg (.seq to .mp4 or .avi, video to video).
Images are converted natively. PDF, DOCX and TXT conversions use
pdftoppm, pdftotext, pandoc and LibreOffice when installed.

When the output is a directory, --to gives the target extension.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertFlags.to, "to", "", "target extension when the output is a directory")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	outputArg, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	out, err := util.ResolveOutputArg(inputPath, outputArg)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}
	if out.FilenameOverride == "" && convertFlags.to == "" {
		return fmt.Errorf("output %s is a directory: give a file name or --to", outputArg)
	}
	ext := convertFlags.to
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	outputPath := util.ResolveOutputPath(inputPath, out.OutputDir, out.FilenameOverride, ext)

	r, err := startRun(cmd, out.OutputDir)
	if err != nil {
		return err
	}
	defer r.close()

	r.cfg.OutputDir = out.OutputDir
	conv := convert.New(r.cfg, convert.DefaultTools(), logging.WithComponent("convert"))

	kind := convert.Determine(filepath.Ext(inputPath), filepath.Ext(outputPath))
	r.rep.StageProgress(reporter.StageProgress{Stage: "convert", Message: fmt.Sprintf("%s: %s -> %s", kind, util.GetFilename(inputPath), util.GetFilename(outputPath))})
	r.rep.ProgressStarted("Convert", 0)

	res := conv.Convert(r.ctx, inputPath, outputPath, func(pct int) {
		r.rep.Progress(reporter.ProgressSnapshot{Label: "Convert", Percent: float32(pct)})
	})
	if res.Err != nil {
		r.rep.Error(reporter.ReporterError{
			Title:   "Conversion Error",
			Message: res.Message,
			Context: fmt.Sprintf("Input: %s, output: %s", inputPath, outputPath),
		})
		return res.Err
	}
	r.rep.OperationComplete(res.Message)
	return nil
}

var validateFlags struct {
	width  int
	height int
	fps    float64
	frames int
}

var validateCmd = &cobra.Command{
	Use:   "validate <clip>",
	Short: "Check a written clip's codec, dimensions, frame rate and frame count",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.IntVar(&validateFlags.width, "width", 0, "expected width")
	f.IntVar(&validateFlags.height, "height", 0, "expected height")
	f.Float64Var(&validateFlags.fps, "fps", 0, "expected frame rate")
	f.IntVar(&validateFlags.frames, "frames", 0, "expected frame count")
	validateCmd.MarkFlagsRequiredTogether("width", "height")
}

func runValidate(cmd *cobra.Command, args []string) error {
	clipPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid clip path: %w", err)
	}
	if !util.FileExists(clipPath) {
		return fmt.Errorf("clip does not exist: %s", clipPath)
	}

	r, err := startRun(cmd, filepath.Dir(clipPath))
	if err != nil {
		return err
	}
	defer r.close()

	codec := clip.CodecFor(filepath.Ext(clipPath))
	opts := validation.Options{
		ExpectedCodec: &codec,
		Tagged:        util.HasExtension(clipPath, ".avi"),
	}
	if cmd.Flags().Changed("width") {
		opts.ExpectedDimensions = &[2]int{validateFlags.width, validateFlags.height}
	}
	if cmd.Flags().Changed("fps") {
		opts.ExpectedFPS = &validateFlags.fps
	}
	if cmd.Flags().Changed("frames") {
		opts.ExpectedFrames = &validateFlags.frames
	}

	result, err := validation.ValidateClip(r.ctx, r.cfg.FFprobePath, clipPath, opts)
	if err != nil {
		return err
	}

	summary := reporter.ValidationSummary{Passed: result.IsValid()}
	for _, s := range result.GetValidationSteps() {
		summary.Steps = append(summary.Steps, reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details})
	}
	r.rep.ValidationComplete(summary)

	if !result.IsValid() {
		return fmt.Errorf("validation failed: %s", strings.Join(result.GetFailures(), "; "))
	}
	return nil
}
