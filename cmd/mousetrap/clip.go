package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/mousetrap/internal/annotation"
	"github.com/five82/mousetrap/internal/clip"
	"github.com/five82/mousetrap/internal/config"
	"github.com/five82/mousetrap/internal/discovery"
	"github.com/five82/mousetrap/internal/interval"
	"github.com/five82/mousetrap/internal/logging"
	"github.com/five82/mousetrap/internal/processing"
	"github.com/five82/mousetrap/internal/util"
)

var clipFlags struct {
	outputDir   string
	annotations string
	marks       []string
	ext         string
	fallbackFPS float64
	tempDir     string
	keepProxy   bool
	noProxy     bool
	noValidate  bool
}

var clipCmd = &cobra.Command{
	Use:   "clip <video or directory>",
	Short: "Cut one clip per annotated subject",
	Long: `Cut one clip per annotated subject from a .seq, .mp4 or .avi video.

Intervals come from an annotation CSV (--annotations) in either the
single-file layout (intruder,enter,exit) or the multi-file layout
(file_name,<subject>_in,<subject>_out), or from --mark flags:

  mousetrap clip cage1.seq -o clips --mark MouseA=100-250 --mark MouseB=400-520`,
	Args: cobra.ExactArgs(1),
	RunE: runClip,
}

func init() {
	f := clipCmd.Flags()
	f.StringVarP(&clipFlags.outputDir, "output", "o", "", "output directory (required)")
	f.StringVarP(&clipFlags.annotations, "annotations", "a", "", "annotation CSV")
	f.StringArrayVarP(&clipFlags.marks, "mark", "m", nil, "subject interval as NAME=ENTER-EXIT (repeatable)")
	f.StringVar(&clipFlags.ext, "ext", config.DefaultOutputExtension, "clip container: "+strings.Join(config.ClipExtensions, ", "))
	f.Float64Var(&clipFlags.fallbackFPS, "fallback-fps", config.DefaultFallbackFPS, "frame rate used when the source reports none")
	f.StringVar(&clipFlags.tempDir, "temp-dir", "", "directory for intermediate proxies (defaults to output)")
	f.BoolVar(&clipFlags.keepProxy, "keep-proxy", false, "keep the MJPEG proxy as <stem>_proxy.avi")
	f.BoolVar(&clipFlags.noProxy, "no-proxy", false, "clip .seq/.mp4 sources directly")
	f.BoolVar(&clipFlags.noValidate, "no-validate", false, "skip probing written clips")
	_ = clipCmd.MarkFlagRequired("output")
	clipCmd.MarkFlagsMutuallyExclusive("annotations", "mark")
	clipCmd.MarkFlagsMutuallyExclusive("keep-proxy", "no-proxy")
}

func runClip(cmd *cobra.Command, args []string) error {
	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	outputDir, err := filepath.Abs(clipFlags.outputDir)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	r, err := startRun(cmd, outputDir)
	if err != nil {
		return err
	}
	defer r.close()

	cfg := r.cfg
	cfg.InputDir = inputPath
	cfg.OutputDir = outputDir
	if err := applyClipFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	files, err := discovery.Collect(inputPath, clip.InputExtensions, r.logger)
	if err != nil {
		return err
	}

	var lookup processing.AnnotationLookup
	switch {
	case len(clipFlags.marks) > 0:
		set, err := parseMarks(clipFlags.marks)
		if err != nil {
			return err
		}
		lookup = processing.StaticAnnotations{Set: set}
	case cfg.AnnotationsCSV != "":
		lookup, _, err = processing.LoadAnnotations(cfg.AnnotationsCSV, r.logger.Zerolog())
		if err != nil {
			return err
		}
		if mapping, ok := lookup.(*annotation.Mapping); ok {
			for _, name := range unmatchedEntries(mapping, files) {
				r.rep.Warning(fmt.Sprintf("Annotations for %s match no input video", name))
			}
		}
	default:
		return fmt.Errorf("no intervals given: use --annotations or --mark")
	}

	r.logger.Info("Output directory: %s", outputDir)
	r.logger.Info("Clip container: %s, proxy: %v, validate: %v", cfg.OutputExtension, cfg.UseAVIProxy, cfg.ValidateClips)

	results, err := processing.ClipVideos(r.ctx, cfg, files, lookup, r.rep, logging.WithComponent("clip"))
	if err != nil {
		return err
	}
	return batchError(len(files), countFailures(results, func(res processing.ClipResult) error { return res.Err }))
}

func applyClipFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("ext") {
		ext, err := config.ParseExtension(clipFlags.ext)
		if err != nil {
			return err
		}
		cfg.OutputExtension = ext
	}
	applyFlag(cmd, "annotations", func() { cfg.AnnotationsCSV = clipFlags.annotations })
	applyFlag(cmd, "fallback-fps", func() { cfg.FallbackFPS = clipFlags.fallbackFPS })
	applyFlag(cmd, "temp-dir", func() { cfg.TempDir = clipFlags.tempDir })
	applyFlag(cmd, "keep-proxy", func() { cfg.KeepProxy = clipFlags.keepProxy })
	applyFlag(cmd, "no-proxy", func() { cfg.UseAVIProxy = !clipFlags.noProxy })
	applyFlag(cmd, "no-validate", func() { cfg.ValidateClips = !clipFlags.noValidate })
	return nil
}

// parseMarks builds an interval set from NAME=ENTER-EXIT values.
func parseMarks(values []string) (*interval.Set, error) {
	set := interval.NewSet()
	for _, v := range values {
		name, span, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --mark %q: expected NAME=ENTER-EXIT", v)
		}
		enterStr, exitStr, ok := strings.Cut(span, "-")
		if !ok {
			return nil, fmt.Errorf("invalid --mark %q: expected NAME=ENTER-EXIT", v)
		}
		enter, err := strconv.Atoi(strings.TrimSpace(enterStr))
		if err != nil {
			return nil, fmt.Errorf("invalid enter frame in --mark %q: %w", v, err)
		}
		exit, err := strconv.Atoi(strings.TrimSpace(exitStr))
		if err != nil {
			return nil, fmt.Errorf("invalid exit frame in --mark %q: %w", v, err)
		}
		if err := set.MarkEnter(name, enter); err != nil {
			return nil, err
		}
		if err := set.MarkExit(name, exit); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// unmatchedEntries lists CSV file_name values no input resolves to.
func unmatchedEntries(mapping *annotation.Mapping, files []string) []string {
	used := make(map[string]bool)
	for _, f := range files {
		if _, ok := mapping.Lookup(f); !ok {
			continue
		}
		for _, name := range mapping.Files() {
			if name == util.GetFilename(f) || util.GetFileStem(name) == util.GetFileStem(f) {
				used[name] = true
			}
		}
	}
	var out []string
	for _, name := range mapping.Files() {
		if !used[name] {
			out = append(out, name)
		}
	}
	return out
}

func countFailures[T any](results []T, errOf func(T) error) int {
	n := 0
	for _, r := range results {
		if errOf(r) != nil {
			n++
		}
	}
	return n
}

// batchError turns per-file failures into a non-zero exit.
func batchError(total, failed int) error {
	if failed == 0 {
		return nil
	}
	if total == 1 {
		return fmt.Errorf("processing failed")
	}
	return fmt.Errorf("%d of %d files failed", failed, total)
}
