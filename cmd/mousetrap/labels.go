package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/mousetrap/internal/config"
	"github.com/five82/mousetrap/internal/discovery"
	"github.com/five82/mousetrap/internal/logging"
	"github.com/five82/mousetrap/internal/processing"
	"github.com/five82/mousetrap/internal/util"
)

var labelsFlags struct {
	features  string
	outputDir string
	include   []string
	exclude   []string
	all       bool
	offset    int
	suffix    string
}

var labelsCmd = &cobra.Command{
	Use:   "labels <annotation.txt or directory>",
	Short: "Append per-frame behavior targets to a feature table",
	Long: `Parse Caltech behavior annotations and append one 0/1 column per behavior
to the matching feature CSV, writing <features stem>_targets.csv.

Given a directory, every <stem>.txt is paired with <stem>.csv from
--features (or the same directory). Given a file, --features names the
feature CSV and defaults to <stem>.csv next to the annotation.`,
	Args: cobra.ExactArgs(1),
	RunE: runLabels,
}

func init() {
	f := labelsCmd.Flags()
	f.StringVarP(&labelsFlags.features, "features", "f", "", "feature CSV, or directory of feature CSVs")
	f.StringVarP(&labelsFlags.outputDir, "output", "o", "", "output directory (defaults to next to each feature CSV)")
	f.StringSliceVar(&labelsFlags.include, "include", nil, "only these behaviors become columns")
	f.StringSliceVar(&labelsFlags.exclude, "exclude", config.DefaultExcludedBehaviors, "behaviors dropped when including all")
	f.BoolVar(&labelsFlags.all, "all", true, "include every behavior present except excluded ones")
	f.IntVar(&labelsFlags.offset, "offset", config.DefaultFrameOffset, "subtracted from annotation frames to get table rows")
	f.StringVar(&labelsFlags.suffix, "suffix", config.DefaultTargetsSuffix, "suffix for the output file stem")
	labelsCmd.MarkFlagsMutuallyExclusive("include", "all")
}

func runLabels(cmd *cobra.Command, args []string) error {
	annotationPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid annotation path: %w", err)
	}
	outputDir := labelsFlags.outputDir
	if outputDir != "" {
		if outputDir, err = filepath.Abs(outputDir); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}

	logBase := outputDir
	if logBase == "" {
		logBase = annotationPath
		if !util.DirectoryExists(annotationPath) {
			logBase = filepath.Dir(annotationPath)
		}
	}
	r, err := startRun(cmd, logBase)
	if err != nil {
		return err
	}
	defer r.close()

	cfg := r.cfg
	cfg.InputDir = annotationPath
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	applyFlag(cmd, "include", func() {
		cfg.IncludedBehaviors = labelsFlags.include
		cfg.IncludeAllBehaviors = false
	})
	applyFlag(cmd, "exclude", func() { cfg.ExcludedBehaviors = labelsFlags.exclude })
	applyFlag(cmd, "all", func() { cfg.IncludeAllBehaviors = labelsFlags.all })
	applyFlag(cmd, "offset", func() { cfg.FrameOffset = labelsFlags.offset })
	applyFlag(cmd, "suffix", func() { cfg.TargetsSuffix = labelsFlags.suffix })
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pairs, err := labelPairs(annotationPath, labelsFlags.features, r)
	if err != nil {
		return err
	}

	results, err := processing.ConvertLabels(r.ctx, cfg, pairs, r.rep, logging.WithComponent("labels"))
	if err != nil {
		return err
	}
	return batchError(len(pairs), countFailures(results, func(res processing.LabelResult) error { return res.Err }))
}

func labelPairs(annotationPath, features string, r *run) ([]discovery.LabelPair, error) {
	if util.DirectoryExists(annotationPath) {
		found, err := discovery.FindLabelPairs(annotationPath, features, r.logger)
		if err != nil {
			return nil, err
		}
		for _, un := range found.Unpaired {
			r.rep.Warning(fmt.Sprintf("No feature table for %s", util.GetFilename(un)))
		}
		return found.Pairs, nil
	}

	stem := util.GetFileStem(annotationPath)
	if features == "" {
		features = filepath.Join(filepath.Dir(annotationPath), stem+discovery.FeaturesExtension)
	} else if util.DirectoryExists(features) {
		features = filepath.Join(features, stem+discovery.FeaturesExtension)
	}
	features, err := filepath.Abs(features)
	if err != nil {
		return nil, fmt.Errorf("invalid features path: %w", err)
	}
	return []discovery.LabelPair{{Stem: stem, AnnotationPath: annotationPath, FeaturesPath: features}}, nil
}
