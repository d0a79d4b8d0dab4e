// Package discovery finds clip sources and annotation/feature pairs on disk.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/util"
)

// DiscoveryLogger defines the interface for discovery logging.
type DiscoveryLogger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// DiscoveryResult contains the results of file discovery with metadata.
type DiscoveryResult struct {
	Files        []string
	SkippedCount int
}

// LabelPair is an annotation file and the feature table it labels.
type LabelPair struct {
	Stem           string
	AnnotationPath string
	FeaturesPath   string
}

// PairResult contains matched label pairs and annotations without features.
type PairResult struct {
	Pairs    []LabelPair
	Unpaired []string
}

// Annotation and feature extensions used for label pairing.
const (
	AnnotationExtension = ".txt"
	FeaturesExtension   = ".csv"
)

// FindFiles finds files in inputDir with one of exts (case-insensitive).
// Hidden files and subdirectories are skipped. Returns files sorted
// alphabetically by filename, or a NoFilesFound error when none match.
func FindFiles(inputDir string, exts []string, logger DiscoveryLogger) (*DiscoveryResult, error) {
	entries, err := readDir(inputDir)
	if err != nil {
		return nil, err
	}

	result := &DiscoveryResult{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fullPath := filepath.Join(inputDir, entry.Name())
		if util.HasExtension(fullPath, exts...) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, mterrors.NewNoFilesFoundError(inputDir)
	}
	sortByName(result.Files)

	if logger != nil {
		logDiscoveredFiles(result.Files, logger)
		if result.SkippedCount > 0 {
			logger.Debug("Skipped %d file(s) with other extensions", result.SkippedCount)
		}
	}
	return result, nil
}

// Collect resolves path to a list of inputs: a regular file is returned as
// is (after the extension check), a directory is searched with FindFiles.
func Collect(path string, exts []string, logger DiscoveryLogger) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, mterrors.NewPathError(fmt.Sprintf("input does not exist: %s", path))
	}
	if !info.IsDir() {
		if !util.HasExtension(path, exts...) {
			return nil, mterrors.New(mterrors.KindUnsupported,
				fmt.Sprintf("%s: expected one of %s", filepath.Base(path), strings.Join(exts, ", ")))
		}
		return []string{path}, nil
	}

	result, err := FindFiles(path, exts, logger)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// FindLabelPairs matches every <stem>.txt annotation in annotationDir with
// <stem>.csv in featuresDir. Annotations without a feature table are
// returned in Unpaired. An empty featuresDir means annotationDir.
func FindLabelPairs(annotationDir, featuresDir string, logger DiscoveryLogger) (*PairResult, error) {
	if featuresDir == "" {
		featuresDir = annotationDir
	}
	if !util.DirectoryExists(featuresDir) {
		return nil, mterrors.NewPathError(fmt.Sprintf("directory does not exist: %s", featuresDir))
	}

	annotations, err := FindFiles(annotationDir, []string{AnnotationExtension}, nil)
	if err != nil {
		return nil, err
	}

	result := &PairResult{}
	for _, ann := range annotations.Files {
		stem := util.GetFileStem(ann)
		features := findWithStem(featuresDir, stem, FeaturesExtension)
		if features == "" {
			result.Unpaired = append(result.Unpaired, ann)
			continue
		}
		result.Pairs = append(result.Pairs, LabelPair{Stem: stem, AnnotationPath: ann, FeaturesPath: features})
	}

	if len(result.Pairs) == 0 {
		return nil, mterrors.New(mterrors.KindNoFilesFound,
			fmt.Sprintf("no annotation/feature pairs found in %s", annotationDir))
	}

	if logger != nil {
		logger.Info("Found %d annotation/feature pair(s)", len(result.Pairs))
		for _, un := range result.Unpaired {
			logger.Debug("  no feature table for %s", filepath.Base(un))
		}
	}
	return result, nil
}

// findWithStem returns dir/<stem><ext>, accepting an upper-case extension.
func findWithStem(dir, stem, ext string) string {
	for _, candidate := range []string{ext, strings.ToUpper(ext)} {
		path := filepath.Join(dir, stem+candidate)
		if util.FileExists(path) {
			return path
		}
	}
	return ""
}

func readDir(inputDir string) ([]os.DirEntry, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, mterrors.NewPathError(fmt.Sprintf("directory does not exist: %s", inputDir))
	}
	if !info.IsDir() {
		return nil, mterrors.NewPathError(fmt.Sprintf("%s is not a directory", inputDir))
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, mterrors.NewIOError(fmt.Sprintf("cannot read directory %s", inputDir), err)
	}
	return entries, nil
}

func sortByName(files []string) {
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(files []string, logger DiscoveryLogger) {
	logger.Info("Found %d input file(s)", len(files))

	maxToLog := min(5, len(files))
	for i := 0; i < maxToLog; i++ {
		logger.Debug("  %s", filepath.Base(files[i]))
	}

	if len(files) > 5 {
		logger.Debug("  ... and %d more", len(files)-5)
	}
}
