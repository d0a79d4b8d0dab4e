package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HasExtension reports whether path ends in one of exts, ignoring case.
func HasExtension(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// GetFilename returns the filename from a path.
func GetFilename(path string) string {
	return filepath.Base(path)
}

// GetFileStem returns the filename without extension.
func GetFileStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// EnsureDirectory creates a directory if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// DirectoryExists checks if a directory exists.
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ResolveOutputPath returns outputDir/<input stem><ext>, or
// outputDir/targetOverride when an override is given.
func ResolveOutputPath(inputPath, outputDir, targetOverride, ext string) string {
	if targetOverride != "" {
		return filepath.Join(outputDir, targetOverride)
	}
	return filepath.Join(outputDir, GetFileStem(inputPath)+ext)
}

// OutputPathInfo contains resolved output path information.
type OutputPathInfo struct {
	// OutputDir is the directory where output files should be written.
	OutputDir string
	// FilenameOverride is set when the output names a file rather than a directory.
	FilenameOverride string
}

// ResolveOutputArg resolves the output argument into a directory and optional filename.
// When the input is a single file and the output has an extension, the
// output is treated as a filename. Otherwise, it's treated as a directory.
func ResolveOutputArg(inputPath, outputPath string) (OutputPathInfo, error) {
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return OutputPathInfo{}, err
	}

	if !inputInfo.IsDir() && filepath.Ext(outputPath) != "" && !DirectoryExists(outputPath) {
		return OutputPathInfo{
			OutputDir:        filepath.Dir(outputPath),
			FilenameOverride: filepath.Base(outputPath),
		}, nil
	}

	return OutputPathInfo{OutputDir: outputPath}, nil
}
