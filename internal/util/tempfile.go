package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// MinFreeSpaceBytes is the free space below which CheckDiskSpace warns.
const MinFreeSpaceBytes uint64 = 1 << 30

// TempDir is a directory removed by Cleanup.
type TempDir struct {
	path string
}

// Path returns the directory path.
func (d *TempDir) Path() string { return d.path }

// Cleanup removes the directory and its contents.
func (d *TempDir) Cleanup() error { return os.RemoveAll(d.path) }

// TempFile is a file removed by Cleanup.
type TempFile struct {
	path string
}

// Path returns the file path.
func (f *TempFile) Path() string { return f.path }

// Cleanup removes the file. A file that is already gone is not an error.
func (f *TempFile) Cleanup() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// EnsureDirectoryWritable checks that dir exists, is a directory and
// accepts new files.
func EnsureDirectoryWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".mousetrap_write_test_*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// CreateTempDir creates baseDir/<prefix>_<random>.
func CreateTempDir(baseDir, prefix string) (*TempDir, error) {
	suffix, err := generateRandomString(8)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(baseDir, prefix+"_"+suffix)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return &TempDir{path: path}, nil
}

// CreateTempFile creates an empty baseDir/<prefix>_<random>.<ext>.
func CreateTempFile(baseDir, prefix, ext string) (*TempFile, error) {
	path, err := CreateTempFilePath(baseDir, prefix, ext)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &TempFile{path: path}, nil
}

// CreateTempFilePath returns an unused baseDir/<prefix>_<random>.<ext>
// without creating it.
func CreateTempFilePath(baseDir, prefix, ext string) (string, error) {
	suffix, err := generateRandomString(8)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, prefix+"_"+suffix+"."+strings.TrimPrefix(ext, ".")), nil
}

// CleanupStaleTempFiles removes entries in dir whose names start with
// prefix and that are older than maxAge. A missing dir is not an error.
func CleanupStaleTempFiles(dir, prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// GetAvailableSpace returns the bytes available to unprivileged users on
// the filesystem holding path, or 0 if it cannot be determined.
func GetAvailableSpace(path string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}

// CheckDiskSpace reports whether path has at least MinFreeSpaceBytes free,
// logging a warning through logf when it does not.
func CheckDiskSpace(path string, logf func(format string, args ...any)) bool {
	avail := GetAvailableSpace(path)
	if avail == 0 || avail >= MinFreeSpaceBytes {
		return true
	}
	if logf != nil {
		logf("Low disk space on %s: %s available", path, FormatBytes(avail))
	}
	return false
}

// generateRandomString returns n lowercase hex characters (n <= 32).
func generateRandomString(n int) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	s := strings.ReplaceAll(id.String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n], nil
}
