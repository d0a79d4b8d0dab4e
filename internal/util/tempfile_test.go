package util

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

const proxyPrefix = ".mousetrap_proxy_"

func TestCreateTempFilePathProxyNaming(t *testing.T) {
	dir := t.TempDir()
	pattern := regexp.MustCompile(`^\.mousetrap_proxy_cage1_[0-9a-f]{8}\.avi$`)

	seen := make(map[string]bool)
	for _, ext := range []string{"avi", ".avi", "avi", "avi"} {
		path, err := CreateTempFilePath(dir, proxyPrefix+"cage1", ext)
		if err != nil {
			t.Fatalf("CreateTempFilePath() error = %v", err)
		}
		if filepath.Dir(path) != dir {
			t.Errorf("%s is outside %s", path, dir)
		}
		if !pattern.MatchString(filepath.Base(path)) {
			t.Errorf("proxy name %q does not match %s", filepath.Base(path), pattern)
		}
		if FileExists(path) {
			t.Errorf("%s should not be created", path)
		}
		if seen[path] {
			t.Errorf("duplicate proxy path %s", path)
		}
		seen[path] = true
	}
}

func TestCreateTempFileReservesPath(t *testing.T) {
	dir := t.TempDir()

	f, err := CreateTempFile(dir, "mousetrap_pdftext", "txt")
	if err != nil {
		t.Fatalf("CreateTempFile() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(f.Path()), "mousetrap_pdftext_") || filepath.Ext(f.Path()) != ".txt" {
		t.Errorf("unexpected temp name %s", f.Path())
	}
	if size, err := GetFileSize(f.Path()); err != nil || size != 0 {
		t.Errorf("temp file size = %d, %v; want empty file", size, err)
	}

	if err := f.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if FileExists(f.Path()) {
		t.Error("temp file still exists after Cleanup")
	}
	if err := f.Cleanup(); err != nil {
		t.Errorf("second Cleanup() error = %v", err)
	}
}

func TestCreateTempDirForRenderedPages(t *testing.T) {
	base := t.TempDir()

	d, err := CreateTempDir(base, "mousetrap_pages")
	if err != nil {
		t.Fatalf("CreateTempDir() error = %v", err)
	}
	if !DirectoryExists(d.Path()) || !strings.HasPrefix(filepath.Base(d.Path()), "mousetrap_pages_") {
		t.Fatalf("bad temp dir %s", d.Path())
	}
	if err := os.WriteFile(filepath.Join(d.Path(), "page-1.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := d.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if DirectoryExists(d.Path()) {
		t.Error("temp dir and its pages should be removed")
	}
}

func TestCleanupStaleTempFilesProxies(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)

	files := []struct {
		name     string
		modTime  time.Time
		wantGone bool
	}{
		{proxyPrefix + "cage1_0a1b2c3d.avi", old, true},
		{proxyPrefix + "cage2_9f8e7d6c.avi", old, true},
		{proxyPrefix + "cage3_11223344.avi", recent, false},
		{"cage1_proxy.avi", old, false},
		{"cage1_MouseA.avi", old, false},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte("mjpeg"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, f.modTime, f.modTime); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := CleanupStaleTempFiles(dir, proxyPrefix, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupStaleTempFiles() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	for _, f := range files {
		gone := !FileExists(filepath.Join(dir, f.name))
		if gone != f.wantGone {
			t.Errorf("%s removed = %v, want %v", f.name, gone, f.wantGone)
		}
	}

	removed, err = CleanupStaleTempFiles(filepath.Join(dir, "no-such-dir"), proxyPrefix, 24*time.Hour)
	if err != nil || removed != 0 {
		t.Errorf("missing dir: removed = %d, err = %v; want 0, nil", removed, err)
	}
}

func TestEnsureDirectoryWritableTempDir(t *testing.T) {
	dir := t.TempDir()
	notDir := filepath.Join(dir, "cage1.seq")
	if err := os.WriteFile(notDir, []byte("seq"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"writable", dir, false},
		{"missing", filepath.Join(dir, "missing"), true},
		{"file", notDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureDirectoryWritable(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("EnsureDirectoryWritable(%s) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("write check left %d entries, want only the source file", len(entries))
	}
}

func TestCheckDiskSpaceBeforeProxy(t *testing.T) {
	dir := t.TempDir()
	avail := GetAvailableSpace(dir)
	if avail == 0 {
		t.Skip("filesystem reports no free space figure")
	}

	var warnings []string
	ok := CheckDiskSpace(dir, func(format string, args ...any) {
		warnings = append(warnings, format)
	})
	if ok != (avail >= MinFreeSpaceBytes) {
		t.Errorf("CheckDiskSpace() = %v with %s free", ok, FormatBytes(avail))
	}
	if ok == (len(warnings) > 0) {
		t.Errorf("warnings = %v for ok = %v", warnings, ok)
	}

	if !CheckDiskSpace(filepath.Join(dir, "missing"), nil) {
		t.Error("unknown free space should not block proxy creation")
	}
}
