package convert

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
)

func TestDetermine(t *testing.T) {
	tests := []struct {
		in, out string
		want    Kind
	}{
		{".seq", ".mp4", SeqToMP4},
		{".SEQ", ".avi", SeqToAVI},
		{".mp4", ".avi", VideoToAVI},
		{".avi", ".mp4", VideoToVideo},
		{"mkv", "gif", VideoToVideo},
		{".png", ".jpg", ImageToImage},
		{".jpeg", ".pdf", ImageToPDF},
		{".pdf", ".png", PDFToImage},
		{".pdf", ".docx", PDFToDOCX},
		{".pdf", ".txt", PDFToTXT},
		{".docx", ".pdf", DOCXToPDF},
		{".docx", ".txt", DOCXToTXT},
		{".txt", ".pdf", TXTToPDF},
		{".txt", ".docx", TXTToDOCX},
		{".wav", ".mp3", Generic},
		{".seq", ".png", Generic},
	}

	for _, tt := range tests {
		t.Run(tt.in+"->"+tt.out, func(t *testing.T) {
			if got := Determine(tt.in, tt.out); got != tt.want {
				t.Errorf("Determine(%q, %q) = %s, want %s", tt.in, tt.out, got, tt.want)
			}
		})
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 100, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	cfg := config.NewConfig(t.TempDir(), t.TempDir())
	cfg.TempDir = t.TempDir()
	return New(cfg, DefaultTools(), zerolog.Nop())
}

func TestImageToImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.png")
	writePNG(t, src)

	for _, ext := range []string{".bmp", ".jpg", ".tiff", ".png"} {
		t.Run(ext, func(t *testing.T) {
			dst := filepath.Join(dir, "out", "frame_copy"+ext)
			res := newTestConverter(t).Convert(context.Background(), src, dst, nil)
			if !res.OK {
				t.Fatalf("Convert failed: %s", res.Message)
			}
			img, err := decodeImage(dst)
			if err != nil {
				t.Fatalf("decoding %s: %v", dst, err)
			}
			if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
				t.Errorf("bounds = %v, want 8x6", b)
			}
		})
	}
}

func TestImageToPDF(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.png")
	writePNG(t, src)
	dst := filepath.Join(dir, "frame.pdf")

	var got []int
	res := newTestConverter(t).Convert(context.Background(), src, dst, func(p int) { got = append(got, p) })
	if !res.OK {
		t.Fatalf("Convert failed: %s", res.Message)
	}
	if len(got) != 1 || got[0] != 100 {
		t.Errorf("progress = %v, want [100]", got)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"%PDF-1.4", "/MediaBox [0 0 8 6]", "/DCTDecode", "%%EOF"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("PDF missing %q", want)
		}
	}
}

func TestConvertFailures(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.png")
	writePNG(t, src)
	c := newTestConverter(t)

	res := c.Convert(context.Background(), filepath.Join(dir, "missing.png"), filepath.Join(dir, "x.jpg"), nil)
	if res.OK || !mterrors.IsKind(res.Err, mterrors.KindPath) {
		t.Errorf("missing input: got %+v, want path error", res)
	}

	notImage := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(notImage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	res = c.Convert(context.Background(), notImage, filepath.Join(dir, "y.bmp"), nil)
	if res.OK || !mterrors.IsKind(res.Err, mterrors.KindParse) {
		t.Errorf("undecodable input: got %+v, want parse error", res)
	}
	if res.Message == "" {
		t.Error("failed Result carries no message")
	}
}

// writeScript installs a shell script standing in for an external tool.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPDFToDOCXUsesTempText(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for the document tools")
	}
	dir := t.TempDir()
	tempDir := t.TempDir()
	bin := t.TempDir()

	tools := DefaultTools()
	// The text file must already exist when the extractor runs.
	tools.PDFToText = writeScript(t, bin, "pdftotext", `test -f "$2" || exit 3; cp "$1" "$2"`)
	tools.Pandoc = writeScript(t, bin, "pandoc", `cp "$1" "$5"`)

	cfg := config.NewConfig(dir, "")
	cfg.TempDir = tempDir
	c := New(cfg, tools, zerolog.Nop())

	input := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(input, []byte("behavior notes"), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "notes.docx")

	res := c.Convert(context.Background(), input, output, nil)
	if !res.OK {
		t.Fatalf("Convert() = %+v", res)
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "behavior notes" {
		t.Errorf("output = %q, %v", data, err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "mousetrap_pdftext") {
			t.Errorf("temp text file %s left behind", e.Name())
		}
	}
}

func TestEncoderFor(t *testing.T) {
	for _, ext := range []string{".png", "JPG", ".jpeg", ".bmp", ".tif", ".tiff"} {
		if _, err := encoderFor(ext); err != nil {
			t.Errorf("encoderFor(%q) = %v", ext, err)
		}
	}
	if _, err := encoderFor(".gif"); !mterrors.IsKind(err, mterrors.KindUnsupported) {
		t.Errorf("encoderFor(.gif) = %v, want unsupported", err)
	}
}
