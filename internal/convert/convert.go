// Package convert transcodes between media and document formats by
// dispatching to ffmpeg, Go image codecs or external document tools.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/ffmpeg"
	"github.com/five82/mousetrap/internal/ffprobe"
	"github.com/five82/mousetrap/internal/util"
)

// Kind identifies a conversion routine.
type Kind string

// Conversion kinds.
const (
	SeqToMP4     Kind = "seq_to_mp4"
	SeqToAVI     Kind = "seq_to_avi"
	VideoToAVI   Kind = "video_to_avi"
	VideoToVideo Kind = "video_to_video"
	ImageToImage Kind = "image_to_image"
	ImageToPDF   Kind = "image_to_pdf"
	PDFToImage   Kind = "pdf_to_image"
	PDFToDOCX    Kind = "pdf_to_docx"
	PDFToTXT     Kind = "pdf_to_txt"
	DOCXToPDF    Kind = "docx_to_pdf"
	DOCXToTXT    Kind = "docx_to_txt"
	TXTToPDF     Kind = "txt_to_pdf"
	TXTToDOCX    Kind = "txt_to_docx"
	Generic      Kind = "generic_conversion"
)

// Extension groups used for dispatch.
var (
	VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".gif"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".tiff", ".bmp"}
)

// Determine returns the conversion kind for an input/output extension pair.
func Determine(inExt, outExt string) Kind {
	in, out := normalizeExt(inExt), normalizeExt(outExt)

	switch {
	case in == ".seq" && out == ".mp4":
		return SeqToMP4
	case in == ".seq" && out == ".avi":
		return SeqToAVI
	case in == ".mp4" && out == ".avi":
		return VideoToAVI
	case contains(VideoExtensions, in) && contains(VideoExtensions, out):
		return VideoToVideo
	case contains(ImageExtensions, in) && contains(ImageExtensions, out):
		return ImageToImage
	case contains(ImageExtensions, in) && out == ".pdf":
		return ImageToPDF
	case in == ".pdf" && contains(ImageExtensions, out):
		return PDFToImage
	case in == ".pdf" && out == ".docx":
		return PDFToDOCX
	case in == ".pdf" && out == ".txt":
		return PDFToTXT
	case in == ".docx" && out == ".pdf":
		return DOCXToPDF
	case in == ".docx" && out == ".txt":
		return DOCXToTXT
	case in == ".txt" && out == ".pdf":
		return TXTToPDF
	case in == ".txt" && out == ".docx":
		return TXTToDOCX
	}
	return Generic
}

// Result is the outcome of one conversion.
type Result struct {
	OK      bool
	Message string
	Err     error
}

func failed(err error) Result {
	return Result{Message: err.Error(), Err: err}
}

// ProgressFunc receives a completion percentage.
type ProgressFunc func(percent int)

// Tools names the external document tools.
type Tools struct {
	Pandoc      string
	PDFToPPM    string
	PDFToText   string
	LibreOffice string
}

// DefaultTools returns the tool names looked up on PATH.
func DefaultTools() Tools {
	return Tools{
		Pandoc:      "pandoc",
		PDFToPPM:    "pdftoppm",
		PDFToText:   "pdftotext",
		LibreOffice: "soffice",
	}
}

// Converter runs conversions.
type Converter struct {
	ffmpeg  *ffmpeg.Executor
	prober  *ffprobe.Prober
	tools   Tools
	tempDir string
	logger  zerolog.Logger
}

// New creates a Converter using the binaries named in cfg.
func New(cfg *config.Config, tools Tools, logger zerolog.Logger) *Converter {
	return &Converter{
		ffmpeg:  ffmpeg.NewExecutor(cfg.FFmpegPath, logger),
		prober:  ffprobe.New(cfg.FFprobePath),
		tools:   tools,
		tempDir: cfg.GetTempDir(),
		logger:  logger,
	}
}

// Convert converts input into output, choosing the routine from their
// extensions. Failures are returned in the Result rather than panicking.
func (c *Converter) Convert(ctx context.Context, input, output string, progress ProgressFunc) Result {
	if !util.FileExists(input) {
		return failed(mterrors.NewPathError(fmt.Sprintf("input file not found: %s", input)))
	}
	if err := util.EnsureDirectory(filepath.Dir(output)); err != nil {
		return failed(mterrors.NewIOError(fmt.Sprintf("creating directory for %s", output), err))
	}

	kind := Determine(filepath.Ext(input), filepath.Ext(output))
	c.logger.Info().Str("kind", string(kind)).Str("input", input).Str("output", output).Msg("Converting")

	var (
		msg string
		err error
	)
	switch kind {
	case SeqToMP4:
		msg, err = c.seqToMP4(ctx, input, output, progress)
	case SeqToAVI, VideoToAVI:
		msg, err = c.toAVI(ctx, input, output, progress)
	case VideoToVideo:
		msg, err = c.videoToVideo(ctx, input, output, progress)
	case ImageToImage:
		msg, err = imageToImage(input, output)
	case ImageToPDF:
		msg, err = c.imageToPDF(ctx, input, output)
	case PDFToImage:
		msg, err = c.pdfToImage(ctx, input, output)
	case PDFToDOCX:
		msg, err = c.pdfToDOCX(ctx, input, output)
	case PDFToTXT:
		msg, err = c.pdfToTXT(ctx, input, output)
	case DOCXToPDF:
		msg, err = c.docxToPDF(ctx, input, output)
	case DOCXToTXT:
		msg, err = c.pandoc(ctx, input, output, "plain", "DOCX->TXT")
	case TXTToPDF:
		msg, err = c.pandoc(ctx, input, output, "pdf", "TXT->PDF")
	case TXTToDOCX:
		msg, err = c.pandoc(ctx, input, output, "docx", "TXT->DOCX")
	default:
		msg, err = c.generic(ctx, input, output)
	}

	if err != nil {
		c.logger.Error().Err(err).Str("kind", string(kind)).Msg("Conversion failed")
		return failed(err)
	}
	if progress != nil {
		progress(100)
	}
	return Result{OK: true, Message: msg}
}

func (c *Converter) seqToMP4(ctx context.Context, input, output string, progress ProgressFunc) (string, error) {
	props, err := c.prober.GetVideoProperties(ctx, input)
	if err != nil {
		return "", mterrors.NewSourceUnreadableError(input, err)
	}

	args := ffmpeg.NewCommand().
		Overwrite().
		Input(input).
		VideoCodec(ffmpeg.CodecMPEG4, true).
		Quality(config.ProxyQuality).
		Progress().
		Output(output).
		Build()
	if err := c.run(ctx, args, 0, uint64(props.FrameCount), progress); err != nil {
		return "", err
	}
	return fmt.Sprintf("Converted .seq to .mp4: %s", output), nil
}

func (c *Converter) toAVI(ctx context.Context, input, output string, progress ProgressFunc) (string, error) {
	var duration float64
	if props, err := c.prober.GetVideoProperties(ctx, input); err == nil {
		duration = props.DurationSecs
	}
	if err := c.ffmpeg.ToAVI(ctx, input, output, duration, percentCallback(progress)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Converted %s to AVI: %s", input, output), nil
}

func (c *Converter) videoToVideo(ctx context.Context, input, output string, progress ProgressFunc) (string, error) {
	var duration float64
	if props, err := c.prober.GetVideoProperties(ctx, input); err == nil {
		duration = props.DurationSecs
	}
	if err := c.run(ctx, ffmpeg.ConvertArgs(input, output), duration, 0, progress); err != nil {
		return "", err
	}
	return fmt.Sprintf("Video conversion to %s completed.", output), nil
}

func (c *Converter) generic(ctx context.Context, input, output string) (string, error) {
	if err := c.run(ctx, ffmpeg.ConvertArgs(input, output), 0, 0, nil); err != nil {
		return "", err
	}
	return fmt.Sprintf("Generic conversion to %s completed.", output), nil
}

func (c *Converter) run(ctx context.Context, args []string, duration float64, frames uint64, progress ProgressFunc) error {
	res := c.ffmpeg.Run(ctx, args, duration, frames, percentCallback(progress))
	if !res.Success {
		return res.Error
	}
	return nil
}

func percentCallback(progress ProgressFunc) ffmpeg.ProgressCallback {
	if progress == nil {
		return nil
	}
	last := -1
	return func(p ffmpeg.Progress) {
		pct := int(p.Percent)
		if pct != last {
			last = pct
			progress(pct)
		}
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// removeIfEmpty deletes a zero-length output left by a failed tool.
func removeIfEmpty(path string) {
	if info, err := os.Stat(path); err == nil && info.Size() == 0 {
		_ = os.Remove(path)
	}
}
