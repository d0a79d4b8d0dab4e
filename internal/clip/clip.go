// Package clip cuts one video clip per validated subject interval.
package clip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/ffmpeg"
	"github.com/five82/mousetrap/internal/interval"
)

// Source is a seekable stream of decoded frames. Positions are 0-based.
type Source interface {
	Info() ffmpeg.StreamInfo
	Seek(frame int) error
	// ReadFrame returns the frame at Position and advances it. It returns
	// io.EOF when no frames remain.
	ReadFrame() ([]byte, error)
	Position() int
}

// Sink receives frames for one output clip.
type Sink interface {
	WriteFrame(frame []byte) error
	Close() error
}

// SinkFactory creates the sink for one clip.
type SinkFactory func(ctx context.Context, path string, info ffmpeg.StreamInfo, codec ffmpeg.Codec) (Sink, error)

// Clip describes one output. Path is empty when no frames were written,
// since sinks discard empty output.
type Clip struct {
	Subject string
	Path    string
	Start   int // 1-based, inclusive
	End     int // 1-based, inclusive
	Written int
	Short   bool // source ran out before End
}

// Empty reports whether the interval produced no file.
func (c Clip) Empty() bool {
	return c.Written == 0
}

// Expected returns the number of frames the interval asked for.
func (c Clip) Expected() int {
	return c.End - c.Start + 1
}

// Extractor writes clips from a Source through sinks made by NewSink.
type Extractor struct {
	NewSink     SinkFactory
	FallbackFPS float64
	logger      zerolog.Logger
}

// New creates an Extractor. A non-positive fallbackFPS uses the default.
func New(newSink SinkFactory, fallbackFPS float64, logger zerolog.Logger) *Extractor {
	if fallbackFPS <= 0 {
		fallbackFPS = config.DefaultFallbackFPS
	}
	return &Extractor{NewSink: newSink, FallbackFPS: fallbackFPS, logger: logger}
}

// Extract writes one clip per interval into outDir, named by Name.
//
// Intervals must already have passed interval.Validate. For each interval
// the source is positioned at 0-based frame Start-1 and frames are copied
// while the read position is below End, so 1-based frames Start..End are
// written and 0-based frame End is the first one excluded. A source that
// ends early yields a Short clip rather than an error.
//
// ctx is checked before each interval. Clips completed before a failure
// are returned alongside the error.
func (e *Extractor) Extract(ctx context.Context, src Source, intervals []interval.Interval, base, outDir, ext string) ([]Clip, error) {
	ext = normalizeExt(ext)
	if err := CheckOutputExtension(ext); err != nil {
		return nil, err
	}
	for _, iv := range intervals {
		if err := ValidateSubject(iv.Name); err != nil {
			return nil, err
		}
	}

	info := src.Info()
	if info.FPS <= 0 {
		e.logger.Warn().Float64("fallback_fps", e.FallbackFPS).Msg("Source reports no frame rate, using fallback")
		info.FPS = e.FallbackFPS
	}
	codec := CodecFor(ext)

	clips := make([]Clip, 0, len(intervals))
	for _, iv := range intervals {
		if err := ctx.Err(); err != nil {
			return clips, mterrors.Wrap(mterrors.KindCancelled, "clip extraction cancelled", err)
		}

		c, err := e.extractOne(ctx, src, iv, info, codec, filepath.Join(outDir, Name(base, iv.Name, ext)))
		if err != nil {
			return clips, err
		}
		clips = append(clips, c)
	}
	return clips, nil
}

func (e *Extractor) extractOne(ctx context.Context, src Source, iv interval.Interval, info ffmpeg.StreamInfo, codec ffmpeg.Codec, path string) (Clip, error) {
	c := Clip{Subject: iv.Name, Path: path, Start: iv.Start, End: iv.End}

	if err := src.Seek(max(iv.Start-1, 0)); err != nil {
		return c, mterrors.Wrap(mterrors.KindSourceUnreadable, fmt.Sprintf("seeking to frame %d for %q", iv.Start, iv.Name), err)
	}

	sink, err := e.NewSink(ctx, path, info, codec)
	if err != nil {
		return c, mterrors.Wrap(mterrors.KindIO, fmt.Sprintf("creating clip %s", path), err)
	}

	for src.Position() < iv.End {
		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			c.Short = true
			break
		}
		if err != nil {
			_ = sink.Close()
			return c, mterrors.Wrap(mterrors.KindIO, fmt.Sprintf("reading frames for %q", iv.Name), err)
		}
		if err := sink.WriteFrame(frame); err != nil {
			_ = sink.Close()
			return c, err
		}
		c.Written++
	}

	if err := sink.Close(); err != nil {
		return c, err
	}

	if c.Empty() {
		e.logger.Warn().Str("subject", iv.Name).Int("start", iv.Start).Msg("No frames in range, no clip written")
		c.Path = ""
		return c, nil
	}

	var ev *zerolog.Event
	if c.Short {
		ev = e.logger.Warn().Int("expected", c.Expected())
	} else {
		ev = e.logger.Info()
	}
	ev.Str("subject", iv.Name).
		Int("start", iv.Start).
		Int("end", iv.End).
		Int("frames", c.Written).
		Str("file", path).
		Msg("Saved clip")
	return c, nil
}

// Name returns the clip file name for a subject: {base}_{subject}{ext}.
// Distinct valid subject names always give distinct names.
func Name(base, subject, ext string) string {
	return base + "_" + subject + normalizeExt(ext)
}

// ValidateSubject rejects names that cannot be embedded in a file name.
func ValidateSubject(name string) error {
	if strings.TrimSpace(name) == "" {
		return mterrors.New(mterrors.KindInvalidSubject, "subject name is empty")
	}
	if strings.ContainsAny(name, `/\`+"\x00") || name == "." || name == ".." {
		return mterrors.New(mterrors.KindInvalidSubject, fmt.Sprintf("subject name %q cannot be used in a file name", name))
	}
	return nil
}

// CodecFor maps an output extension to its codec. Unknown extensions use
// the MPEG-4 default.
func CodecFor(ext string) ffmpeg.Codec {
	switch normalizeExt(ext) {
	case ".avi":
		return ffmpeg.CodecMJPEG
	case ".mp4", ".mov", ".mkv":
		return ffmpeg.CodecMPEG4
	default:
		return ffmpeg.CodecMPEG4
	}
}

// InputExtensions are the source formats accepted for clipping.
var InputExtensions = []string{".seq", ".mp4", ".avi"}

// CheckInput reports whether path has a supported source extension.
func CheckInput(path string) error {
	ext := normalizeExt(filepath.Ext(path))
	for _, e := range InputExtensions {
		if e == ext {
			return nil
		}
	}
	return mterrors.New(mterrors.KindUnsupported,
		fmt.Sprintf("cannot clip %s: supported inputs are %s", filepath.Base(path), strings.Join(InputExtensions, ", ")))
}

// CheckOutputExtension rejects clip formats that cannot hold frame-exact video.
func CheckOutputExtension(ext string) error {
	if normalizeExt(ext) == ".gif" {
		return mterrors.New(mterrors.KindUnsupported, "GIF format is not supported for clipping")
	}
	return nil
}

// NeedsProxy reports whether a source is transcoded to an MJPEG AVI before clipping.
func NeedsProxy(path string) bool {
	switch normalizeExt(filepath.Ext(path)) {
	case ".seq", ".mp4":
		return true
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
