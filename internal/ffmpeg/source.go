package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

// FrameSource decodes a video into raw frames through an ffmpeg pipe.
// Positions are 0-based decoded frame indices.
type FrameSource struct {
	binary string
	path   string
	info   StreamInfo
	logger zerolog.Logger
	ctx    context.Context

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	buf    []byte
	pos    int
	eof    bool
}

// OpenSource prepares a frame source for path. No process is started until
// the first Seek or ReadFrame.
func OpenSource(ctx context.Context, binary, path string, info StreamInfo, logger zerolog.Logger) (*FrameSource, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, mterrors.NewSourceUnreadableError(path, fmt.Errorf("invalid frame size %s", info.Size()))
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FrameSource{
		binary: binary,
		path:   path,
		info:   info,
		logger: logger,
		ctx:    ctx,
		buf:    make([]byte, info.FrameSize()),
	}, nil
}

// Info returns the stream geometry and timing.
func (s *FrameSource) Info() StreamInfo {
	return s.info
}

// Position returns the 0-based index of the next frame ReadFrame returns.
func (s *FrameSource) Position() int {
	return s.pos
}

// Seek positions the source so the next ReadFrame returns frame.
// Short forward moves read and discard; longer or backward moves restart
// the decoder at the target.
func (s *FrameSource) Seek(frame int) error {
	if frame < 0 {
		frame = 0
	}
	if s.cmd != nil && frame >= s.pos && frame-s.pos <= s.skipLimit() {
		for s.pos < frame {
			if _, err := s.ReadFrame(); err != nil {
				if errors.Is(err, io.EOF) {
					s.pos = frame
					return nil
				}
				return err
			}
		}
		return nil
	}

	s.stop()
	return s.start(frame)
}

// skipLimit is the largest gap closed by reading rather than restarting.
func (s *FrameSource) skipLimit() int {
	if s.info.FPS > 0 {
		return int(s.info.FPS)
	}
	return 25
}

// ReadFrame returns the next frame. The returned slice is reused by the
// following call. Returns io.EOF once the stream is exhausted.
func (s *FrameSource) ReadFrame() ([]byte, error) {
	if s.eof {
		return nil, io.EOF
	}
	if s.cmd == nil {
		if err := s.start(s.pos); err != nil {
			return nil, err
		}
	}

	if _, err := io.ReadFull(s.stdout, s.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.eof = true
			s.logger.Debug().Int("position", s.pos).Str("file", s.path).Msg("End of stream")
			return nil, io.EOF
		}
		return nil, mterrors.NewIOError(fmt.Sprintf("reading frame %d of %s", s.pos, s.path), err)
	}

	s.pos++
	return s.buf, nil
}

// Close stops the decoder.
func (s *FrameSource) Close() error {
	s.stop()
	return nil
}

func (s *FrameSource) start(frame int) error {
	args := SourceArgs(s.path, frame)
	s.logger.Debug().Strs("args", args).Int("start", frame).Msg("Starting frame decoder")

	cmd := exec.CommandContext(s.ctx, s.binary, args...)
	s.stderr.Reset()
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return mterrors.NewSourceUnreadableError(s.path, err)
	}
	if err := cmd.Start(); err != nil {
		return mterrors.NewSourceUnreadableError(s.path, err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.pos = frame
	s.eof = false
	return nil
}

func (s *FrameSource) stop() {
	if s.cmd == nil {
		return
	}
	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if err := s.cmd.Wait(); err != nil && s.stderr.Len() > 0 && !s.eof {
		s.logger.Debug().Str("stderr", strings.TrimSpace(s.stderr.String())).Msg("Frame decoder stopped")
	}
	s.cmd = nil
	s.stdout = nil
}
