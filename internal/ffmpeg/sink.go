package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

// FrameSink encodes raw frames written to it into a video file.
type FrameSink struct {
	binary string
	path   string
	info   StreamInfo
	logger zerolog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	frames int
	closed bool
}

// CreateSink starts an encoder writing to path. The FourCC tag is only
// written for AVI containers.
func CreateSink(ctx context.Context, binary, path string, info StreamInfo, codec Codec, logger zerolog.Logger) (*FrameSink, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	tagged := strings.EqualFold(filepath.Ext(path), ".avi")
	args := SinkArgs(path, info, codec, tagged)
	logger.Debug().Strs("args", args).Msg("Starting frame encoder")

	s := &FrameSink{binary: binary, path: path, info: info, logger: logger}
	s.cmd = exec.CommandContext(ctx, binary, args...)
	s.cmd.Stderr = &s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, mterrors.NewCommandStartError(binary, err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, mterrors.NewCommandStartError(binary, err)
	}
	s.stdin = stdin
	return s, nil
}

// WriteFrame encodes one raw frame.
func (s *FrameSink) WriteFrame(frame []byte) error {
	if s.closed {
		return mterrors.NewIOError(fmt.Sprintf("write to closed clip %s", s.path), nil)
	}
	if len(frame) != s.info.FrameSize() {
		return mterrors.NewIOError(fmt.Sprintf("frame is %d bytes, want %d", len(frame), s.info.FrameSize()), nil)
	}
	if _, err := s.stdin.Write(frame); err != nil {
		return mterrors.NewIOError(fmt.Sprintf("writing frame %d to %s: %s", s.frames, s.path, strings.TrimSpace(s.stderr.String())), err)
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (s *FrameSink) Frames() int {
	return s.frames
}

// Close flushes the encoder and waits for it to finish. An encoder that
// received no frames is discarded along with any partial output.
func (s *FrameSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.frames == 0 {
		_ = s.stdin.Close()
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
		_ = os.Remove(s.path)
		s.logger.Debug().Str("file", s.path).Msg("Discarded empty clip")
		return nil
	}

	if err := s.stdin.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Closing encoder stdin")
	}
	if err := s.cmd.Wait(); err != nil {
		return mterrors.WrapExecError(s.binary, err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}
