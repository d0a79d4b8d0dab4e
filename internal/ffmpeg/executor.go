package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/util"
)

// Progress represents transcode progress information.
type Progress struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
	ElapsedSecs  float64
	Done         bool
}

// ProgressCallback is called with progress updates while ffmpeg runs.
type ProgressCallback func(Progress)

// Result contains the result of an ffmpeg run.
type Result struct {
	Success bool
	Error   error
	Stderr  string
}

// Executor runs an ffmpeg binary.
type Executor struct {
	Binary string
	logger zerolog.Logger
}

// NewExecutor creates an Executor for the given binary, defaulting to "ffmpeg".
func NewExecutor(binary string, logger zerolog.Logger) *Executor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Executor{Binary: binary, logger: logger}
}

// Run executes ffmpeg with args. When args request -progress pipe:1 the
// key=value blocks are parsed and reported to callback.
func (e *Executor) Run(ctx context.Context, args []string, duration float64, totalFrames uint64, callback ProgressCallback) Result {
	e.logger.Debug().Strs("args", args).Msg("Running ffmpeg")

	cmd := exec.CommandContext(ctx, e.Binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Error: mterrors.NewCommandStartError(e.Binary, err)}
	}

	if err := cmd.Start(); err != nil {
		return Result{Error: mterrors.NewCommandStartError(e.Binary, err)}
	}

	parseProgress(stdout, duration, totalFrames, callback)

	err = cmd.Wait()
	stderrStr := strings.TrimSpace(stderr.String())

	if err != nil {
		if ctx.Err() != nil {
			return Result{
				Error:  mterrors.Wrap(mterrors.KindCancelled, "ffmpeg cancelled", ctx.Err()),
				Stderr: stderrStr,
			}
		}
		if strings.Contains(stderrStr, "No streams found") || strings.Contains(stderrStr, "does not contain any stream") {
			return Result{
				Error:  mterrors.NewFFmpegError("no streams found in input file"),
				Stderr: stderrStr,
			}
		}
		return Result{
			Error:  mterrors.WrapExecError(e.Binary, err, stderrStr),
			Stderr: stderrStr,
		}
	}

	return Result{Success: true, Stderr: stderrStr}
}

// parseProgress reads ffmpeg -progress blocks. Each block is a run of
// key=value lines terminated by a progress=continue or progress=end line.
func parseProgress(r io.Reader, duration float64, totalFrames uint64, callback ProgressCallback) {
	scanner := bufio.NewScanner(r)
	block := make(map[string]string)

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		block[key] = strings.TrimSpace(value)

		if key != "progress" {
			continue
		}
		if callback != nil {
			callback(parseProgressBlock(block, duration, totalFrames))
		}
		clear(block)
	}

	// Drain so ffmpeg never blocks on a full pipe after a scanner error.
	_, _ = io.Copy(io.Discard, r)
}

// parseProgressBlock extracts progress information from one -progress block.
func parseProgressBlock(block map[string]string, duration float64, totalFrames uint64) Progress {
	var p Progress
	p.TotalFrames = totalFrames
	p.Done = block["progress"] == "end"

	if f, err := strconv.ParseUint(block["frame"], 10, 64); err == nil {
		p.CurrentFrame = f
	}
	if f, err := strconv.ParseFloat(block["fps"], 32); err == nil {
		p.FPS = float32(f)
	}
	if s, err := strconv.ParseFloat(strings.TrimSuffix(block["speed"], "x"), 32); err == nil {
		p.Speed = float32(s)
	}

	// out_time_ms is in microseconds despite its name.
	if us, err := strconv.ParseInt(block["out_time_ms"], 10, 64); err == nil && us > 0 {
		p.ElapsedSecs = float64(us) / 1e6
	} else if secs, ok := util.ParseFFmpegTime(block["out_time"]); ok {
		p.ElapsedSecs = secs
	}

	switch {
	case p.Done:
		p.Percent = 100
	case duration > 0:
		p.Percent = float32(p.ElapsedSecs / duration * 100)
	case totalFrames > 0:
		p.Percent = float32(float64(p.CurrentFrame) / float64(totalFrames) * 100)
	}
	if p.Percent > 100 {
		p.Percent = 100
	}

	if p.Speed > 0 && duration > 0 && !p.Done {
		remaining := duration - p.ElapsedSecs
		if remaining > 0 {
			p.ETA = time.Duration(remaining / float64(p.Speed) * float64(time.Second))
		}
	}

	return p
}
