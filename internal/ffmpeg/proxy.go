package ffmpeg

import (
	"context"
	"fmt"
	"os"

	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
)

// ToAVI transcodes input into an MJPEG AVI at the proxy frame rate.
// Outputs smaller than config.MinProxyBytes are treated as failures.
func (e *Executor) ToAVI(ctx context.Context, input, output string, duration float64, callback ProgressCallback) error {
	e.logger.Info().Str("input", input).Str("output", output).Msg("Creating AVI proxy")

	args := ProxyArgs(input, output)
	res := e.Run(ctx, args, duration, 0, callback)
	if !res.Success {
		_ = os.Remove(output)
		return res.Error
	}

	info, err := os.Stat(output)
	if err != nil {
		return mterrors.NewIOError(fmt.Sprintf("AVI proxy %s was not created", output), err)
	}
	if info.Size() < config.MinProxyBytes {
		_ = os.Remove(output)
		return mterrors.NewFFmpegError(fmt.Sprintf("AVI proxy %s is %d bytes and seems empty or invalid", output, info.Size()))
	}
	return nil
}
