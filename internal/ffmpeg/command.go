// Package ffmpeg runs ffmpeg for frame-exact reading and writing of raw
// video, intermediate proxies and whole-file conversions.
package ffmpeg

import (
	"strconv"

	"github.com/five82/mousetrap/internal/config"
)

// CommandBuilder builds ffmpeg argument lists with method chaining.
type CommandBuilder struct {
	args []string
}

// NewCommand starts an argument list with banner and info logging suppressed.
func NewCommand() *CommandBuilder {
	return &CommandBuilder{args: []string{"-hide_banner", "-nostdin", "-loglevel", "error"}}
}

// Overwrite allows replacing an existing output.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.args = append(b.args, "-y")
	return b
}

// Input adds an input file.
func (b *CommandBuilder) Input(path string) *CommandBuilder {
	b.args = append(b.args, "-i", path)
	return b
}

// RawVideoInput reads raw frames of the given geometry from stdin.
func (b *CommandBuilder) RawVideoInput(info StreamInfo) *CommandBuilder {
	b.args = append(b.args,
		"-f", "rawvideo",
		"-pix_fmt", RawPixelFormat,
		"-s", info.Size(),
		"-r", info.Rate(),
		"-i", "pipe:0",
	)
	return b
}

// FirstVideoOnly maps the first video stream and drops everything else.
func (b *CommandBuilder) FirstVideoOnly() *CommandBuilder {
	b.args = append(b.args, "-map", "0:v:0", "-an", "-sn", "-dn")
	return b
}

// VideoFilter applies a filter chain when it is non-empty.
func (b *CommandBuilder) VideoFilter(chain *VideoFilterChain) *CommandBuilder {
	if chain != nil && !chain.IsEmpty() {
		b.args = append(b.args, "-vf", chain.Build())
	}
	return b
}

// VideoCodec selects the encoder and pixel format; tag writes the FourCC.
func (b *CommandBuilder) VideoCodec(c Codec, tag bool) *CommandBuilder {
	b.args = append(b.args, "-c:v", c.Encoder)
	if tag && c.FourCC != "" {
		b.args = append(b.args, "-vtag", c.FourCC)
	}
	if c.PixelFormat != "" {
		b.args = append(b.args, "-pix_fmt", c.PixelFormat)
	}
	return b
}

// Quality sets the encoder's fixed quantizer scale.
func (b *CommandBuilder) Quality(q int) *CommandBuilder {
	b.args = append(b.args, "-q:v", strconv.Itoa(q))
	return b
}

// FrameRate forces the output frame rate.
func (b *CommandBuilder) FrameRate(fps int) *CommandBuilder {
	b.args = append(b.args, "-r", strconv.Itoa(fps))
	return b
}

// Progress emits key=value progress blocks on stdout.
func (b *CommandBuilder) Progress() *CommandBuilder {
	b.args = append(b.args, "-progress", "pipe:1", "-nostats")
	return b
}

// RawVideoOutput writes every selected frame, unduplicated, to stdout.
func (b *CommandBuilder) RawVideoOutput() *CommandBuilder {
	b.args = append(b.args,
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", RawPixelFormat,
		"pipe:1",
	)
	return b
}

// Output adds the output path.
func (b *CommandBuilder) Output(path string) *CommandBuilder {
	b.args = append(b.args, path)
	return b
}

// Build returns the argument list.
func (b *CommandBuilder) Build() []string {
	return append([]string(nil), b.args...)
}

// SourceArgs decodes path to raw frames starting at the 0-based frame start.
func SourceArgs(path string, start int) []string {
	return NewCommand().
		Input(path).
		FirstVideoOnly().
		VideoFilter(NewVideoFilterChain().AddStartFrame(start)).
		RawVideoOutput().
		Build()
}

// SinkArgs encodes raw frames from stdin into path.
func SinkArgs(path string, info StreamInfo, c Codec, tagged bool) []string {
	return NewCommand().
		Overwrite().
		RawVideoInput(info).
		VideoCodec(c, tagged).
		Quality(config.ProxyQuality).
		Output(path).
		Build()
}

// ProxyArgs transcodes any input into a frame-exact MJPEG AVI.
func ProxyArgs(input, output string) []string {
	return NewCommand().
		Overwrite().
		Input(input).
		VideoCodec(CodecMJPEG, true).
		Add("-qscale:v", strconv.Itoa(config.ProxyQuality)).
		FrameRate(config.ProxyFPS).
		Progress().
		Output(output).
		Build()
}

// ConvertArgs transcodes between containers with ffmpeg's default codec
// choice for the output extension.
func ConvertArgs(input, output string) []string {
	return NewCommand().
		Overwrite().
		Input(input).
		Progress().
		Output(output).
		Build()
}

// Add appends raw arguments.
func (b *CommandBuilder) Add(args ...string) *CommandBuilder {
	b.args = append(b.args, args...)
	return b
}
