// Package ffprobe reads video stream geometry and timing with ffprobe.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

// VideoProperties describes the first video stream of a file.
type VideoProperties struct {
	Width        int
	Height       int
	FPS          float64 // 0 when the container reports no usable rate
	FrameCount   int     // 0 when unknown
	Estimated    bool    // FrameCount derived from duration * FPS
	DurationSecs float64
	CodecName    string
	CodecTag     string
	PixFmt       string
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType      string `json:"codec_type"`
	CodecName      string `json:"codec_name"`
	CodecTagString string `json:"codec_tag_string"`
	Width          int64  `json:"width"`
	Height         int64  `json:"height"`
	NbFrames       string `json:"nb_frames"`
	RFrameRate     string `json:"r_frame_rate"`
	AvgFrameRate   string `json:"avg_frame_rate"`
	PixFmt         string `json:"pix_fmt"`
	Duration       string `json:"duration"`
}

// Prober runs an ffprobe binary.
type Prober struct {
	Binary string
}

// New creates a Prober for the given binary, defaulting to "ffprobe".
func New(binary string) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{Binary: binary}
}

// runFFprobe executes ffprobe and returns the parsed output.
func (p *Prober) runFFprobe(ctx context.Context, inputPath string) (*ffprobeOutput, error) {
	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "v:0",
		inputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, mterrors.WrapExecError(p.Binary, err, strings.TrimSpace(stderr.String()))
	}

	return parseFFprobeOutput(output)
}

func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, mterrors.Wrap(mterrors.KindFFprobeParse, "failed to parse ffprobe output", err)
	}
	return &result, nil
}

// GetVideoProperties returns the properties of the first video stream.
func (p *Prober) GetVideoProperties(ctx context.Context, inputPath string) (*VideoProperties, error) {
	probe, err := p.runFFprobe(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return extractVideoProperties(probe, inputPath)
}

func extractVideoProperties(probe *ffprobeOutput, inputPath string) (*VideoProperties, error) {
	var videoStream *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			videoStream = &probe.Streams[i]
			break
		}
	}

	if videoStream == nil {
		return nil, mterrors.NewFFprobeParseError(fmt.Sprintf("no video stream found in %s", inputPath))
	}

	if videoStream.Width <= 0 || videoStream.Height <= 0 {
		return nil, mterrors.NewFFprobeParseError(fmt.Sprintf("invalid dimensions in %s: %dx%d", inputPath, videoStream.Width, videoStream.Height))
	}

	props := &VideoProperties{
		Width:     int(videoStream.Width),
		Height:    int(videoStream.Height),
		CodecName: videoStream.CodecName,
		CodecTag:  videoStream.CodecTagString,
		PixFmt:    videoStream.PixFmt,
	}

	props.FPS = ParseFrameRate(videoStream.AvgFrameRate)
	if props.FPS <= 0 {
		props.FPS = ParseFrameRate(videoStream.RFrameRate)
	}

	props.DurationSecs = parseSeconds(videoStream.Duration)
	if props.DurationSecs <= 0 {
		props.DurationSecs = parseSeconds(probe.Format.Duration)
	}

	if n, err := strconv.Atoi(videoStream.NbFrames); err == nil && n > 0 {
		props.FrameCount = n
	} else if props.DurationSecs > 0 && props.FPS > 0 {
		props.FrameCount = int(math.Round(props.DurationSecs * props.FPS))
		props.Estimated = true
	}

	return props, nil
}

// ParseFrameRate parses an ffprobe rational such as "30000/1001" or "25/1".
// Returns 0 for missing or degenerate rates.
func ParseFrameRate(s string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) float64 {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
