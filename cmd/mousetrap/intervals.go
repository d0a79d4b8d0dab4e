package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/mousetrap/internal/annotation"
	"github.com/five82/mousetrap/internal/config"
	"github.com/five82/mousetrap/internal/ffprobe"
	"github.com/five82/mousetrap/internal/interval"
	"github.com/five82/mousetrap/internal/util"
)

var intervalsFlags struct {
	from      string
	merge     []string
	marks     []string
	times     []string
	video     string
	fps       float64
	frames    int
	duplicate []string
	remove    []string
	output    string
}

var intervalsCmd = &cobra.Command{
	Use:   "intervals",
	Short: "Build, edit and check a single-file annotation CSV",
	Long: `Build an intervals CSV (intruder,enter,exit) from an existing file,
frame marks and playback times, then check it the way clipping does.

Times accept seconds or [HH:]MM:SS[.fff] and are mapped to 1-based frames
using --fps, or the frame rate of --video:

  mousetrap intervals --video cage1.seq --at MouseA=0:04.0-0:10.0 -o cage1.csv`,
	Args: cobra.NoArgs,
	RunE: runIntervals,
}

func init() {
	f := intervalsCmd.Flags()
	f.StringVar(&intervalsFlags.from, "from", "", "start from this single-file CSV")
	f.StringArrayVar(&intervalsFlags.merge, "merge", nil, "overlay another single-file CSV (repeatable)")
	f.StringArrayVarP(&intervalsFlags.marks, "mark", "m", nil, "subject interval as NAME=ENTER-EXIT frames (repeatable)")
	f.StringArrayVar(&intervalsFlags.times, "at", nil, "subject interval as NAME=START-END times (repeatable)")
	f.StringVar(&intervalsFlags.video, "video", "", "probe this video for frame rate and frame count")
	f.Float64Var(&intervalsFlags.fps, "fps", 0, "frame rate for --at times")
	f.IntVar(&intervalsFlags.frames, "frames", 0, "clamp --at frames to this count")
	f.StringArrayVar(&intervalsFlags.duplicate, "duplicate", nil, "copy a subject to NAME_copy (repeatable)")
	f.StringArrayVar(&intervalsFlags.remove, "delete", nil, "remove a subject (repeatable)")
	f.StringVarP(&intervalsFlags.output, "output", "o", "", "write the CSV here instead of stdout")
}

func runIntervals(cmd *cobra.Command, args []string) error {
	set := interval.NewSet()
	if intervalsFlags.from != "" {
		loaded, err := annotation.ReadSingleFile(intervalsFlags.from)
		if err != nil {
			return err
		}
		set.Merge(loaded)
	}
	for _, path := range intervalsFlags.merge {
		other, err := annotation.ReadSingleFile(path)
		if err != nil {
			return err
		}
		set.Merge(other)
	}

	if len(intervalsFlags.marks) > 0 {
		marked, err := parseMarks(intervalsFlags.marks)
		if err != nil {
			return err
		}
		set.Merge(marked)
	}

	fps, total := intervalsFlags.fps, intervalsFlags.frames
	if intervalsFlags.video != "" {
		props, err := ffprobe.New(config.FromContext(cmd.Context()).FFprobePath).GetVideoProperties(cmd.Context(), intervalsFlags.video)
		if err != nil {
			return fmt.Errorf("failed to probe %s: %w", intervalsFlags.video, err)
		}
		if !cmd.Flags().Changed("fps") {
			fps = props.FPS
		}
		if !cmd.Flags().Changed("frames") {
			total = props.FrameCount
		}
	}
	if len(intervalsFlags.times) > 0 {
		if fps <= 0 {
			return fmt.Errorf("--at needs a frame rate: pass --fps or --video")
		}
		timed, err := parseTimes(intervalsFlags.times, fps, total)
		if err != nil {
			return err
		}
		set.Merge(timed)
	}

	for _, name := range intervalsFlags.duplicate {
		copyName, err := set.Duplicate(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Duplicated %s as %s\n", name, copyName)
	}
	for _, name := range intervalsFlags.remove {
		if !set.Delete(name) {
			return fmt.Errorf("no subject named %s", name)
		}
	}

	for _, name := range set.Pending() {
		fmt.Fprintf(cmd.ErrOrStderr(), "WARN: %s has an enter frame but no exit frame\n", name)
	}
	if set.Len() == 0 {
		return fmt.Errorf("no subjects: use --from, --mark or --at")
	}

	intervals, verr := interval.Validate(set)
	if verr == nil {
		printIntervals(cmd.ErrOrStderr(), intervals, fps)
	}

	if err := writeIntervals(set, intervalsFlags.output, cmd.OutOrStdout()); err != nil {
		return err
	}
	if verr != nil {
		return fmt.Errorf("intervals written but not clippable: %w", verr)
	}
	return nil
}

func printIntervals(w io.Writer, intervals []interval.Interval, fps float64) {
	for _, iv := range intervals {
		if fps > 0 {
			fmt.Fprintf(w, "  %-12s %6d-%-6d %s-%s (%d frames)\n", iv.Name, iv.Start, iv.End,
				util.FormatDuration(interval.PositionOf(iv.Start, fps).Seconds()),
				util.FormatDuration(interval.PositionOf(iv.End, fps).Seconds()),
				iv.Frames())
			continue
		}
		fmt.Fprintf(w, "  %-12s %6d-%-6d (%d frames)\n", iv.Name, iv.Start, iv.End, iv.Frames())
	}
}

func writeIntervals(set *interval.Set, path string, stdout io.Writer) error {
	if path == "" {
		return annotation.WriteSingle(stdout, set)
	}
	if err := util.EnsureDirectory(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := annotation.WriteSingle(f, set); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// parseTimes builds an interval set from NAME=START-END playback times.
func parseTimes(values []string, fps float64, totalFrames int) (*interval.Set, error) {
	set := interval.NewSet()
	for _, v := range values {
		name, span, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		startStr, endStr, ok2 := strings.Cut(span, "-")
		if !ok || !ok2 || name == "" {
			return nil, fmt.Errorf("invalid --at %q: expected NAME=START-END", v)
		}
		start, err := parseTimecode(startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid start in --at %q: %w", v, err)
		}
		end, err := parseTimecode(endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid end in --at %q: %w", v, err)
		}
		if err := set.MarkEnter(name, interval.FrameAt(start, fps, totalFrames)); err != nil {
			return nil, err
		}
		if err := set.MarkExit(name, interval.FrameAt(end, fps, totalFrames)); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// parseTimecode accepts seconds, MM:SS(.fff) or HH:MM:SS(.fff).
func parseTimecode(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many fields in %q", s)
	}
	var secs float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad time %q", s)
		}
		secs = secs*60 + v
	}
	return time.Duration(secs * float64(time.Second)), nil
}
