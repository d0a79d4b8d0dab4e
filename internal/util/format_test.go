package util

import (
	"math"
	"testing"
)

func TestFormatBytesClipSizes(t *testing.T) {
	tests := map[string]struct {
		size uint64
		want string
	}{
		"empty clip":        {0, "0 B"},
		"just under a KiB":  {KiB - 1, "1023 B"},
		"tiny mjpeg frame":  {3 * KiB / 2, "1.50 KiB"},
		"short mp4v clip":   {12*MiB + MiB/4, "12.25 MiB"},
		"hour-long proxy":   {3 * GiB, "3.00 GiB"},
		"exact mebibyte":    {MiB, "1.00 MiB"},
		"exact gibibyte":    {GiB, "1.00 GiB"},
		"minimum free disk": {MinFreeSpaceBytes, "1.00 GiB"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := FormatBytes(tt.size); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.size, got, tt.want)
			}
		})
	}
}

func TestFormatDurationIntervalPositions(t *testing.T) {
	// Frame 101 at 25 fps sits 4s in; frame 90001 sits one hour in.
	tests := []struct {
		frame int
		fps   float64
		want  string
	}{
		{1, 25, "00:00:00"},
		{101, 25, "00:00:04"},
		{1501, 25, "00:01:00"},
		{90001, 25, "01:00:00"},
		{1800, 30, "00:00:59"},
	}
	for _, tt := range tests {
		if got := FormatDuration(float64(tt.frame-1) / tt.fps); got != tt.want {
			t.Errorf("frame %d at %v fps = %q, want %q", tt.frame, tt.fps, got, tt.want)
		}
	}

	for _, bad := range []float64{-0.5, math.NaN()} {
		if got := FormatDuration(bad); got != "??:??:??" {
			t.Errorf("FormatDuration(%v) = %q, want placeholder", bad, got)
		}
	}
}

func TestParseFFmpegTimeProgressLines(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOk bool
	}{
		{"00:00:04.00", 4, true},
		{"00:02:30.50", 150.5, true},
		{"02:00:00", 7200, true},
		{"N/A", 0, false},
		{"04.00", 0, false},
		{"00:xx:01", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFFmpegTime(tt.in)
		if ok != tt.wantOk || (ok && got != tt.want) {
			t.Errorf("ParseFFmpegTime(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOk)
		}
	}
}

func TestFormatFrameRateAndPercent(t *testing.T) {
	rates := map[float64]string{
		25:    "25 fps",
		30:    "30 fps",
		29.97: "29.970 fps",
		0:     "unknown",
	}
	for fps, want := range rates {
		if got := FormatFrameRate(fps); got != want {
			t.Errorf("FormatFrameRate(%v) = %q, want %q", fps, got, want)
		}
	}

	// Batch summaries: files succeeded out of files attempted.
	percents := []struct {
		done, total int
		want        string
	}{
		{4, 4, "100%"},
		{2, 3, "66%"},
		{0, 5, "0%"},
		{1, 0, "0%"},
	}
	for _, tt := range percents {
		if got := FormatPercent(tt.done, tt.total); got != tt.want {
			t.Errorf("FormatPercent(%d, %d) = %q, want %q", tt.done, tt.total, got, tt.want)
		}
	}
}
