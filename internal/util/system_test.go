package util

import (
	"bufio"
	"runtime"
	"strings"
	"testing"
)

func TestGetSystemInfo(t *testing.T) {
	info := GetSystemInfo()
	if info.NumCPU != runtime.NumCPU() {
		t.Errorf("NumCPU = %d, want %d", info.NumCPU, runtime.NumCPU())
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s, want %s/%s", info.OS, info.Arch, runtime.GOOS, runtime.GOARCH)
	}
}

func TestParseMemAvailable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint64
	}{
		{
			name:  "present",
			input: "MemTotal:       16314428 kB\nMemFree:         1234567 kB\nMemAvailable:    8000000 kB\n",
			want:  8000000 * 1024,
		},
		{
			name:  "missing",
			input: "MemTotal:       16314428 kB\n",
			want:  0,
		},
		{
			name:  "malformed",
			input: "MemAvailable: lots\n",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMemAvailable(bufio.NewScanner(strings.NewReader(tt.input)))
			if got != tt.want {
				t.Errorf("parseMemAvailable() = %d, want %d", got, tt.want)
			}
		})
	}
}
