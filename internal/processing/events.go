package processing

import (
	"github.com/five82/mousetrap/internal/ffmpeg"
	"github.com/five82/mousetrap/internal/reporter"
	"github.com/five82/mousetrap/internal/util"
	"github.com/five82/mousetrap/internal/validation"
)

func reportHardware(rep reporter.Reporter) {
	sysInfo := util.GetSystemInfo()
	rep.Hardware(reporter.HardwareSummary{
		Hostname:    sysInfo.Hostname,
		CPUs:        sysInfo.NumCPU,
		OS:          sysInfo.OS + "/" + sysInfo.Arch,
		MemoryBytes: sysInfo.MemoryBytes,
	})
}

// startBatch announces a batch when there is more than one file.
func startBatch(rep reporter.Reporter, operation string, files []string, outputDir string) {
	if len(files) <= 1 {
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, util.GetFilename(f))
	}
	rep.BatchStarted(reporter.BatchStartInfo{
		Operation:  operation,
		TotalFiles: len(files),
		FileList:   names,
		OutputDir:  outputDir,
	})
}

// progressForwarder turns ffmpeg progress into reporter snapshots.
func progressForwarder(rep reporter.Reporter, label string) ffmpeg.ProgressCallback {
	return func(p ffmpeg.Progress) {
		rep.Progress(reporter.ProgressSnapshot{
			Label:        label,
			CurrentFrame: p.CurrentFrame,
			TotalFrames:  p.TotalFrames,
			Percent:      p.Percent,
			Speed:        p.Speed,
			FPS:          p.FPS,
			ETA:          p.ETA,
		})
	}
}

// percentForwarder turns integer percentages into reporter snapshots.
func percentForwarder(rep reporter.Reporter, label string) func(int) {
	return func(pct int) {
		rep.Progress(reporter.ProgressSnapshot{Label: label, Percent: float32(pct)})
	}
}

func toReporterValidation(passed bool, steps []validation.ValidationStep) reporter.ValidationSummary {
	summary := reporter.ValidationSummary{Passed: passed}
	for _, s := range steps {
		summary.Steps = append(summary.Steps, reporter.ValidationStep{
			Name:    s.Name,
			Passed:  s.Passed,
			Details: s.Details,
		})
	}
	return summary
}
