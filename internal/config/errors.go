package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidExtension indicates an unusable clip output extension.
	ErrInvalidExtension = errors.New("invalid output extension")

	// ErrInvalidFPS indicates a non-positive fallback frame rate.
	ErrInvalidFPS = errors.New("fallback frame rate out of range")

	// ErrInvalidFrameOffset indicates a negative frame offset.
	ErrInvalidFrameOffset = errors.New("frame offset out of range")

	// ErrInvalidTargetsSuffix indicates an empty merged-output suffix.
	ErrInvalidTargetsSuffix = errors.New("targets suffix invalid")

	// ErrEmptyBinaryPath indicates ffmpeg or ffprobe was configured as an empty path.
	ErrEmptyBinaryPath = errors.New("ffmpeg and ffprobe paths must not be empty")

	// ErrConfigFile indicates the configuration file could not be read or decoded.
	ErrConfigFile = errors.New("config file unreadable")
)
